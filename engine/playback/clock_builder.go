package playback

// ClockBuilderOption is a functional option for configuring a Clock.
type ClockBuilderOption func(*clock)

// WithFPS sets the logical playback rate. Non-positive values keep the default.
//
// Parameters:
//   - fps: frames per second
//
// Returns:
//   - ClockBuilderOption: functional option to set the rate
func WithFPS(fps float64) ClockBuilderOption {
	return func(c *clock) {
		if fps > 0 {
			c.fps = fps
		}
	}
}

// WithFrameCount sets the initial cycle length.
//
// Parameters:
//   - n: the number of frames
//
// Returns:
//   - ClockBuilderOption: functional option to set the frame count
func WithFrameCount(n int) ClockBuilderOption {
	return func(c *clock) {
		c.frameCount = max(n, 1)
	}
}

// WithPlaying sets whether the clock starts playing.
//
// Parameters:
//   - playing: true to start playing
//
// Returns:
//   - ClockBuilderOption: functional option to set the play state
func WithPlaying(playing bool) ClockBuilderOption {
	return func(c *clock) {
		c.playing = playing
	}
}
