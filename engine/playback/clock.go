// Package playback converts wall-clock time into a frame cursor advancing at a fixed logical rate.
package playback

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-motion/common"
)

// DefaultFPS is the logical playback rate motion clips are recorded at.
const DefaultFPS = 20

type clock struct {
	mu *sync.Mutex

	fps        float64
	period     float64
	residue    float64
	frame      int
	frameCount int
	playing    bool
}

// Clock is the shared frame cursor driven by the render loop.
// Each Tick accumulates elapsed time and advances the cursor by at most one frame once a full
// frame period has accumulated, keeping the surplus for later ticks. Time accumulates while paused
// too; the cursor only moves while playing.
type Clock interface {
	// Tick adds elapsed wall-clock time and advances the cursor by at most one frame.
	//
	// Parameters:
	//   - delta: seconds since the previous tick
	//
	// Returns:
	//   - bool: true if the cursor advanced
	//   - int: the current frame
	Tick(delta float64) (bool, int)

	// Frame returns the current frame.
	Frame() int

	// Seek moves the cursor directly, wrapping it into [0, FrameCount).
	//
	// Parameters:
	//   - frame: the requested frame
	//
	// Returns:
	//   - int: the frame the cursor landed on
	Seek(frame int) int

	// FrameCount returns the number of frames the cursor cycles through.
	FrameCount() int

	// SetFrameCount changes the cycle length and reduces the cursor modulo the new count.
	// A count below 1 is treated as 1.
	//
	// Parameters:
	//   - n: the new frame count
	SetFrameCount(n int)

	// FPS returns the logical playback rate.
	FPS() float64

	// SetFPS changes the logical playback rate. Non-positive values are ignored.
	SetFPS(fps float64)

	// Playing reports whether the clock advances on Tick.
	Playing() bool

	// SetPlaying starts or pauses playback.
	SetPlaying(playing bool)

	// Toggle flips between playing and paused and returns the new state.
	Toggle() bool

	// Reset moves the cursor to frame 0 and drops any accumulated time.
	Reset()
}

var _ Clock = &clock{}

// NewClock creates a paused Clock at frame 0 running at DefaultFPS over a single frame.
//
// Parameters:
//   - options: functional options to configure the clock
//
// Returns:
//   - Clock: the new clock
func NewClock(options ...ClockBuilderOption) Clock {
	c := &clock{
		mu:         &sync.Mutex{},
		fps:        DefaultFPS,
		frameCount: 1,
	}
	for _, option := range options {
		option(c)
	}
	c.period = 1 / c.fps
	return c
}

func (c *clock) Tick(delta float64) (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if delta > 0 {
		c.residue += delta
	}
	if !c.playing || c.residue < c.period {
		return false, c.frame
	}
	c.residue -= c.period
	c.frame = (c.frame + 1) % c.frameCount
	return true, c.frame
}

func (c *clock) Frame() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

func (c *clock) Seek(frame int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = common.Wrap(frame, c.frameCount)
	return c.frame
}

func (c *clock) FrameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameCount
}

func (c *clock) SetFrameCount(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frameCount = max(n, 1)
	c.frame %= c.frameCount
}

func (c *clock) FPS() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *clock) SetFPS(fps float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fps <= 0 {
		return
	}
	c.fps = fps
	c.period = 1 / fps
}

func (c *clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *clock) SetPlaying(playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = playing
}

func (c *clock) Toggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = !c.playing
	return c.playing
}

func (c *clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = 0
	c.residue = 0
}
