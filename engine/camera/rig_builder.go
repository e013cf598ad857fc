package camera

import "log/slog"

// CameraRigOption is a functional option for configuring a CameraRig.
type CameraRigOption func(*cameraRig)

// WithFollowOffset sets the offset from the root joint the follow camera trails toward.
//
// Parameters:
//   - x, y, z: the offset in world units
//
// Returns:
//   - CameraRigOption: functional option to set the follow offset
func WithFollowOffset(x, y, z float32) CameraRigOption {
	return func(r *cameraRig) {
		r.followOffset = [3]float32{x, y, z}
	}
}

// WithFollowLerp sets the fraction of the remaining distance the follow camera covers per update.
// Values outside (0, 1] are ignored.
//
// Parameters:
//   - t: the smoothing factor
//
// Returns:
//   - CameraRigOption: functional option to set the smoothing factor
func WithFollowLerp(t float32) CameraRigOption {
	return func(r *cameraRig) {
		if t > 0 && t <= 1 {
			r.followLerp = t
		}
	}
}

// WithFollowStart sets the position the follow camera starts from and returns to on Reset.
//
// Parameters:
//   - x, y, z: the world-space start position
//
// Returns:
//   - CameraRigOption: functional option to set the start position
func WithFollowStart(x, y, z float32) CameraRigOption {
	return func(r *cameraRig) {
		r.followStart = [3]float32{x, y, z}
	}
}

// WithRigLogger sets the logger used for singular-matrix warnings.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - CameraRigOption: functional option to set the logger
func WithRigLogger(logger *slog.Logger) CameraRigOption {
	return func(r *cameraRig) {
		if logger != nil {
			r.logger = logger
		}
	}
}
