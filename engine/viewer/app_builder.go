package viewer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/camera"
	"github.com/Carmen-Shannon/oxy-motion/engine/playback"
	"github.com/Carmen-Shannon/oxy-motion/engine/registry"
)

// AppBuilderOption is a functional option for configuring an App.
type AppBuilderOption func(*app)

// WithMode sets whether the app inspects one file or compares slots.
//
// Parameters:
//   - mode: ModeSingle or ModeCompare
//
// Returns:
//   - AppBuilderOption: functional option to set the mode
func WithMode(mode Mode) AppBuilderOption {
	return func(a *app) {
		a.mode = mode
	}
}

// WithLogger sets the logger the app and its default components report to.
//
// Parameters:
//   - logger: the structured logger
//
// Returns:
//   - AppBuilderOption: functional option to set the logger
func WithLogger(logger *slog.Logger) AppBuilderOption {
	return func(a *app) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock sets the playback clock.
func WithClock(c playback.Clock) AppBuilderOption {
	return func(a *app) {
		a.clock = c
	}
}

// WithRig sets the follow and estimated camera rig.
func WithRig(r camera.CameraRig) AppBuilderOption {
	return func(a *app) {
		a.rig = r
	}
}

// WithRegistry sets the comparison slot registry. It must draw into the app's scene.
func WithRegistry(r registry.Registry) AppBuilderOption {
	return func(a *app) {
		a.reg = r
	}
}

// WithFileOptions sets the files comparison slots may be bound to. Ignored when WithRegistry is given.
//
// Parameters:
//   - files: the candidate motion files
//
// Returns:
//   - AppBuilderOption: functional option to set the file options
func WithFileOptions(files ...string) AppBuilderOption {
	return func(a *app) {
		a.fileOptions = append([]string(nil), files...)
	}
}

// WithSkeletonColors sets the single-mode skeleton colors.
//
// Parameters:
//   - joint: the joint marker color
//   - bone: the bone segment color
//
// Returns:
//   - AppBuilderOption: functional option to set the colors
func WithSkeletonColors(joint, bone common.Color) AppBuilderOption {
	return func(a *app) {
		a.jointColor = joint
		a.boneColor = bone
	}
}

// WithFrustumVisible sets whether the estimated camera frustum is drawn.
func WithFrustumVisible(visible bool) AppBuilderOption {
	return func(a *app) {
		a.showFrustum = visible
	}
}
