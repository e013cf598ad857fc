package game_object

import "github.com/Carmen-Shannon/oxy-motion/common"

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id uint64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithEnabled sets whether the GameObject is enabled for rendering.
//
// Parameters:
//   - enabled: true to render the object, false to skip it
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithMarker makes the GameObject a marker of the given half-extent.
//
// Parameters:
//   - size: the half-extent of the marker cross
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the marker kind
func WithMarker(size float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.kind = KindMarker
		obj.size = size
	}
}

// WithSegment makes the GameObject a segment between two endpoints.
//
// Parameters:
//   - a: the first endpoint
//   - b: the second endpoint
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the segment kind
func WithSegment(a, b [3]float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.kind = KindSegment
		obj.position = a
		obj.end = b
	}
}

// WithPosition sets the initial position of the GameObject.
//
// Parameters:
//   - x: the x position
//   - y: the y position
//   - z: the z position
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the initial position
func WithPosition(x, y, z float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.position = [3]float32{x, y, z}
	}
}

// WithColor sets the packed RGB color of the GameObject.
//
// Parameters:
//   - c: the color
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the color
func WithColor(c common.Color) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.color = c
	}
}
