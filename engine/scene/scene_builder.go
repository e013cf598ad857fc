package scene

import (
	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/camera"
	"github.com/Carmen-Shannon/oxy-motion/engine/game_object"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithCamera attaches the camera the scene is viewed through.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.cam = cam
	}
}

// WithBackground sets the clear color.
//
// Parameters:
//   - c: the packed RGB background color
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBackground(c common.Color) SceneBuilderOption {
	return func(s *scene) {
		s.background = c
	}
}

// WithGrid sets the ground grid cell size and the extent it must cover.
// A non-positive size disables the grid.
//
// Parameters:
//   - patch: the cell edge length
//   - size: the extent to cover
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithGrid(patch, size float32) SceneBuilderOption {
	return func(s *scene) {
		s.patchSize = patch
		s.gridSize = size
	}
}

// WithAxes sets the length of the world axes helper. Zero disables it.
//
// Parameters:
//   - length: the axis length
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAxes(length float32) SceneBuilderOption {
	return func(s *scene) {
		s.axesLength = length
	}
}

// WithObjects adds initial objects to the scene.
// Objects without IDs will be assigned new IDs.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		for _, obj := range objects {
			if obj.ID() == 0 {
				obj.SetID(s.nextID)
				s.nextID++
			}
			s.registry[obj.ID()] = obj
		}
	}
}
