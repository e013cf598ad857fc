package scene

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/camera"
	"github.com/Carmen-Shannon/oxy-motion/engine/game_object"
)

// Scene manages a registry of GameObjects (joint markers, bone segments) together with the
// static helpers drawn around them: a ground grid, world axes, and named helper line sets such
// as camera frusta. Scenes can be hot-swapped via the Active flag.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// Background returns the clear color of the scene.
	Background() common.Color

	// Count returns the number of GameObjects in the scene.
	//
	// Returns:
	//   - int: count of registered GameObjects
	Count() int

	// Add registers a GameObject. Objects without an ID are assigned the next free ID.
	//
	// Parameters:
	//   - obj: the GameObject to add
	//
	// Returns:
	//   - uint64: the object's ID
	Add(obj game_object.GameObject) uint64

	// Get retrieves a GameObject by its ID. Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Remove removes a GameObject by ID. Unknown IDs are ignored.
	//
	// Parameters:
	//   - id: the object's unique ID
	Remove(id uint64)

	// Clear removes every GameObject and helper line set. The grid and axes are kept.
	Clear()

	// SetHelperLines installs or replaces a named set of helper lines.
	//
	// Parameters:
	//   - name: the helper set name
	//   - lines: the lines to draw, nil removes the set
	SetHelperLines(name string, lines []common.Line)

	// HelperLines returns a copy of a named helper set, nil if absent.
	HelperLines(name string) []common.Line

	// SetGridVisible toggles the ground grid and world axes.
	SetGridVisible(visible bool)

	// Update runs fn as a single edit of the scene. LineVertices never observes the scene part way
	// through fn. fn must not call Update itself.
	//
	// Parameters:
	//   - fn: the edit to apply
	Update(fn func())

	// LineVertices returns the line-list geometry of every enabled object, the ground grid,
	// the axes, and all helper sets, two vertices per line, in a stable order.
	//
	// Returns:
	//   - []common.Vertex: the vertex list
	LineVertices() []common.Vertex
}

type scene struct {
	mu *sync.RWMutex
	// frameMu is held across a whole Update and across LineVertices. Lock order is frameMu then mu.
	frameMu *sync.Mutex

	name   string
	active bool

	registry map[uint64]game_object.GameObject
	nextID   uint64

	cam        camera.Camera
	background common.Color

	gridVisible   bool
	patchSize     float32
	gridSize      float32
	axesLength    float32
	staticLines   []common.Line
	helpers       map[string][]common.Line
	vertexScratch []common.Vertex
}

var _ Scene = &scene{}

// NewScene creates a new Scene with a checkerboard-style ground grid of 1.25 unit patches
// spanning 12 units and world axes of length 3.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:          &sync.RWMutex{},
		frameMu:     &sync.Mutex{},
		name:        name,
		registry:    make(map[uint64]game_object.GameObject),
		nextID:      1,
		background:  common.ColorBackground,
		gridVisible: true,
		patchSize:   1.25,
		gridSize:    12,
		axesLength:  3,
		helpers:     make(map[string][]common.Line),
	}
	for _, option := range options {
		option(s)
	}
	s.staticLines = append(GridLines(s.patchSize, s.gridSize), AxesLines(s.axesLength)...)
	return s
}

// GridLines builds a square ground grid on the y=0 plane. The grid has ceil(size/patch) cells
// per side and is centered on the origin.
//
// Parameters:
//   - patch: the cell edge length
//   - size: the minimum extent to cover
//
// Returns:
//   - []common.Line: the grid lines
func GridLines(patch, size float32) []common.Line {
	if patch <= 0 || size <= 0 {
		return nil
	}
	rep := int(math.Ceil(float64(size / patch)))
	half := float32(rep) * patch / 2
	lines := make([]common.Line, 0, 2*(rep+1))
	for i := 0; i <= rep; i++ {
		c := -half + float32(i)*patch
		color := common.ColorGridLight
		if i%2 == 0 {
			color = common.ColorGridDark
		}
		lines = append(lines,
			common.Line{From: [3]float32{c, 0, -half}, To: [3]float32{c, 0, half}, Color: color},
			common.Line{From: [3]float32{-half, 0, c}, To: [3]float32{half, 0, c}, Color: color},
		)
	}
	return lines
}

// AxesLines returns the three world axes from the origin, X red, Y green, Z blue.
func AxesLines(length float32) []common.Line {
	if length <= 0 {
		return nil
	}
	return []common.Line{
		{To: [3]float32{length, 0, 0}, Color: common.ColorAxisX},
		{To: [3]float32{0, length, 0}, Color: common.ColorAxisY},
		{To: [3]float32{0, 0, length}, Color: common.ColorAxisZ},
	}
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Background() common.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.background
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if obj.ID() == 0 {
		obj.SetID(atomic.AddUint64(&s.nextID, 1) - 1)
	}
	s.registry[obj.ID()] = obj
	return obj.ID()
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registry, id)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = make(map[uint64]game_object.GameObject)
	s.helpers = make(map[string][]common.Line)
}

func (s *scene) SetHelperLines(name string, lines []common.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lines == nil {
		delete(s.helpers, name)
		return
	}
	s.helpers[name] = append([]common.Line(nil), lines...)
}

func (s *scene) HelperLines(name string) []common.Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines, ok := s.helpers[name]
	if !ok {
		return nil
	}
	return append([]common.Line(nil), lines...)
}

func (s *scene) SetGridVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gridVisible = visible
}

func (s *scene) Update(fn func()) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	fn()
}

func (s *scene) LineVertices() []common.Vertex {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.vertexScratch[:0]
	if s.gridVisible {
		out = common.AppendLineVertices(out, s.staticLines...)
	}

	ids := make([]uint64, 0, len(s.registry))
	for id := range s.registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		obj := s.registry[id]
		if !obj.Enabled() {
			continue
		}
		out = common.AppendLineVertices(out, obj.Lines()...)
	}

	names := make([]string, 0, len(s.helpers))
	for name := range s.helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = common.AppendLineVertices(out, s.helpers[name]...)
	}

	s.vertexScratch = out
	result := make([]common.Vertex, len(out))
	copy(result, out)
	return result
}
