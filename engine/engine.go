// Package engine runs the viewer's render loop: each frame it calls the update callback,
// then draws every active scene through the renderer.
package engine

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/camera"
	"github.com/Carmen-Shannon/oxy-motion/engine/profiler"
	"github.com/Carmen-Shannon/oxy-motion/engine/renderer"
	"github.com/Carmen-Shannon/oxy-motion/engine/scene"
	"github.com/Carmen-Shannon/oxy-motion/engine/window"
)

// FrameRenderer is the part of renderer.Renderer the render loop uses.
type FrameRenderer interface {
	Resize(width, height int)
	SetClearColor(c common.Color)
	BeginFrame() error
	DrawLines(pipelineKey, batch string, cam camera.Camera, vertices []common.Vertex) error
	EndFrame()
	Present()
}

var _ FrameRenderer = renderer.Renderer(nil)

type engine struct {
	mu     *sync.Mutex
	logger *slog.Logger

	wg          sync.WaitGroup
	quitChannel chan struct{}
	quitOnce    sync.Once

	window   window.Window
	renderer FrameRenderer

	profiler         *profiler.Profiler
	profilingEnabled bool

	updateCallback func(deltaTime float64)
	scenes         map[int]scene.Scene
	aspect         float32

	renderFrameLimit time.Duration
}

// Engine orchestrates the render loop and window management.
type Engine interface {
	// Window returns the window the engine presents into, nil when headless.
	Window() window.Window

	// EnableProfiler enables frame statistics logging.
	EnableProfiler()

	// DisableProfiler disables frame statistics logging.
	DisableProfiler()

	// SetUpdateCallback registers the function called at the start of every frame, before any
	// scene is drawn. Pose and camera updates belong here.
	//
	// Parameters:
	//   - callback: function receiving the seconds since the previous frame
	SetUpdateCallback(callback func(deltaTime float64))

	// SetRenderFrameLimit caps the render loop's frame rate. Pass 0 to uncap it.
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key. Scenes are drawn in ascending key order.
	//
	// Parameters:
	//   - key: the z-index determining draw order
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	RemoveScene(key int)

	// Scene returns the scene at the given z-index key, or nil.
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	Scenes() map[int]scene.Scene

	// Run starts the render loop and processes window messages on the calling goroutine.
	// Blocks until the window is closed, then stops the render loop.
	Run()

	// Quit stops the render loop. Safe to call multiple times.
	Quit()

	// Done is closed once Quit has been called.
	Done() <-chan struct{}
}

var _ Engine = &engine{}

// NewEngine creates an Engine.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:          &sync.Mutex{},
		logger:      slog.Default(),
		quitChannel: make(chan struct{}),
		scenes:      make(map[int]scene.Scene),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run() {
	if e.window != nil {
		e.resize(e.window.Width(), e.window.Height())
	}
	e.wg.Add(1)
	go e.handleRender()

	if e.window != nil {
		e.window.ProcessMessages()
		e.Quit()
	} else {
		<-e.quitChannel
	}
	e.wg.Wait()
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Done() <-chan struct{} {
	return e.quitChannel
}

// resize reconfigures the surface and the aspect ratio of every scene camera.
func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if e.renderer != nil {
		e.renderer.Resize(width, height)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.aspect = float32(width) / float32(height)
	for _, s := range e.scenes {
		if c := s.Camera(); c != nil {
			c.SetAspect(e.aspect)
		}
	}
}

// handleRender runs the render loop until Quit. A panic inside a frame stops the engine
// instead of crashing the process.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("render loop recovered from panic", "panic", r)
			e.Quit()
		}
	}()

	lastRender := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := now.Sub(lastRender).Seconds()
		lastRender = now

		e.renderFrame(dt)

		if e.profilingEnabled {
			e.profiler.Tick()
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// renderFrame runs one frame: update first, then one render pass drawing every active scene.
func (e *engine) renderFrame(dt float64) {
	if e.updateCallback != nil {
		e.updateCallback(dt)
	}

	scenes := e.activeScenes()
	if e.renderer == nil || len(scenes) == 0 {
		return
	}

	e.renderer.SetClearColor(scenes[0].Background())
	if err := e.renderer.BeginFrame(); err != nil {
		e.logger.Debug("skipping frame", "err", err)
		return
	}
	for _, s := range scenes {
		cam := s.Camera()
		if cam == nil {
			continue
		}
		if e.aspect > 0 && cam.Aspect() != e.aspect {
			cam.SetAspect(e.aspect)
		}
		if err := e.renderer.DrawLines(renderer.LinePipelineKey, s.Name(), cam, s.LineVertices()); err != nil {
			e.logger.Warn("draw failed", "scene", s.Name(), "err", err)
		}
	}
	e.renderer.EndFrame()
	e.renderer.Present()
}

// activeScenes returns the active scenes in ascending key order.
func (e *engine) activeScenes() []scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var active []scene.Scene
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetUpdateCallback(callback func(deltaTime float64)) {
	e.updateCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
