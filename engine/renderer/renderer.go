// Package renderer draws scenes as colored line lists with WebGPU.
package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/camera"
	"github.com/Carmen-Shannon/oxy-motion/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-motion/engine/window"
)

type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline
	backend       RendererBackend

	// collected from builder options before the backend exists
	pending              []pipeline.Pipeline
	forceFallbackAdapter bool
	presentMode          PresentMode
	msaa                 MSAASampleCount
	clearColor           common.Color
}

// Renderer is the high-level drawing API: a cache of registered pipelines and a frame
// lifecycle of BeginFrame, any number of DrawLines, EndFrame and Present.
type Renderer interface {
	// Pipeline returns the registered pipeline with the given key, or nil.
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines creates GPU objects for the given descriptions and caches them by key.
	// Keys already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the pipeline descriptions
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize reconfigures the surface for a new framebuffer size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// SetPresentMode changes the present mode. Takes effect on the next Resize.
	SetPresentMode(mode PresentMode)

	// SetClearColor changes the background color.
	SetClearColor(c common.Color)

	// BeginFrame acquires the swapchain texture and begins the render pass.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// DrawLines draws a line list through a camera. Each batch name owns its own GPU buffers,
	// so distinct callers within one frame must use distinct batch names.
	//
	// Parameters:
	//   - pipelineKey: the registered line pipeline
	//   - batch: the buffer set to upload into
	//   - cam: the camera whose view-projection is used
	//   - vertices: pairs of line endpoints
	//
	// Returns:
	//   - error: an error if the pipeline is unknown or called outside a frame
	DrawLines(pipelineKey, batch string, cam camera.Camera, vertices []common.Vertex) error

	// EndFrame ends the render pass and submits it.
	EndFrame()

	// Present shows the submitted frame.
	Present()

	// Release frees every GPU object.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer drawing into the window's surface and registers the line
// pipeline under LinePipelineKey, plus any pipelines given with WithPipeline.
//
// Parameters:
//   - backendType: the rendering backend to use
//   - win: the window providing the surface and its size
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the GPU could not be initialized
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		msaa:          MSAA4x,
		clearColor:    common.ColorBackground,
	}
	for _, opt := range options {
		opt(r)
	}

	var err error
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend, err = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, r.msaa)
	}
	if err != nil {
		return nil, err
	}

	r.backend.SetPresentMode(r.presentMode)
	r.backend.SetClearColor(r.clearColor)
	r.backend.ConfigureSurface(win.Width(), win.Height())

	if err := r.RegisterPipelines(append([]pipeline.Pipeline{NewLinePipeline()}, r.pending...)...); err != nil {
		r.backend.Release()
		return nil, err
	}
	return r, nil
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return fmt.Errorf("register pipeline %q: %w", key, err)
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) SetClearColor(c common.Color) {
	r.backend.SetClearColor(c)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) DrawLines(pipelineKey, batch string, cam camera.Camera, vertices []common.Vertex) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()
	if !exists {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}

	uniform := camera.NewGPUCameraUniform(cam)
	return r.backend.DrawLines(p, batch, uniform.Marshal(), common.SliceToBytes(vertices), uint32(len(vertices)))
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Release() {
	r.backend.Release()
}
