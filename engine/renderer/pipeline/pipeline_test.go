package pipeline_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-motion/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestDefaults(t *testing.T) {
	p := pipeline.NewPipeline("p")
	if p.PipelineKey() != "p" || p.VertexEntryPoint() != "vs_main" || p.FragmentEntryPoint() != "fs_main" {
		t.Fatalf("unexpected identity: %q %q %q", p.PipelineKey(), p.VertexEntryPoint(), p.FragmentEntryPoint())
	}
	if !p.DepthTestEnabled() || !p.DepthWriteEnabled() || p.BlendEnabled() {
		t.Error("unexpected depth or blend defaults")
	}
	if p.Topology() != wgpu.PrimitiveTopologyTriangleList {
		t.Errorf("topology = %v", p.Topology())
	}
	if !errors.Is(p.Validate(), pipeline.ErrNoShader) {
		t.Error("pipeline without source validated")
	}
	if p.RenderPipeline() != nil || p.BindGroupLayout(0) != nil {
		t.Error("unregistered pipeline has GPU objects")
	}
}

func TestOptions(t *testing.T) {
	p := pipeline.NewPipeline("lines",
		pipeline.WithShaderSource("@vertex fn v() {}"),
		pipeline.WithEntryPoints("v", "f"),
		pipeline.WithTopology(wgpu.PrimitiveTopologyLineList),
		pipeline.WithDepthWriteEnabled(false),
		pipeline.WithVertexLayouts(wgpu.VertexBufferLayout{ArrayStride: 24}),
	)
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.Topology() != wgpu.PrimitiveTopologyLineList || p.DepthWriteEnabled() {
		t.Error("options not applied")
	}
	if got := p.VertexLayouts(); len(got) != 1 || got[0].ArrayStride != 24 {
		t.Errorf("vertex layouts = %+v", got)
	}
}
