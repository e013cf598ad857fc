package renderer

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/camera"
	"github.com/Carmen-Shannon/oxy-motion/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/line.wgsl
var lineShader string

// LinePipelineKey is the key the line pipeline is registered under.
const LinePipelineKey = "lines"

// vertexStride is the size of one common.Vertex: position then color, both vec3<f32>.
const vertexStride = uint64(unsafe.Sizeof(common.Vertex{}))

// NewLinePipeline describes the pipeline every scene is drawn with: a line list of colored
// vertices transformed by the camera uniform at group 0, binding 0.
//
// Returns:
//   - pipeline.Pipeline: the line pipeline description
func NewLinePipeline() pipeline.Pipeline {
	var uniform camera.GPUCameraUniform
	return pipeline.NewPipeline(LinePipelineKey,
		pipeline.WithShaderSource(lineShader),
		pipeline.WithTopology(wgpu.PrimitiveTopologyLineList),
		pipeline.WithVertexLayouts(wgpu.VertexBufferLayout{
			ArrayStride: vertexStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			},
		}),
		pipeline.WithBindGroupLayouts(wgpu.BindGroupLayoutDescriptor{
			Label: "Camera Bind Group Layout",
			Entries: []wgpu.BindGroupLayoutEntry{{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64(uniform.Size()),
				},
			}},
		}),
	)
}
