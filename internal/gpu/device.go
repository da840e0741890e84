package gpu

import (
	"time"

	"github.com/gogpu/wgpu/hal"
)

// Device is the slice of hal.Device this package uses. hal.Device
// satisfies it; tests substitute fakes with scripted fence behavior.
type Device interface {
	CreateBuffer(*hal.BufferDescriptor) (hal.Buffer, error)
	DestroyBuffer(hal.Buffer)
	CreateShaderModule(*hal.ShaderModuleDescriptor) (hal.ShaderModule, error)
	DestroyShaderModule(hal.ShaderModule)
	CreateBindGroupLayout(*hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error)
	DestroyBindGroupLayout(hal.BindGroupLayout)
	CreateBindGroup(*hal.BindGroupDescriptor) (hal.BindGroup, error)
	DestroyBindGroup(hal.BindGroup)
	CreatePipelineLayout(*hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error)
	DestroyPipelineLayout(hal.PipelineLayout)
	CreateComputePipeline(*hal.ComputePipelineDescriptor) (hal.ComputePipeline, error)
	DestroyComputePipeline(hal.ComputePipeline)
	CreateCommandEncoder(*hal.CommandEncoderDescriptor) (hal.CommandEncoder, error)
	FreeCommandBuffer(hal.CommandBuffer)
	CreateFence() (hal.Fence, error)
	DestroyFence(hal.Fence)
	Wait(fence hal.Fence, value uint64, timeout time.Duration) (bool, error)
}

// Queue is the slice of hal.Queue this package uses.
type Queue interface {
	WriteBuffer(buf hal.Buffer, offset uint64, data []byte)
	Submit(cmdBufs []hal.CommandBuffer, fence hal.Fence, signalValue uint64) error
}
