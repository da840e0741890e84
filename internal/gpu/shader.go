package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// compileShader compiles WGSL through naga and builds a HAL shader module
// from the resulting SPIR-V words.
func compileShader(device Device, label, source string) (hal.ShaderModule, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("gpu: compile %s: %w", label, err)
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: words},
	})
}

// kernel bundles one compute pipeline with its layouts so teardown happens
// in the right order: pipeline, pipeline layout, bind group layout, module.
type kernel struct {
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

// buildKernel compiles source and assembles the bind group layout every
// conversion kernel shares: uniform parameters at binding 0, read-only
// source words at binding 1, writable destination at binding 2.
func buildKernel(device Device, name, source string) (kernel, error) {
	var k kernel

	shader, err := compileShader(device, name, source)
	if err != nil {
		return kernel{}, err
	}
	k.shader = shader

	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: name + "_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		k.destroy(device)
		return kernel{}, fmt.Errorf("gpu: create %s bind group layout: %w", name, err)
	}
	k.bindLayout = bindLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: name + "_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		k.destroy(device)
		return kernel{}, fmt.Errorf("gpu: create %s pipeline layout: %w", name, err)
	}
	k.pipeLayout = pipeLayout

	pipeline, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: name + "_pipeline", Layout: pipeLayout,
		Compute: hal.ComputeState{Module: shader, EntryPoint: "main"},
	})
	if err != nil {
		k.destroy(device)
		return kernel{}, fmt.Errorf("gpu: create %s compute pipeline: %w", name, err)
	}
	k.pipeline = pipeline

	return k, nil
}

func (k *kernel) destroy(device Device) {
	if k.pipeline != nil {
		device.DestroyComputePipeline(k.pipeline)
	}
	if k.pipeLayout != nil {
		device.DestroyPipelineLayout(k.pipeLayout)
	}
	if k.bindLayout != nil {
		device.DestroyBindGroupLayout(k.bindLayout)
	}
	if k.shader != nil {
		device.DestroyShaderModule(k.shader)
	}
	*k = kernel{}
}
