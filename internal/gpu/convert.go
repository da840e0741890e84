// Package gpu implements the device-facing half of the translation layer:
// pooled streaming memory for transient vertex and index data, and compute
// kernels that rewrite vertex and index formats on the GPU when the CPU
// path would have to read device-local buffers back.
package gpu

import (
	_ "embed"
	"fmt"
	"log/slog"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Embedded WGSL kernel sources.

//go:embed shaders/convert_vertex.wgsl
var convertVertexShaderSource string

//go:embed shaders/widen_index.wgsl
var widenIndexShaderSource string

// uniformAlign is the minimum uniform buffer offset alignment; parameter
// blocks allocated from the stream pool are placed on it.
const uniformAlign = 256

// convertWorkgroupSize matches @workgroup_size in both kernels.
const convertWorkgroupSize = 64

// VertexConvertParams describes one normalized-to-float pass. The kernel
// reads Count elements of CompCount components, CompBits bits each, one
// element every SrcStride bytes starting at SrcOffset, and writes Count
// tightly packed output elements of DstWords float32 values. Missing
// output components are injected as 0 (y, z) and 1.0 (w). 16-bit
// components must sit on even byte offsets, so SrcOffset and SrcStride
// must be even when CompBits is 16.
type VertexConvertParams struct {
	Count     uint32
	SrcOffset uint32
	SrcStride uint32
	CompCount uint32 // source components per element, 1 to 4
	CompBits  uint32 // 8 or 16
	Signed    bool
	DstWords  uint32 // float32 values per output element
}

// IndexWidenParams describes one index widening pass. The kernel reads
// Count indices of SrcWidth bytes starting at SrcOffset and writes Count
// contiguous indices of DstWidth bytes.
type IndexWidenParams struct {
	Count     uint32
	SrcOffset uint32
	SrcWidth  uint32 // 1 or 2
	DstWidth  uint32 // 2 or 4
}

// vertexConvertUniform mirrors the Params struct in convert_vertex.wgsl.
// Uniform blocks round to 16 bytes, hence the tail padding.
type vertexConvertUniform struct {
	count     uint32
	srcOffset uint32
	srcStride uint32
	compCount uint32
	compBits  uint32
	isSigned  uint32
	dstWords  uint32
	_         uint32
}

// indexWidenUniform mirrors the Params struct in widen_index.wgsl.
type indexWidenUniform struct {
	outWords  uint32
	count     uint32
	srcOffset uint32
	srcWidth  uint32
	dstWidth  uint32
	_         [3]uint32
}

// retiredBindGroup is a bind group whose commands were submitted behind
// fence value; it is destroyed once the fence reaches that value.
type retiredBindGroup struct {
	bg    hal.BindGroup
	value uint64
}

// ConvertPipelines owns the conversion compute kernels and submits
// conversion passes. Submissions never wait for the GPU: queue ordering
// guarantees a draw submitted afterwards observes the converted data, and
// bind groups are reclaimed by polling an internal fence. Confined to the
// owning context's thread.
type ConvertPipelines struct {
	device Device
	queue  Queue
	logger *slog.Logger

	vertexKernel kernel
	indexKernel  kernel
	ready        bool

	fence      hal.Fence
	fenceValue uint64
	retired    []retiredBindGroup
}

// NewConvertPipelines creates the front end. Kernels compile lazily on the
// first conversion so contexts that never hit the GPU path pay nothing.
func NewConvertPipelines(device Device, queue Queue, logger *slog.Logger) *ConvertPipelines {
	if logger == nil {
		logger = slog.New(discardHandler{})
	}
	return &ConvertPipelines{device: device, queue: queue, logger: logger}
}

func (cp *ConvertPipelines) ensureInit() error {
	if cp.ready {
		return nil
	}

	vk, err := buildKernel(cp.device, "vtx_convert", convertVertexShaderSource)
	if err != nil {
		return err
	}
	ik, err := buildKernel(cp.device, "idx_widen", widenIndexShaderSource)
	if err != nil {
		vk.destroy(cp.device)
		return err
	}
	fence, err := cp.device.CreateFence()
	if err != nil {
		vk.destroy(cp.device)
		ik.destroy(cp.device)
		return fmt.Errorf("gpu: create conversion fence: %w", err)
	}

	cp.vertexKernel = vk
	cp.indexKernel = ik
	cp.fence = fence
	cp.ready = true
	cp.logger.Debug("conversion kernels compiled")
	return nil
}

// ConvertVertexToFloat dispatches the normalized-to-float kernel. src is
// bound whole (srcSize bytes) because storage bindings need aligned
// offsets the caller's byte offset cannot guarantee; the kernel applies
// p.SrcOffset itself. dst receives p.Count elements of p.DstWords float32
// values at dst.Offset. Parameter blocks come from pool so they retire
// with the frame.
func (cp *ConvertPipelines) ConvertVertexToFloat(pool *StreamPool, src hal.Buffer, srcSize uint64, p VertexConvertParams, dst StreamAlloc) error {
	if err := cp.ensureInit(); err != nil {
		return err
	}
	u := vertexConvertUniform{
		count:     p.Count,
		srcOffset: p.SrcOffset,
		srcStride: p.SrcStride,
		compCount: p.CompCount,
		compBits:  p.CompBits,
		dstWords:  p.DstWords,
	}
	if p.Signed {
		u.isSigned = 1
	}
	params, err := pool.Upload(structToBytes(unsafe.Pointer(&u), unsafe.Sizeof(u)), uniformAlign)
	if err != nil {
		return err
	}
	groups := (p.Count + convertWorkgroupSize - 1) / convertWorkgroupSize
	return cp.dispatch(&cp.vertexKernel, "vtx_convert", params, src, srcSize, dst, groups)
}

// WidenIndices dispatches the index widening kernel. Binding rules match
// ConvertVertexToFloat: src is bound whole, dst receives the widened
// indices at dst.Offset.
func (cp *ConvertPipelines) WidenIndices(pool *StreamPool, src hal.Buffer, srcSize uint64, p IndexWidenParams, dst StreamAlloc) error {
	if err := cp.ensureInit(); err != nil {
		return err
	}
	outWords := p.Count
	if p.DstWidth == 2 {
		outWords = (p.Count + 1) / 2
	}
	u := indexWidenUniform{
		outWords:  outWords,
		count:     p.Count,
		srcOffset: p.SrcOffset,
		srcWidth:  p.SrcWidth,
		dstWidth:  p.DstWidth,
	}
	params, err := pool.Upload(structToBytes(unsafe.Pointer(&u), unsafe.Sizeof(u)), uniformAlign)
	if err != nil {
		return err
	}
	groups := (outWords + convertWorkgroupSize - 1) / convertWorkgroupSize
	return cp.dispatch(&cp.indexKernel, "idx_widen", params, src, srcSize, dst, groups)
}

// dispatch encodes one compute pass and submits it without waiting.
func (cp *ConvertPipelines) dispatch(k *kernel, label string, params StreamAlloc, src hal.Buffer, srcSize uint64, dst StreamAlloc, groups uint32) error {
	bg, err := cp.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: label + "_bind", Layout: k.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: params.Buf.NativeHandle(), Offset: params.Offset, Size: params.Size}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: src.NativeHandle(), Offset: 0, Size: srcSize}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: dst.Buf.NativeHandle(), Offset: dst.Offset, Size: dst.Size}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create %s bind group: %w", label, err)
	}

	encoder, err := cp.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		cp.device.DestroyBindGroup(bg)
		return fmt.Errorf("gpu: create %s encoder: %w", label, err)
	}
	if err := cp.encodePass(encoder, k, label, bg, groups); err != nil {
		cp.device.DestroyBindGroup(bg)
		return err
	}

	cp.retired = append(cp.retired, retiredBindGroup{bg: bg, value: cp.fenceValue})
	cp.reap()
	return nil
}

func (cp *ConvertPipelines) encodePass(encoder hal.CommandEncoder, k *kernel, label string, bg hal.BindGroup, groups uint32) error {
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("gpu: begin %s encoding: %w", label, err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
	pass.SetPipeline(k.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(groups, 1, 1)
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end %s encoding: %w", label, err)
	}
	defer cp.device.FreeCommandBuffer(cmdBuf)

	cp.fenceValue++
	if err := cp.queue.Submit([]hal.CommandBuffer{cmdBuf}, cp.fence, cp.fenceValue); err != nil {
		cp.fenceValue--
		return fmt.Errorf("gpu: submit %s: %w", label, err)
	}
	return nil
}

// reap destroys bind groups whose submissions have completed. Polls with a
// zero timeout; values are monotonic so the scan stops at the first entry
// still in flight.
func (cp *ConvertPipelines) reap() {
	n := 0
	for _, r := range cp.retired {
		done, err := cp.device.Wait(cp.fence, r.value, 0)
		if err != nil || !done {
			break
		}
		cp.device.DestroyBindGroup(r.bg)
		n++
	}
	if n > 0 {
		cp.retired = append(cp.retired[:0], cp.retired[n:]...)
	}
}

// PendingSubmissions reports conversion submissions not yet confirmed
// complete.
func (cp *ConvertPipelines) PendingSubmissions() int {
	cp.reap()
	return len(cp.retired)
}

// Reclaim frees the transient resources of completed submissions. Callers
// invoke it once per frame alongside pool retirement.
func (cp *ConvertPipelines) Reclaim() {
	cp.reap()
}

// Destroy drains outstanding submissions and frees all kernel resources.
// Safe to call on a front end that never initialized.
func (cp *ConvertPipelines) Destroy() {
	if !cp.ready {
		return
	}
	if cp.fenceValue > 0 {
		if ok, err := cp.device.Wait(cp.fence, cp.fenceValue, 5*time.Second); err != nil || !ok {
			cp.logger.Warn("conversion drain timed out", "pending", len(cp.retired), "err", err)
		}
	}
	for _, r := range cp.retired {
		cp.device.DestroyBindGroup(r.bg)
	}
	cp.retired = nil
	cp.device.DestroyFence(cp.fence)
	cp.fence = nil
	cp.vertexKernel.destroy(cp.device)
	cp.indexKernel.destroy(cp.device)
	cp.ready = false
}

func structToBytes(ptr unsafe.Pointer, size uintptr) []byte {
	return unsafe.Slice((*byte)(ptr), size) //nolint:gosec // safe struct serialization
}
