package metalangle

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/username0x0a/metalangle/internal/convert"
	"github.com/username0x0a/metalangle/internal/gpu"
)

// sourceKind says where a slot's vertex data comes from at draw time.
type sourceKind uint8

const (
	sourceDefault   sourceKind = iota // disabled, shader reads the default value
	sourceBuffer                      // direct bind of the application buffer
	sourceConverted                   // bind of a cached converted copy
	sourceClient                      // client memory, streamed per draw
)

// slotState is the resolved native binding for one attribute slot. buf,
// offset, stride and format are what draw setup binds; src and srcRev
// identify the data they were derived from for change detection, without
// comparing backend handles.
type slotState struct {
	kind    sourceKind
	buf     hal.Buffer
	offset  uint64
	stride  uint32
	format  gputypes.VertexFormat
	base    BaseKind
	divisor uint32

	src    *Buffer
	srcRev uint64

	// Conversion request parameters, retained on converted slots so draw
	// setup can redo the conversion when the source revision moves without
	// the slot being flagged dirty.
	convFmt    VertexFormatID
	convOff    uint64
	convStride uint32

	// needsResync marks a slot whose binding is not valid for drawing:
	// either its last sync failed, or it sources client memory not yet
	// streamed for the coming draw.
	needsResync bool

	clientData   []byte
	clientFmt    VertexFormatID
	clientRelOff uint32
	clientStride uint32
}

// same reports whether two resolved slots produce the same native binding.
// Buffer identity goes through src and srcRev: a conversion result changes
// revision when it is redone, a direct bind is revision-independent.
func (s *slotState) same(o *slotState) bool {
	return s.kind == o.kind &&
		s.src == o.src &&
		s.srcRev == o.srcRev &&
		s.offset == o.offset &&
		s.stride == o.stride &&
		s.format == o.format &&
		s.base == o.base &&
		s.divisor == o.divisor
}

func defaultSlot(base BaseKind) slotState {
	return slotState{kind: sourceDefault, base: base}
}

// effectiveStride resolves the packed-data convention: stride zero means
// elements are tightly packed at the format's size.
func effectiveStride(stride uint32, info *FormatInfo) uint32 {
	if stride == 0 {
		return uint32(info.ByteSize())
	}
	return stride
}

// VertexArray translates portable vertex attribute state into native
// bindings. SyncState folds in dirty portable state, converting or
// restreaming data the backend cannot fetch directly; SetupDraw publishes
// the result. Confined to the owning context's thread.
type VertexArray struct {
	ctx   *Context
	slots [MaxVertexAttribs]slotState

	// dirty means the native descriptor no longer matches the slots and
	// the next SetupDraw must rebuild and rebind.
	dirty bool

	desc VertexDescriptor
}

// NewVertexArray creates a vertex array with every slot disabled. A full
// SyncState with DirtyAll is required before the first draw.
func NewVertexArray(ctx *Context) (*VertexArray, error) {
	if ctx == nil || ctx.destroyed {
		return nil, ErrContextDestroyed
	}
	va := &VertexArray{ctx: ctx, dirty: true}
	for i := range va.slots {
		va.slots[i] = defaultSlot(BaseFloat)
		va.slots[i].needsResync = true
	}
	return va, nil
}

// SyncState resolves the slots named by dirty against the portable
// attribute and binding tables. Slots outside dirty keep their resolved
// state. attribs and bindings may be shorter than MaxVertexAttribs;
// missing entries resolve as disabled.
//
// On error the failing slot and any dirty slots after it stay marked for
// resync, and SetupDraw refuses to draw until a later SyncState resolves
// them. Slots synced before the failure keep their new state.
func (va *VertexArray) SyncState(attribs []AttribDesc, bindings []BindingDesc, dirty DirtyBits) error {
	for i := 0; i < MaxVertexAttribs; i++ {
		if dirty.touches(i) {
			va.slots[i].needsResync = true
		}
	}
	for i := 0; i < MaxVertexAttribs; i++ {
		if !va.slots[i].needsResync {
			continue
		}
		newSlot, err := va.resolveSlot(i, attribs, bindings)
		if err != nil {
			return fmt.Errorf("sync attribute %d: %w", i, err)
		}
		if !newSlot.same(&va.slots[i]) {
			va.dirty = true
		}
		va.slots[i] = newSlot
	}
	return nil
}

// resolveSlot computes the native binding for slot i. It does not modify
// the vertex array; the caller installs the result only on success.
func (va *VertexArray) resolveSlot(i int, attribs []AttribDesc, bindings []BindingDesc) (slotState, error) {
	if i >= len(attribs) {
		return defaultSlot(BaseFloat), nil
	}
	a := &attribs[i]
	if !a.Enabled {
		base := BaseFloat
		if info := FormatByID(a.Format); info != nil {
			base = info.Base()
		}
		return defaultSlot(base), nil
	}
	info := FormatByID(a.Format)
	if info == nil {
		return slotState{}, fmt.Errorf("%w: format id %d", ErrUnsupportedFormat, a.Format)
	}
	if a.Binding < 0 || a.Binding >= len(bindings) {
		return defaultSlot(info.Base()), nil
	}
	b := &bindings[a.Binding]
	switch {
	case b.Buffer != nil:
		return va.resolveBufferSlot(i, a, b, info)
	case b.ClientData != nil:
		return slotState{
			kind:         sourceClient,
			base:         info.Base(),
			divisor:      b.Divisor,
			needsResync:  true,
			clientData:   b.ClientData,
			clientFmt:    a.Format,
			clientRelOff: a.RelativeOffset,
			clientStride: effectiveStride(b.Stride, info),
		}, nil
	default:
		return defaultSlot(info.Base()), nil
	}
}

// resolveBufferSlot binds the application buffer directly when the backend
// can fetch the data as stored, and otherwise routes through the
// conversion cache. Direct fetch needs a native format, 4-byte aligned
// offset and stride, a stride covering the element, and at least one
// element in range.
func (va *VertexArray) resolveBufferSlot(i int, a *AttribDesc, b *BindingDesc, info *FormatInfo) (slotState, error) {
	src := b.Buffer
	elem := uint32(info.ByteSize())
	stride := effectiveStride(b.Stride, info)
	srcOff := b.Offset + uint64(a.RelativeOffset)

	native, ok := va.ctx.caps.NativeVertexFormat(info.ID)
	if ok && stride%4 == 0 && srcOff%4 == 0 && stride >= elem &&
		uint64(elem) <= src.Size() && srcOff <= src.Size()-uint64(elem) {
		return slotState{
			kind:    sourceBuffer,
			buf:     src.Native(),
			offset:  srcOff,
			stride:  stride,
			format:  native,
			base:    info.Base(),
			divisor: b.Divisor,
			src:     src,
		}, nil
	}
	return va.convertVertexBuffer(i, src, info, srcOff, stride, b.Divisor)
}

// convertVertexBuffer produces a binding onto converted data, reusing the
// source buffer's cached conversion when its revision and parameters still
// match. Conversion always covers offset-modulo-stride through the end of
// the buffer, so one cached copy serves every draw offset that differs
// from the cached one by whole strides.
func (va *VertexArray) convertVertexBuffer(slot int, src *Buffer, info *FormatInfo, srcOff uint64, srcStride uint32, divisor uint32) (slotState, error) {
	conv, err := va.ctx.caps.Conversion(info.ID)
	if err != nil {
		return slotState{}, err
	}
	elem := uint64(info.ByteSize())
	residue := srcOff % uint64(srcStride)

	if src.Size() < residue+elem {
		// Not one whole element in range. Any valid binding works; every
		// fetch is out of bounds and reads zeros under robust access.
		return slotState{
			kind:    sourceBuffer,
			buf:     src.Native(),
			offset:  0,
			stride:  16,
			format:  conv.Native,
			base:    info.Base(),
			divisor: divisor,
			src:     src,
		}, nil
	}
	count := 1 + (src.Size()-residue-elem)/uint64(srcStride)
	rev := src.Revision()

	cached := src.vertexCache(slot)
	if !cached.valid || cached.revision != rev || cached.format != info.ID ||
		cached.offset != residue || cached.stride != srcStride {
		fresh, err := va.convertToPool(src, info, conv, residue, srcStride, count)
		if err != nil {
			return slotState{}, err
		}
		src.storeVertexCache(slot, vertexConvEntry{
			valid:    true,
			revision: rev,
			format:   info.ID,
			offset:   residue,
			stride:   srcStride,
			out:      fresh,
		})
		cached = src.vertexCache(slot)
	}

	out := &cached.out
	delta := (srcOff - residue) / uint64(srcStride)
	return slotState{
		kind:       sourceConverted,
		buf:        out.alloc.Buf,
		offset:     out.alloc.Offset + delta*uint64(out.stride),
		stride:     out.stride,
		format:     out.format,
		base:       info.Base(),
		divisor:    divisor,
		src:        src,
		srcRev:     rev,
		convFmt:    info.ID,
		convOff:    srcOff,
		convStride: srcStride,
	}, nil
}

// refreshConvertedSlots catches source mutations that arrive without a
// dirty bit: a converted slot whose source revision moved is re-resolved,
// which misses the stale cache entry and reconverts. Draws never read a
// conversion made before the mutation.
func (va *VertexArray) refreshConvertedSlots() error {
	for i := range va.slots {
		s := &va.slots[i]
		if s.kind != sourceConverted || s.srcRev == s.src.Revision() {
			continue
		}
		newSlot, err := va.convertVertexBuffer(i, s.src, FormatByID(s.convFmt), s.convOff, s.convStride, s.divisor)
		if err != nil {
			return fmt.Errorf("refresh attribute %d: %w", i, err)
		}
		if !newSlot.same(s) {
			va.dirty = true
		}
		va.slots[i] = newSlot
	}
	return nil
}

// convertToPool runs one conversion into a pinned pool region. The GPU
// kernel handles large normalized-to-float workloads; everything else, and
// any GPU failure, goes through the CPU converter against the shadow copy.
// Both paths produce identical bytes.
func (va *VertexArray) convertToPool(src *Buffer, info *FormatInfo, conv Conversion, residue uint64, srcStride uint32, count uint64) (convertedBuffer, error) {
	outSize := count * uint64(conv.Stride)
	alloc, err := va.ctx.vertexPool.AllocatePinned(outSize)
	if err != nil {
		return convertedBuffer{}, fmt.Errorf("%w: conversion output of %d bytes: %v", ErrResource, outSize, err)
	}
	out := convertedBuffer{alloc: alloc, target: conv.Target, format: conv.Native, stride: conv.Stride}

	if va.gpuConvertEligible(info, conv, residue, srcStride, count) {
		params := gpu.VertexConvertParams{
			Count:     uint32(count),
			SrcOffset: uint32(residue),
			SrcStride: srcStride,
			CompCount: uint32(info.Layout.Count),
			CompBits:  uint32(info.Layout.Scalar.Size()) * 8,
			Signed:    info.Layout.Scalar.SignedInt(),
			DstWords:  conv.Stride / 4,
		}
		err := va.ctx.convert.ConvertVertexToFloat(va.ctx.vertexPool, src.Native(), src.Size(), params, alloc)
		if err == nil {
			Logger().Debug("converted vertex data on gpu",
				"format", info.Name, "count", count, "stride", srcStride)
			return out, nil
		}
		Logger().Warn("gpu vertex conversion failed, converting on cpu", "format", info.Name, "err", err)
	}

	tmp := make([]byte, outSize)
	target := FormatByID(conv.Target)
	if err := convert.ConvertVertexStream(tmp, target.Layout, int(conv.Stride),
		src.Contents()[residue:], info.Layout, int(srcStride), int(count)); err != nil {
		va.ctx.vertexPool.ReleasePinned(alloc)
		return convertedBuffer{}, fmt.Errorf("convert %s: %w", info.Name, err)
	}
	va.ctx.queue.WriteBuffer(alloc.Buf, alloc.Offset, tmp)
	Logger().Debug("converted vertex data on cpu",
		"format", info.Name, "count", count, "stride", srcStride)
	return out, nil
}

// gpuConvertEligible gates the compute path: enabled by configuration,
// a normalized source converting to float, a workload past the CPU
// threshold, and byte offsets the word-addressed kernel can extract.
func (va *VertexArray) gpuConvertEligible(info *FormatInfo, conv Conversion, residue uint64, srcStride uint32, count uint64) bool {
	if !va.ctx.cfg.gpuConversion || !info.Layout.Normalized {
		return false
	}
	if target := FormatByID(conv.Target); target.Layout.Scalar != convert.Float32 {
		return false
	}
	if count*uint64(srcStride) < uint64(va.ctx.cfg.cpuConvertThreshold) {
		return false
	}
	if info.Layout.Scalar.Size() == 2 && (residue%2 != 0 || srcStride%2 != 0) {
		return false
	}
	return true
}

// UpdateClientAttribs streams client-memory attribute data for one draw.
// It must run after SyncState and before every draw whose vertex array
// holds client-sourced slots: the data lands in ring memory that retires
// with the frame, so each draw streams its own copy.
//
// firstVertex and vertexOrIndexCount delimit the vertex range the draw
// reads; for indexed draws the caller passes the index span's bounds.
// instanceCount sizes instanced slots, whose element count advances once
// every divisor instances.
func (va *VertexArray) UpdateClientAttribs(firstVertex, vertexOrIndexCount, instanceCount int) error {
	for i := range va.slots {
		if va.slots[i].kind != sourceClient {
			continue
		}
		if err := va.streamClientSlot(&va.slots[i], firstVertex, vertexOrIndexCount, instanceCount); err != nil {
			return fmt.Errorf("stream client attribute %d: %w", i, err)
		}
		va.dirty = true
	}
	return nil
}

func (va *VertexArray) streamClientSlot(s *slotState, firstVertex, vertexOrIndexCount, instanceCount int) error {
	info := FormatByID(s.clientFmt)
	elem := info.ByteSize()
	stride := int(s.clientStride)

	start, count := firstVertex, vertexOrIndexCount
	if s.divisor > 0 {
		start = 0
		count = (instanceCount + int(s.divisor) - 1) / int(s.divisor)
	}
	if count < 1 {
		count = 1
	}

	// The binding's offset addresses element zero, so the streamed copy
	// spans elements [0, start+count) and fetches of [start, start+count)
	// land on their own bytes. A start-relative copy would need a negative
	// binding offset, which the backend cannot express.
	total := start + count
	relOff := int(s.clientRelOff)
	needed := relOff + (total-1)*stride + elem
	if len(s.clientData) < needed {
		return fmt.Errorf("%w: have %d bytes, draw reads %d", ErrClientData, len(s.clientData), needed)
	}

	native, ok := va.ctx.caps.NativeVertexFormat(info.ID)
	if ok && stride%4 == 0 && relOff%4 == 0 && stride >= elem {
		alloc, err := va.ctx.vertexPool.Upload(s.clientData[:needed], 4)
		if err != nil {
			return fmt.Errorf("%w: stream %d bytes: %v", ErrResource, needed, err)
		}
		s.buf = alloc.Buf
		s.offset = alloc.Offset + uint64(relOff)
		s.stride = uint32(stride)
		s.format = native
		s.needsResync = false
		return nil
	}

	conv, err := va.ctx.caps.Conversion(info.ID)
	if err != nil {
		return err
	}
	outSize := uint64(total) * uint64(conv.Stride)
	alloc, err := va.ctx.vertexPool.Allocate(outSize, 4)
	if err != nil {
		return fmt.Errorf("%w: stream %d bytes: %v", ErrResource, outSize, err)
	}
	tmp := make([]byte, outSize)
	target := FormatByID(conv.Target)
	if err := convert.ConvertVertexStream(tmp, target.Layout, int(conv.Stride),
		s.clientData[relOff:], info.Layout, stride, total); err != nil {
		return fmt.Errorf("convert %s: %w", info.Name, err)
	}
	va.ctx.queue.WriteBuffer(alloc.Buf, alloc.Offset, tmp)
	s.buf = alloc.Buf
	s.offset = alloc.Offset
	s.stride = conv.Stride
	s.format = conv.Native
	s.needsResync = false
	return nil
}

// DefaultValues returns the constant each slot supplies to the shader when
// it is disabled: the zero vector of the slot's base kind. The host feeds
// these to its pipeline's default-attribute block.
func (va *VertexArray) DefaultValues() [MaxVertexAttribs]DefaultValue {
	var out [MaxVertexAttribs]DefaultValue
	for i := range va.slots {
		out[i] = DefaultValue{Kind: va.slots[i].base}
	}
	return out
}

// Reset returns every slot to the disabled state and forces a full resync
// before the next draw. Conversion caches are untouched; they belong to
// the source Buffers.
func (va *VertexArray) Reset() {
	for i := range va.slots {
		va.slots[i] = defaultSlot(BaseFloat)
		va.slots[i].needsResync = true
	}
	va.dirty = true
	va.desc = VertexDescriptor{}
}

// Destroy releases the vertex array's state. It owns no device resources;
// converted data lives in the source Buffers' caches and ring memory
// retires with the frame.
func (va *VertexArray) Destroy() {
	va.Reset()
	va.ctx = nil
}
