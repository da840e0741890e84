package metalangle

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/username0x0a/metalangle/internal/convert"
	"github.com/username0x0a/metalangle/internal/gpu"
)

// IndexBinding is the resolved index data for one indexed draw: the device
// buffer and offset to bind, and the kind the indices have after
// resolution, which is wider than the portable kind when widening ran.
type IndexBinding struct {
	Buf    hal.Buffer
	Offset uint64
	Kind   IndexKind
	Format gputypes.IndexFormat
}

// Bind sets the resolved index buffer on a render pass encoder.
func (ib *IndexBinding) Bind(rp hal.RenderPassEncoder) {
	rp.SetIndexBuffer(ib.Buf, ib.Format, ib.Offset)
}

// GetIndexBuffer resolves index data for a draw of indexCount indices.
// Exactly one of buffer and clientData supplies the data; offset is the
// byte offset into buffer and is ignored for client data.
//
// Natively indexable data in a buffer at an aligned offset passes through
// unconverted. 8-bit indices widen to 16 bits, misaligned 16/32-bit
// buffer data restreams to an aligned copy; both results are cached on the
// source buffer, keyed by kind and offset, and reused until its contents
// change. Client data streams into ring memory on every call, widening
// 8-bit values on the way.
//
// The caller reads the binding's Kind rather than assuming the portable
// kind: index values survive resolution exactly, their width may not.
func (c *Context) GetIndexBuffer(kind IndexKind, indexCount int, buffer *Buffer, offset uint64, clientData []byte) (IndexBinding, error) {
	if c.destroyed {
		return IndexBinding{}, ErrContextDestroyed
	}
	if indexCount <= 0 {
		return IndexBinding{}, fmt.Errorf("metalangle: non-positive index count %d", indexCount)
	}
	if buffer != nil {
		return c.bufferIndexBinding(kind, buffer, offset)
	}
	return c.clientIndexBinding(kind, indexCount, clientData)
}

// clientIndexBinding streams client-memory indices into ring memory,
// widening 8-bit values to the narrowest indexable width.
func (c *Context) clientIndexBinding(kind IndexKind, count int, data []byte) (IndexBinding, error) {
	widened, err := c.caps.IndexWidening(kind)
	if err != nil {
		return IndexBinding{}, err
	}
	format, _ := c.caps.NativeIndexFormat(widened)
	srcWidth := kind.ByteSize()
	need := count * srcWidth
	if len(data) < need {
		return IndexBinding{}, fmt.Errorf("%w: have %d index bytes, draw reads %d", ErrClientData, len(data), need)
	}

	if widened == kind {
		alloc, err := c.indexPool.Upload(data[:need], 4)
		if err != nil {
			return IndexBinding{}, fmt.Errorf("%w: stream %d index bytes: %v", ErrResource, need, err)
		}
		return IndexBinding{Buf: alloc.Buf, Offset: alloc.Offset, Kind: kind, Format: format}, nil
	}

	dstWidth := widened.ByteSize()
	out := make([]byte, count*dstWidth)
	if err := convert.WidenIndexStream(out, dstWidth, data[:need], srcWidth, count); err != nil {
		return IndexBinding{}, fmt.Errorf("widen %s indices: %w", kind, err)
	}
	alloc, err := c.indexPool.Upload(out, 4)
	if err != nil {
		return IndexBinding{}, fmt.Errorf("%w: stream %d index bytes: %v", ErrResource, len(out), err)
	}
	return IndexBinding{Buf: alloc.Buf, Offset: alloc.Offset, Kind: widened, Format: format}, nil
}

// bufferIndexBinding resolves buffer-held indices: a direct bind when the
// backend indexes the kind at the offset, otherwise a cached conversion
// covering offset through the end of the buffer, so one copy serves every
// draw count at that offset.
func (c *Context) bufferIndexBinding(kind IndexKind, src *Buffer, offset uint64) (IndexBinding, error) {
	widened, err := c.caps.IndexWidening(kind)
	if err != nil {
		return IndexBinding{}, err
	}
	format, _ := c.caps.NativeIndexFormat(widened)
	srcWidth := uint64(kind.ByteSize())

	if widened == kind && offset%srcWidth == 0 {
		if offset > src.Size() {
			return IndexBinding{}, fmt.Errorf("%w: index offset %d past %d-byte buffer",
				ErrBufferSize, offset, src.Size())
		}
		return IndexBinding{Buf: src.Native(), Offset: offset, Kind: kind, Format: format}, nil
	}

	key := indexConvKey{kind: kind, offset: offset}
	if e, ok := src.indexCache(key); ok {
		return IndexBinding{Buf: e.alloc.Buf, Offset: e.alloc.Offset, Kind: e.kind, Format: format}, nil
	}
	if offset > src.Size() || src.Size()-offset < srcWidth {
		return IndexBinding{}, fmt.Errorf("%w: no index data at offset %d in %d-byte buffer",
			ErrBufferSize, offset, src.Size())
	}

	count := int((src.Size() - offset) / srcWidth)
	dstWidth := widened.ByteSize()
	alloc, err := c.indexPool.AllocatePinned(uint64(count * dstWidth))
	if err != nil {
		return IndexBinding{}, fmt.Errorf("%w: index conversion output of %d bytes: %v",
			ErrResource, count*dstWidth, err)
	}

	if c.gpuWidenEligible(kind, count) {
		params := gpu.IndexWidenParams{
			Count:     uint32(count),
			SrcOffset: uint32(offset),
			SrcWidth:  uint32(srcWidth),
			DstWidth:  uint32(dstWidth),
		}
		werr := c.convert.WidenIndices(c.indexPool, src.Native(), src.Size(), params, alloc)
		if werr == nil {
			Logger().Debug("widened index data on gpu", "kind", kind, "count", count)
			src.storeIndexCache(key, &indexConvEntry{revision: src.Revision(), kind: widened, alloc: alloc})
			return IndexBinding{Buf: alloc.Buf, Offset: alloc.Offset, Kind: widened, Format: format}, nil
		}
		Logger().Warn("gpu index widening failed, widening on cpu", "kind", kind, "err", werr)
	}

	out := make([]byte, count*dstWidth)
	shadow := src.Contents()[offset:]
	if widened == kind {
		err = convert.StreamIndexBytes(out, shadow, int(srcWidth), count)
	} else {
		err = convert.WidenIndexStream(out, dstWidth, shadow, int(srcWidth), count)
	}
	if err != nil {
		c.indexPool.ReleasePinned(alloc)
		return IndexBinding{}, fmt.Errorf("restream %s indices: %w", kind, err)
	}
	c.queue.WriteBuffer(alloc.Buf, alloc.Offset, out)
	Logger().Debug("restreamed index data on cpu", "kind", kind, "count", count)

	src.storeIndexCache(key, &indexConvEntry{revision: src.Revision(), kind: widened, alloc: alloc})
	return IndexBinding{Buf: alloc.Buf, Offset: alloc.Offset, Kind: widened, Format: format}, nil
}

// gpuWidenEligible gates the compute widening path. The kernel extracts
// 8-bit values at any byte offset; 16-bit extraction would need even
// offsets, and 16/32-bit conversions are plain repacks the CPU does as
// fast, so only 8-bit widening dispatches.
func (c *Context) gpuWidenEligible(kind IndexKind, count int) bool {
	return c.cfg.gpuConversion &&
		kind == IndexUint8 &&
		count*kind.ByteSize() >= c.cfg.cpuConvertThreshold
}
