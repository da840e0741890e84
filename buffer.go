package metalangle

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/username0x0a/metalangle/internal/gpu"
)

// bufferUsage covers every way the translation layer touches buffer data:
// vertex and index fetch, storage reads by the conversion kernels, and
// queue uploads.
const bufferUsage = gputypes.BufferUsageVertex |
	gputypes.BufferUsageIndex |
	gputypes.BufferUsageStorage |
	gputypes.BufferUsageCopyDst

// Buffer is a fixed-size device buffer with a CPU shadow of its contents
// and the conversion caches derived from it. The shadow keeps the CPU
// conversion path available for any region at any time; the caches keep
// converted copies alive across draws until the source bytes change.
//
// Buffers do not resize. Replacing the data store wholesale goes through
// SetData with a slice of exactly the original size; a different size
// needs a new Buffer.
type Buffer struct {
	ctx      *Context
	buf      hal.Buffer
	size     uint64
	shadow   []byte
	revision uint64

	vertexConv [MaxVertexAttribs]vertexConvEntry
	indexConv  map[indexConvKey]*indexConvEntry

	destroyed bool
}

// vertexConvEntry caches one slot's converted vertex data. It is valid only
// while the source revision and the conversion parameters it was produced
// under still match.
type vertexConvEntry struct {
	valid    bool
	revision uint64
	format   VertexFormatID
	offset   uint64 // source offset modulo stride
	stride   uint32 // source stride
	out      convertedBuffer
}

// convertedBuffer is the device-visible result of a vertex conversion:
// a pinned pool region plus the layout the backend reads it with.
type convertedBuffer struct {
	alloc  gpu.StreamAlloc
	target VertexFormatID
	format gputypes.VertexFormat
	stride uint32
}

// indexConvKey identifies one cached index conversion. Distinct draw
// offsets convert separately because each output covers its offset through
// the end of the source buffer.
type indexConvKey struct {
	kind   IndexKind
	offset uint64
}

// indexConvEntry caches one widened or restreamed index range.
type indexConvEntry struct {
	revision uint64
	kind     IndexKind // kind the output indexes with
	alloc    gpu.StreamAlloc
}

// NewBuffer creates a buffer of the given size with zeroed contents.
func NewBuffer(ctx *Context, size uint64) (*Buffer, error) {
	if ctx == nil || ctx.destroyed {
		return nil, ErrContextDestroyed
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-size buffer", ErrBufferSize)
	}
	buf, err := ctx.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "vertex_data",
		Size:  size,
		Usage: bufferUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create %d-byte buffer: %v", ErrResource, size, err)
	}
	return &Buffer{
		ctx:      ctx,
		buf:      buf,
		size:     size,
		shadow:   make([]byte, size),
		revision: 1,
	}, nil
}

// SetData replaces the whole data store. len(data) must equal Size.
func (b *Buffer) SetData(data []byte) error {
	if b.destroyed {
		return ErrContextDestroyed
	}
	if uint64(len(data)) != b.size {
		return fmt.Errorf("%w: got %d bytes, buffer holds %d", ErrBufferSize, len(data), b.size)
	}
	b.ctx.queue.WriteBuffer(b.buf, 0, data)
	copy(b.shadow, data)
	b.revision++
	return nil
}

// SetSubData replaces size bytes starting at offset.
func (b *Buffer) SetSubData(offset uint64, data []byte) error {
	if b.destroyed {
		return ErrContextDestroyed
	}
	if len(data) == 0 {
		return nil
	}
	if offset > b.size || uint64(len(data)) > b.size-offset {
		return fmt.Errorf("%w: range [%d, %d) exceeds %d-byte buffer",
			ErrBufferSize, offset, offset+uint64(len(data)), b.size)
	}
	b.ctx.queue.WriteBuffer(b.buf, offset, data)
	copy(b.shadow[offset:], data)
	b.revision++
	return nil
}

// MarkMutated invalidates all conversion caches without changing the
// shadow. Callers that write the device buffer directly must invoke it, or
// draws keep reading stale converted data. Such external writes also leave
// the shadow behind the device contents, so conversions of externally
// written regions are undefined until the next SetData or SetSubData.
func (b *Buffer) MarkMutated() {
	b.revision++
}

// Native returns the device buffer.
func (b *Buffer) Native() hal.Buffer { return b.buf }

// Contents returns the CPU shadow. Callers must not modify it.
func (b *Buffer) Contents() []byte { return b.shadow }

// Size returns the fixed byte size.
func (b *Buffer) Size() uint64 { return b.size }

// Revision returns the content revision token. It changes on every data
// upload and MarkMutated call; cached conversions are valid only for the
// revision they were produced under.
func (b *Buffer) Revision() uint64 { return b.revision }

// vertexCache returns the conversion cache entry for an attribute slot.
func (b *Buffer) vertexCache(slot int) *vertexConvEntry {
	return &b.vertexConv[slot]
}

// storeVertexCache installs a fresh conversion result for a slot, releasing
// the pin on the result it replaces.
func (b *Buffer) storeVertexCache(slot int, e vertexConvEntry) {
	if old := &b.vertexConv[slot]; old.valid {
		b.ctx.vertexPool.ReleasePinned(old.out.alloc)
	}
	b.vertexConv[slot] = e
}

// indexCache returns the cached conversion for key if it is still valid
// for the current revision.
func (b *Buffer) indexCache(key indexConvKey) (*indexConvEntry, bool) {
	e, ok := b.indexConv[key]
	if !ok || e.revision != b.revision {
		return nil, false
	}
	return e, true
}

// storeIndexCache installs a fresh index conversion for key, releasing the
// pin on any entry it replaces.
func (b *Buffer) storeIndexCache(key indexConvKey, e *indexConvEntry) {
	if b.indexConv == nil {
		b.indexConv = make(map[indexConvKey]*indexConvEntry)
	}
	if old, ok := b.indexConv[key]; ok {
		b.ctx.indexPool.ReleasePinned(old.alloc)
	}
	b.indexConv[key] = e
}

// Destroy releases the device buffer and every pinned conversion result.
// Idempotent. The caller must ensure the GPU is done with the buffer and
// with draws that bound its converted copies.
func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	for i := range b.vertexConv {
		if b.vertexConv[i].valid {
			b.ctx.vertexPool.ReleasePinned(b.vertexConv[i].out.alloc)
			b.vertexConv[i] = vertexConvEntry{}
		}
	}
	for key, e := range b.indexConv {
		b.ctx.indexPool.ReleasePinned(e.alloc)
		delete(b.indexConv, key)
	}
	b.ctx.device.DestroyBuffer(b.buf)
	b.buf = nil
}
