package metalangle

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// OffsetStride packs one slot's draw-time byte offset and stride. Disabled
// slots hold the zero value, so the whole table hashes and compares as
// part of a pipeline key without masking.
type OffsetStride struct {
	Offset uint32
	Stride uint32
}

// VertexDescriptor is the native vertex fetch description SetupDraw keeps
// in step with the slot state: one buffer layout per slot for pipeline
// creation, plus the packed offset and stride table. Disabled slots are
// zeroed in both.
type VertexDescriptor struct {
	Layouts           [MaxVertexAttribs]gputypes.VertexBufferLayout
	OffsetsAndStrides [MaxVertexAttribs]OffsetStride
}

// Equal reports whether two descriptors describe the same fetch state,
// including per-slot offsets and strides.
func (d *VertexDescriptor) Equal(o *VertexDescriptor) bool {
	for i := range d.Layouts {
		if d.OffsetsAndStrides[i] != o.OffsetsAndStrides[i] {
			return false
		}
		a, b := &d.Layouts[i], &o.Layouts[i]
		if a.ArrayStride != b.ArrayStride || a.StepMode != b.StepMode ||
			len(a.Attributes) != len(b.Attributes) {
			return false
		}
		for j := range a.Attributes {
			if a.Attributes[j] != b.Attributes[j] {
				return false
			}
		}
	}
	return true
}

// SetupDraw publishes the synced vertex state for one draw: it rebuilds
// the native descriptor if anything changed since the last draw and binds
// every live slot's buffer on rp. The returned flag tells the caller
// whether the descriptor changed, which usually means a pipeline lookup;
// forceRefresh requests a rebind even without changes, for a new encoder
// whose binding state starts empty.
//
// rp may be nil to assemble the descriptor without binding, for building
// pipelines ahead of a draw.
//
// The returned descriptor aliases the vertex array's own state; it is
// valid until the next SetupDraw and must not be modified.
func (va *VertexArray) SetupDraw(rp hal.RenderPassEncoder, forceRefresh bool) (bool, *VertexDescriptor, error) {
	for i := range va.slots {
		if va.slots[i].needsResync {
			return false, nil, fmt.Errorf("%w: slot %d", ErrStaleState, i)
		}
	}
	if err := va.refreshConvertedSlots(); err != nil {
		return false, nil, err
	}
	if !va.dirty && !forceRefresh {
		return false, &va.desc, nil
	}

	for i := range va.slots {
		s := &va.slots[i]
		if s.kind == sourceDefault {
			va.desc.Layouts[i] = gputypes.VertexBufferLayout{}
			va.desc.OffsetsAndStrides[i] = OffsetStride{}
			continue
		}
		step := gputypes.VertexStepModeVertex
		if s.divisor > 0 {
			step = gputypes.VertexStepModeInstance
		}
		va.desc.Layouts[i] = gputypes.VertexBufferLayout{
			ArrayStride: uint64(s.stride),
			StepMode:    step,
			Attributes: []gputypes.VertexAttribute{{
				ShaderLocation: uint32(i),
				Format:         s.format,
				Offset:         0,
			}},
		}
		va.desc.OffsetsAndStrides[i] = OffsetStride{Offset: uint32(s.offset), Stride: s.stride}
		if rp != nil {
			rp.SetVertexBuffer(uint32(i), s.buf, s.offset)
		}
	}

	changed := va.dirty
	va.dirty = false
	return changed || forceRefresh, &va.desc, nil
}
