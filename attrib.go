package metalangle

// MaxVertexAttribs is the fixed number of vertex attribute slots. Slot
// indices are stable for the lifetime of a VertexArray.
const MaxVertexAttribs = 16

// AttribDesc describes one portable vertex attribute slot as declared by
// the caller's state tracking.
type AttribDesc struct {
	// Enabled selects between array-sourced data and the default value.
	Enabled bool

	// Format identifies the element layout in the backing store.
	Format VertexFormatID

	// RelativeOffset is the byte offset of this attribute within one
	// element of its binding.
	RelativeOffset uint32

	// Binding indexes the bindings slice passed to SyncState.
	Binding int
}

// BindingDesc describes one vertex buffer binding. Exactly one of Buffer
// and ClientData should be set for an enabled attribute; a binding with
// neither resolves to the default value.
type BindingDesc struct {
	// Buffer is the device buffer backing this binding, or nil.
	Buffer *Buffer

	// ClientData is client-memory attribute data. It is streamed into
	// device memory at draw time, once the draw's vertex and instance
	// counts are known.
	ClientData []byte

	// Offset is the base byte offset into Buffer.
	Offset uint64

	// Stride is the distance in bytes between consecutive elements.
	// Zero means tightly packed at the format's element size.
	Stride uint32

	// Divisor is the instancing rate: 0 steps per vertex, N steps once
	// every N instances.
	Divisor uint32
}

// DirtyBits names the attribute and binding slots that need
// resynchronization. Attribute and binding bits occupy distinct ranges so
// a slot's format change and its backing-store change stay independently
// addressable, matching the split dirty notifications of the portable
// state tracker.
type DirtyBits uint64

const (
	dirtyAttribShift  = 0
	dirtyBindingShift = MaxVertexAttribs

	dirtyAttribMask  DirtyBits = (1<<MaxVertexAttribs - 1) << dirtyAttribShift
	dirtyBindingMask DirtyBits = (1<<MaxVertexAttribs - 1) << dirtyBindingShift
)

// DirtyAttrib returns the bit marking attribute slot i.
func DirtyAttrib(i int) DirtyBits {
	return 1 << (dirtyAttribShift + DirtyBits(i))
}

// DirtyBinding returns the bit marking binding slot i.
func DirtyBinding(i int) DirtyBits {
	return 1 << (dirtyBindingShift + DirtyBits(i))
}

// DirtyAll marks every attribute and binding slot. A full resync with
// DirtyAll is required before the first draw and after Reset.
func DirtyAll() DirtyBits {
	return dirtyAttribMask | dirtyBindingMask
}

func (d DirtyBits) attrib(i int) bool {
	return d&DirtyAttrib(i) != 0
}

func (d DirtyBits) binding(i int) bool {
	return d&DirtyBinding(i) != 0
}

// touches reports whether slot i needs any resynchronization.
func (d DirtyBits) touches(i int) bool {
	return d.attrib(i) || d.binding(i)
}

// Empty reports whether no slot is marked.
func (d DirtyBits) Empty() bool { return d == 0 }
