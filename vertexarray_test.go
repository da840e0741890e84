package metalangle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

func putF32(b []byte, i int, f float32) {
	binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
}

func floatBytes(vals ...float32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		putF32(out, i, v)
	}
	return out
}

func TestSyncStateDirectBind(t *testing.T) {
	ctx, _, _, cleanup := newTestContext(t)
	defer cleanup()

	b, err := NewBuffer(ctx, 32)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	defer b.Destroy()

	va, err := NewVertexArray(ctx)
	if err != nil {
		t.Fatalf("NewVertexArray failed: %v", err)
	}
	attribs := []AttribDesc{{Enabled: true, Format: FormatFloat32x2, RelativeOffset: 4, Binding: 0}}
	bindings := []BindingDesc{{Buffer: b, Offset: 8, Stride: 8}}
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("SyncState failed: %v", err)
	}

	rp := &recordingPass{}
	changed, desc, err := va.SetupDraw(rp, false)
	if err != nil {
		t.Fatalf("SetupDraw failed: %v", err)
	}
	if !changed {
		t.Error("first SetupDraw reported no change")
	}
	l := &desc.Layouts[0]
	if l.ArrayStride != 8 || l.StepMode != gputypes.VertexStepModeVertex {
		t.Errorf("layout = stride %d step %v, want 8/vertex", l.ArrayStride, l.StepMode)
	}
	if len(l.Attributes) != 1 || l.Attributes[0].Format != gputypes.VertexFormatFloat32x2 ||
		l.Attributes[0].ShaderLocation != 0 || l.Attributes[0].Offset != 0 {
		t.Errorf("attributes = %+v, want one float32x2 at location 0 offset 0", l.Attributes)
	}
	if desc.OffsetsAndStrides[0] != (OffsetStride{Offset: 12, Stride: 8}) {
		t.Errorf("offset/stride = %+v, want {12 8}", desc.OffsetsAndStrides[0])
	}
	if len(rp.vertexBinds) != 1 || rp.vertexBinds[0] != (vertexBind{slot: 0, offset: 12}) {
		t.Errorf("binds = %+v, want one bind of slot 0 at offset 12", rp.vertexBinds)
	}
}

func TestSetupDrawIdempotent(t *testing.T) {
	ctx, _, _, cleanup := newTestContext(t)
	defer cleanup()

	b, err := NewBuffer(ctx, 64)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	defer b.Destroy()

	va, _ := NewVertexArray(ctx)
	attribs := []AttribDesc{{Enabled: true, Format: FormatFloat32x4, Binding: 0}}
	bindings := []BindingDesc{{Buffer: b, Stride: 16}}
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("SyncState failed: %v", err)
	}

	_, d1, err := va.SetupDraw(nil, false)
	if err != nil {
		t.Fatalf("SetupDraw failed: %v", err)
	}
	first := *d1

	changed, d2, err := va.SetupDraw(nil, false)
	if err != nil {
		t.Fatalf("second SetupDraw failed: %v", err)
	}
	if changed {
		t.Error("second SetupDraw reported a change with no state updates")
	}
	if !first.Equal(d2) {
		t.Error("descriptor changed between identical draws")
	}

	// Re-syncing identical state must not dirty the descriptor.
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("re-sync failed: %v", err)
	}
	changed, _, err = va.SetupDraw(nil, false)
	if err != nil {
		t.Fatalf("SetupDraw after re-sync failed: %v", err)
	}
	if changed {
		t.Error("identical re-sync reported a change")
	}

	// forceRefresh re-emits even from clean state.
	rp := &recordingPass{}
	changed, _, err = va.SetupDraw(rp, true)
	if err != nil {
		t.Fatalf("forced SetupDraw failed: %v", err)
	}
	if !changed || len(rp.vertexBinds) != 1 {
		t.Errorf("forced refresh: changed=%v binds=%d, want true/1", changed, len(rp.vertexBinds))
	}
}

// The conversion scenario pinned down to bytes: unorm8x3 at stride 3
// expands to float32x4 with alpha 1.0 at stride 16, and the result is
// cached until the source changes.
func TestConvertUnormTripletScenario(t *testing.T) {
	ctx, _, rq, cleanup := newTestContext(t)
	defer cleanup()

	b, err := NewBuffer(ctx, 12)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	defer b.Destroy()
	src := []byte{
		0, 0, 0,
		255, 128, 64,
		255, 255, 255,
		10, 20, 30,
	}
	if err := b.SetData(src); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}

	va, _ := NewVertexArray(ctx)
	attribs := make([]AttribDesc, 3)
	attribs[2] = AttribDesc{Enabled: true, Format: FormatUnorm8x3, Binding: 2}
	bindings := make([]BindingDesc, 3)
	bindings[2] = BindingDesc{Buffer: b, Stride: 3}
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("SyncState failed: %v", err)
	}

	want := floatBytes(
		0, 0, 0, 1,
		1, float32(128)/255, float32(64)/255, 1,
		1, 1, 1, 1,
		float32(10)/255, float32(20)/255, float32(30)/255, 1,
	)
	if got := rq.lastWrite(t); !bytes.Equal(got.data, want) {
		t.Errorf("converted bytes do not match\ngot  %x\nwant %x", got.data, want)
	}

	rp := &recordingPass{}
	changed, desc, err := va.SetupDraw(rp, false)
	if err != nil {
		t.Fatalf("SetupDraw failed: %v", err)
	}
	if !changed {
		t.Error("SetupDraw reported no change after conversion")
	}
	l := &desc.Layouts[2]
	if l.ArrayStride != 16 || l.Attributes[0].Format != gputypes.VertexFormatFloat32x4 {
		t.Errorf("layout = stride %d format %v, want 16/float32x4", l.ArrayStride, l.Attributes[0].Format)
	}
	if desc.OffsetsAndStrides[2].Stride != 16 {
		t.Errorf("packed stride = %d, want 16", desc.OffsetsAndStrides[2].Stride)
	}
	if len(rp.vertexBinds) != 1 || rp.vertexBinds[0].slot != 2 {
		t.Errorf("binds = %+v, want one bind of slot 2", rp.vertexBinds)
	}

	// A second sync with unchanged data is a pure cache hit.
	writes := len(rq.writes)
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("re-sync failed: %v", err)
	}
	if len(rq.writes) != writes {
		t.Errorf("cache hit performed %d new writes", len(rq.writes)-writes)
	}
	if changed, _, _ := va.SetupDraw(nil, false); changed {
		t.Error("cache hit reported a descriptor change")
	}
}

// Mutating the source buffer invalidates its cached conversion even when
// no dirty bits reach the vertex array: the next draw reconverts and its
// output matches a from-scratch conversion of the new bytes.
func TestConversionCacheInvalidation(t *testing.T) {
	ctx, _, rq, cleanup := newTestContext(t)
	defer cleanup()

	b, err := NewBuffer(ctx, 12)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	defer b.Destroy()
	if err := b.SetData(make([]byte, 12)); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}

	va, _ := NewVertexArray(ctx)
	attribs := []AttribDesc{{Enabled: true, Format: FormatUnorm8x3, Binding: 0}}
	bindings := []BindingDesc{{Buffer: b, Stride: 3}}
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("SyncState failed: %v", err)
	}
	if _, _, err := va.SetupDraw(nil, false); err != nil {
		t.Fatalf("SetupDraw failed: %v", err)
	}

	if err := b.SetSubData(0, []byte{100, 100, 100}); err != nil {
		t.Fatalf("SetSubData failed: %v", err)
	}

	changed, _, err := va.SetupDraw(nil, false)
	if err != nil {
		t.Fatalf("SetupDraw after mutation failed: %v", err)
	}
	if !changed {
		t.Error("draw after mutation reported no change")
	}
	c := float32(100) / 255
	wantFirst := floatBytes(c, c, c, 1)
	got := rq.lastWrite(t)
	if len(got.data) != 64 || !bytes.Equal(got.data[:16], wantFirst) {
		t.Errorf("reconverted element 0 = %x, want %x", got.data[:16], wantFirst)
	}
	wantRest := floatBytes(0, 0, 0, 1)
	for e := 1; e < 4; e++ {
		if !bytes.Equal(got.data[e*16:(e+1)*16], wantRest) {
			t.Errorf("element %d = %x, want %x", e, got.data[e*16:(e+1)*16], wantRest)
		}
	}
}

// Natively readable data at a misaligned offset restreams verbatim to an
// aligned copy instead of converting values.
func TestMisalignedNativeRestream(t *testing.T) {
	ctx, _, rq, cleanup := newTestContext(t)
	defer cleanup()

	b, err := NewBuffer(ctx, 28)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	defer b.Destroy()
	src := make([]byte, 28)
	for i := range src {
		src[i] = byte(i)
	}
	if err := b.SetData(src); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}

	va, _ := NewVertexArray(ctx)
	attribs := []AttribDesc{{Enabled: true, Format: FormatFloat32x2, Binding: 0}}
	bindings := []BindingDesc{{Buffer: b, Offset: 2, Stride: 8}}
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("SyncState failed: %v", err)
	}

	// Three whole elements fit between offset 2 and the end; the restream
	// is a contiguous copy because the stride is already tight.
	if got := rq.lastWrite(t); !bytes.Equal(got.data, src[2:26]) {
		t.Errorf("restreamed bytes = %x, want %x", got.data, src[2:26])
	}

	_, desc, err := va.SetupDraw(nil, false)
	if err != nil {
		t.Fatalf("SetupDraw failed: %v", err)
	}
	l := &desc.Layouts[0]
	if l.ArrayStride != 8 || l.Attributes[0].Format != gputypes.VertexFormatFloat32x2 {
		t.Errorf("layout = stride %d format %v, want 8/float32x2", l.ArrayStride, l.Attributes[0].Format)
	}
	if desc.OffsetsAndStrides[0].Offset != 0 {
		t.Errorf("offset = %d, want 0 (start of converted copy)", desc.OffsetsAndStrides[0].Offset)
	}
}

func TestDisabledSlotDefaults(t *testing.T) {
	ctx, _, _, cleanup := newTestContext(t)
	defer cleanup()

	va, _ := NewVertexArray(ctx)
	attribs := []AttribDesc{
		{Enabled: false, Format: FormatInt32x2},
		{Enabled: false, Format: FormatUint8x4},
	}
	if err := va.SyncState(attribs, nil, DirtyAll()); err != nil {
		t.Fatalf("SyncState failed: %v", err)
	}

	rp := &recordingPass{}
	_, desc, err := va.SetupDraw(rp, false)
	if err != nil {
		t.Fatalf("SetupDraw failed: %v", err)
	}
	for i := range desc.Layouts {
		if desc.Layouts[i].ArrayStride != 0 || len(desc.Layouts[i].Attributes) != 0 {
			t.Errorf("slot %d layout not zeroed: %+v", i, desc.Layouts[i])
		}
		if desc.OffsetsAndStrides[i] != (OffsetStride{}) {
			t.Errorf("slot %d offset/stride not zeroed: %+v", i, desc.OffsetsAndStrides[i])
		}
	}
	if len(rp.vertexBinds) != 0 {
		t.Errorf("disabled slots bound buffers: %+v", rp.vertexBinds)
	}

	defaults := va.DefaultValues()
	if defaults[0].Kind != BaseInt {
		t.Errorf("slot 0 default kind = %v, want BaseInt", defaults[0].Kind)
	}
	if defaults[1].Kind != BaseUint {
		t.Errorf("slot 1 default kind = %v, want BaseUint", defaults[1].Kind)
	}
	if defaults[2].Kind != BaseFloat {
		t.Errorf("slot 2 default kind = %v, want BaseFloat", defaults[2].Kind)
	}
	if defaults[0].Float != (f32.Vec4{}) || defaults[0].Int != ([4]int32{}) || defaults[0].Uint != ([4]uint32{}) {
		t.Error("default value is not the zero vector")
	}
}

func TestInstancedStepMode(t *testing.T) {
	ctx, _, _, cleanup := newTestContext(t)
	defer cleanup()

	b, err := NewBuffer(ctx, 64)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	defer b.Destroy()

	va, _ := NewVertexArray(ctx)
	attribs := []AttribDesc{{Enabled: true, Format: FormatFloat32x4, Binding: 0}}
	bindings := []BindingDesc{{Buffer: b, Stride: 16, Divisor: 3}}
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("SyncState failed: %v", err)
	}
	_, desc, err := va.SetupDraw(nil, false)
	if err != nil {
		t.Fatalf("SetupDraw failed: %v", err)
	}
	if desc.Layouts[0].StepMode != gputypes.VertexStepModeInstance {
		t.Errorf("step mode = %v, want instance", desc.Layouts[0].StepMode)
	}
}

func TestSetupDrawStaleState(t *testing.T) {
	ctx, _, _, cleanup := newTestContext(t)
	defer cleanup()

	va, _ := NewVertexArray(ctx)

	// Before any sync every slot is unsynced.
	if _, _, err := va.SetupDraw(nil, false); !errors.Is(err, ErrStaleState) {
		t.Fatalf("SetupDraw before sync = %v, want ErrStaleState", err)
	}

	// A client slot stays unsynced until its data is streamed.
	attribs := []AttribDesc{{Enabled: true, Format: FormatFloat32, Binding: 0}}
	bindings := []BindingDesc{{ClientData: make([]byte, 64)}}
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("SyncState failed: %v", err)
	}
	if _, _, err := va.SetupDraw(nil, false); !errors.Is(err, ErrStaleState) {
		t.Fatalf("SetupDraw before streaming = %v, want ErrStaleState", err)
	}
	if err := va.UpdateClientAttribs(0, 4, 1); err != nil {
		t.Fatalf("UpdateClientAttribs failed: %v", err)
	}
	if _, _, err := va.SetupDraw(nil, false); err != nil {
		t.Fatalf("SetupDraw after streaming failed: %v", err)
	}
}

func TestClientAttribStreaming(t *testing.T) {
	ctx, _, rq, cleanup := newTestContext(t)
	defer cleanup()

	data := make([]byte, 48)
	for i := range data {
		data[i] = byte(i)
	}
	va, _ := NewVertexArray(ctx)
	attribs := []AttribDesc{{Enabled: true, Format: FormatFloat32x2, Binding: 0}}
	bindings := []BindingDesc{{ClientData: data, Stride: 8}}
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("SyncState failed: %v", err)
	}

	// Drawing vertices [2, 5) streams elements [0, 5): the binding
	// addresses element zero.
	if err := va.UpdateClientAttribs(2, 3, 1); err != nil {
		t.Fatalf("UpdateClientAttribs failed: %v", err)
	}
	if got := rq.lastWrite(t); !bytes.Equal(got.data, data[:40]) {
		t.Errorf("streamed %d bytes, want the first 40 of the client array", len(got.data))
	}

	changed, desc, err := va.SetupDraw(nil, false)
	if err != nil {
		t.Fatalf("SetupDraw failed: %v", err)
	}
	if !changed {
		t.Error("streaming did not mark the descriptor changed")
	}
	if desc.Layouts[0].ArrayStride != 8 {
		t.Errorf("stride = %d, want 8", desc.Layouts[0].ArrayStride)
	}

	// Each draw streams its own copy.
	writes := len(rq.writes)
	if err := va.UpdateClientAttribs(0, 6, 1); err != nil {
		t.Fatalf("second UpdateClientAttribs failed: %v", err)
	}
	if len(rq.writes) != writes+1 {
		t.Errorf("second draw recorded %d writes, want 1", len(rq.writes)-writes)
	}
	if got := rq.lastWrite(t); !bytes.Equal(got.data, data[:48]) {
		t.Errorf("second stream = %d bytes, want all 48", len(got.data))
	}
}

func TestClientAttribInstancedSizing(t *testing.T) {
	ctx, _, rq, cleanup := newTestContext(t)
	defer cleanup()

	va, _ := NewVertexArray(ctx)
	data := make([]byte, 64)
	attribs := []AttribDesc{{Enabled: true, Format: FormatFloat32, Binding: 0}}
	bindings := []BindingDesc{{ClientData: data, Divisor: 2}}
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("SyncState failed: %v", err)
	}

	// Five instances at divisor 2 need ceil(5/2) = 3 elements, regardless
	// of the vertex range.
	if err := va.UpdateClientAttribs(7, 1000, 5); err != nil {
		t.Fatalf("UpdateClientAttribs failed: %v", err)
	}
	if got := rq.lastWrite(t); len(got.data) != 12 {
		t.Errorf("streamed %d bytes, want 12 (3 float32 elements)", len(got.data))
	}
}

func TestClientAttribConversion(t *testing.T) {
	ctx, _, rq, cleanup := newTestContext(t)
	defer cleanup()

	va, _ := NewVertexArray(ctx)
	data := []byte{0, 0, 0, 255, 255, 255}
	attribs := []AttribDesc{{Enabled: true, Format: FormatUnorm8x3, Binding: 0}}
	bindings := []BindingDesc{{ClientData: data, Stride: 3}}
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("SyncState failed: %v", err)
	}
	if err := va.UpdateClientAttribs(0, 2, 1); err != nil {
		t.Fatalf("UpdateClientAttribs failed: %v", err)
	}

	want := floatBytes(0, 0, 0, 1, 1, 1, 1, 1)
	if got := rq.lastWrite(t); !bytes.Equal(got.data, want) {
		t.Errorf("converted stream = %x, want %x", got.data, want)
	}
	_, desc, err := va.SetupDraw(nil, false)
	if err != nil {
		t.Fatalf("SetupDraw failed: %v", err)
	}
	if desc.Layouts[0].Attributes[0].Format != gputypes.VertexFormatFloat32x4 {
		t.Errorf("format = %v, want float32x4", desc.Layouts[0].Attributes[0].Format)
	}
}

func TestClientAttribShortData(t *testing.T) {
	ctx, _, _, cleanup := newTestContext(t)
	defer cleanup()

	va, _ := NewVertexArray(ctx)
	attribs := []AttribDesc{{Enabled: true, Format: FormatFloat32x2, Binding: 0}}
	bindings := []BindingDesc{{ClientData: make([]byte, 16), Stride: 8}}
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("SyncState failed: %v", err)
	}
	if err := va.UpdateClientAttribs(0, 3, 1); !errors.Is(err, ErrClientData) {
		t.Fatalf("UpdateClientAttribs past the array = %v, want ErrClientData", err)
	}
}

// A failing slot aborts the sync but leaves previously synced slots
// intact, and draw setup refuses to run until the damage is repaired.
func TestSyncFailureAtomicity(t *testing.T) {
	ctx, _, _, cleanup := newTestContext(t)
	defer cleanup()

	b, err := NewBuffer(ctx, 16)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	defer b.Destroy()

	va, _ := NewVertexArray(ctx)
	attribs := []AttribDesc{
		{Enabled: true, Format: FormatFloat32, Binding: 0},
		{Enabled: true, Format: VertexFormatID(200), Binding: 0},
	}
	bindings := []BindingDesc{{Buffer: b, Stride: 4}}
	if err := va.SyncState(attribs, bindings, DirtyAll()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("SyncState with bad format = %v, want ErrUnsupportedFormat", err)
	}
	if _, _, err := va.SetupDraw(nil, false); !errors.Is(err, ErrStaleState) {
		t.Fatalf("SetupDraw after failed sync = %v, want ErrStaleState", err)
	}

	// Repair slot 1; slot 0 keeps the state from the failed call.
	attribs[1].Enabled = false
	attribs[1].Format = FormatInvalid
	if err := va.SyncState(attribs, bindings, DirtyAttrib(1)); err != nil {
		t.Fatalf("repair sync failed: %v", err)
	}
	_, desc, err := va.SetupDraw(nil, false)
	if err != nil {
		t.Fatalf("SetupDraw after repair failed: %v", err)
	}
	if desc.Layouts[0].ArrayStride != 4 {
		t.Errorf("slot 0 stride = %d, want 4 (state lost in failed sync)", desc.Layouts[0].ArrayStride)
	}
}

func TestResourceFailureRecovery(t *testing.T) {
	ctx, fd, _, cleanup := newTestContext(t)
	defer cleanup()

	b, err := NewBuffer(ctx, 12)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	defer b.Destroy()

	va, _ := NewVertexArray(ctx)
	attribs := []AttribDesc{{Enabled: true, Format: FormatUnorm8x3, Binding: 0}}
	bindings := []BindingDesc{{Buffer: b, Stride: 3}}

	fd.failErr = errors.New("out of device memory")
	if err := va.SyncState(attribs, bindings, DirtyAll()); !errors.Is(err, ErrResource) {
		t.Fatalf("SyncState with failing allocator = %v, want ErrResource", err)
	}
	if _, _, err := va.SetupDraw(nil, false); !errors.Is(err, ErrStaleState) {
		t.Fatalf("SetupDraw after failure = %v, want ErrStaleState", err)
	}

	fd.failErr = nil
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("retry after recovery failed: %v", err)
	}
	if _, _, err := va.SetupDraw(nil, false); err != nil {
		t.Fatalf("SetupDraw after recovery failed: %v", err)
	}
}

func TestVertexArrayReset(t *testing.T) {
	ctx, _, _, cleanup := newTestContext(t)
	defer cleanup()

	b, err := NewBuffer(ctx, 16)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	defer b.Destroy()

	va, _ := NewVertexArray(ctx)
	attribs := []AttribDesc{{Enabled: true, Format: FormatFloat32, Binding: 0}}
	bindings := []BindingDesc{{Buffer: b, Stride: 4}}
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("SyncState failed: %v", err)
	}
	if _, _, err := va.SetupDraw(nil, false); err != nil {
		t.Fatalf("SetupDraw failed: %v", err)
	}

	va.Reset()
	if _, _, err := va.SetupDraw(nil, false); !errors.Is(err, ErrStaleState) {
		t.Fatalf("SetupDraw after Reset = %v, want ErrStaleState", err)
	}
	if err := va.SyncState(attribs, bindings, DirtyAll()); err != nil {
		t.Fatalf("re-sync after Reset failed: %v", err)
	}
	if _, _, err := va.SetupDraw(nil, false); err != nil {
		t.Fatalf("SetupDraw after re-sync failed: %v", err)
	}
}

func TestNewVertexArrayOnDestroyedContext(t *testing.T) {
	ctx, _, _, cleanup := newTestContext(t)
	defer cleanup()

	ctx.Destroy()
	if _, err := NewVertexArray(ctx); !errors.Is(err, ErrContextDestroyed) {
		t.Fatalf("NewVertexArray after Destroy = %v, want ErrContextDestroyed", err)
	}
}
