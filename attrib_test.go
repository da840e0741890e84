package metalangle

import "testing"

func TestDirtyBits(t *testing.T) {
	var none DirtyBits
	if !none.Empty() {
		t.Error("zero DirtyBits is not empty")
	}

	d := DirtyAttrib(3)
	if !d.touches(3) || d.touches(2) || d.touches(4) {
		t.Errorf("DirtyAttrib(3) touches the wrong slots: %b", d)
	}
	if d.binding(3) {
		t.Error("attribute bit leaked into the binding range")
	}

	d = DirtyBinding(15)
	if !d.touches(15) || d.attrib(15) {
		t.Errorf("DirtyBinding(15) = %b, want a pure binding bit for slot 15", d)
	}
	if d.Empty() {
		t.Error("marked bits reported empty")
	}

	all := DirtyAll()
	for i := 0; i < MaxVertexAttribs; i++ {
		if !all.attrib(i) || !all.binding(i) {
			t.Fatalf("DirtyAll misses slot %d", i)
		}
	}

	if DirtyAttrib(0)|DirtyBinding(0) != DirtyAttrib(0)+DirtyBinding(0) {
		t.Error("attribute and binding bits overlap")
	}
}
