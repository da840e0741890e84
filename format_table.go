package metalangle

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// FormatCaps answers whether a portable format is natively consumable by
// the backend's vertex fetch hardware and, when it is not, the canonical
// layout to convert it to. The zero value is the complete table for a
// WebGPU-class backend, where one- and three-component 8/16-bit formats
// have no native encoding.
type FormatCaps struct{}

// Conversion describes the canonical target layout for a format.
type Conversion struct {
	// Target is the portable id of the converted layout.
	Target VertexFormatID

	// Native is the backend format that reads the converted data.
	Native gputypes.VertexFormat

	// Stride is the tightly packed output stride in bytes.
	Stride uint32

	// Expand is set when the target has more components than the source,
	// so conversion injects constants for the missing ones.
	Expand bool
}

// NativeVertexFormat returns the backend vertex format for id when the
// backend can fetch it directly.
func (FormatCaps) NativeVertexFormat(id VertexFormatID) (gputypes.VertexFormat, bool) {
	switch id {
	case FormatFloat32:
		return gputypes.VertexFormatFloat32, true
	case FormatFloat32x2:
		return gputypes.VertexFormatFloat32x2, true
	case FormatFloat32x3:
		return gputypes.VertexFormatFloat32x3, true
	case FormatFloat32x4:
		return gputypes.VertexFormatFloat32x4, true
	case FormatUnorm8x2:
		return gputypes.VertexFormatUnorm8x2, true
	case FormatUnorm8x4:
		return gputypes.VertexFormatUnorm8x4, true
	case FormatSnorm8x2:
		return gputypes.VertexFormatSnorm8x2, true
	case FormatSnorm8x4:
		return gputypes.VertexFormatSnorm8x4, true
	case FormatUint8x2:
		return gputypes.VertexFormatUint8x2, true
	case FormatUint8x4:
		return gputypes.VertexFormatUint8x4, true
	case FormatInt8x2:
		return gputypes.VertexFormatSint8x2, true
	case FormatInt8x4:
		return gputypes.VertexFormatSint8x4, true
	case FormatUnorm16x2:
		return gputypes.VertexFormatUnorm16x2, true
	case FormatUnorm16x4:
		return gputypes.VertexFormatUnorm16x4, true
	case FormatSnorm16x2:
		return gputypes.VertexFormatSnorm16x2, true
	case FormatSnorm16x4:
		return gputypes.VertexFormatSnorm16x4, true
	case FormatUint16x2:
		return gputypes.VertexFormatUint16x2, true
	case FormatUint16x4:
		return gputypes.VertexFormatUint16x4, true
	case FormatInt16x2:
		return gputypes.VertexFormatSint16x2, true
	case FormatInt16x4:
		return gputypes.VertexFormatSint16x4, true
	case FormatUint32:
		return gputypes.VertexFormatUint32, true
	case FormatUint32x2:
		return gputypes.VertexFormatUint32x2, true
	case FormatUint32x3:
		return gputypes.VertexFormatUint32x3, true
	case FormatUint32x4:
		return gputypes.VertexFormatUint32x4, true
	case FormatInt32:
		return gputypes.VertexFormatSint32, true
	case FormatInt32x2:
		return gputypes.VertexFormatSint32x2, true
	case FormatInt32x3:
		return gputypes.VertexFormatSint32x3, true
	case FormatInt32x4:
		return gputypes.VertexFormatSint32x4, true
	default:
		return 0, false
	}
}

// Conversion returns the canonical conversion for id. Native formats keep
// their encoding and restream verbatim at a stride rounded up to the
// backend's 4-byte alignment, which is the rule applied when natively
// readable data sits at an offset or stride the backend cannot bind.
// An unknown id returns ErrUnsupportedFormat; it must surface to the
// caller, never degrade to a plausible-looking format.
func (c FormatCaps) Conversion(id VertexFormatID) (Conversion, error) {
	if native, ok := c.NativeVertexFormat(id); ok {
		info := FormatByID(id)
		return Conversion{Target: id, Native: native, Stride: alignStride(uint32(info.ByteSize()))}, nil
	}
	switch id {
	// Single-component normalized formats load as float32.
	case FormatUnorm8, FormatSnorm8, FormatUnorm16, FormatSnorm16:
		return Conversion{Target: FormatFloat32, Native: gputypes.VertexFormatFloat32, Stride: 4}, nil

	// Three-component normalized formats expand to float32x4 with an
	// injected alpha of 1.0.
	case FormatUnorm8x3, FormatSnorm8x3, FormatUnorm16x3, FormatSnorm16x3:
		return Conversion{Target: FormatFloat32x4, Native: gputypes.VertexFormatFloat32x4, Stride: 16, Expand: true}, nil

	// Single-component narrow integers widen to 32 bits, value preserving.
	case FormatUint8, FormatUint16:
		return Conversion{Target: FormatUint32, Native: gputypes.VertexFormatUint32, Stride: 4}, nil
	case FormatInt8, FormatInt16:
		return Conversion{Target: FormatInt32, Native: gputypes.VertexFormatSint32, Stride: 4}, nil

	// Three-component narrow integers pad to four of the same type with
	// an injected w of 1.
	case FormatUint8x3:
		return Conversion{Target: FormatUint8x4, Native: gputypes.VertexFormatUint8x4, Stride: 4, Expand: true}, nil
	case FormatInt8x3:
		return Conversion{Target: FormatInt8x4, Native: gputypes.VertexFormatSint8x4, Stride: 4, Expand: true}, nil
	case FormatUint16x3:
		return Conversion{Target: FormatUint16x4, Native: gputypes.VertexFormatUint16x4, Stride: 8, Expand: true}, nil
	case FormatInt16x3:
		return Conversion{Target: FormatInt16x4, Native: gputypes.VertexFormatSint16x4, Stride: 8, Expand: true}, nil

	default:
		return Conversion{}, fmt.Errorf("%w: id %d", ErrUnsupportedFormat, id)
	}
}

// alignStride rounds a packed element size up to the backend's 4-byte
// vertex stride alignment.
func alignStride(n uint32) uint32 {
	return (n + 3) &^ 3
}

// NativeIndexFormat returns the backend index format for k when the backend
// can index with it directly.
func (FormatCaps) NativeIndexFormat(k IndexKind) (gputypes.IndexFormat, bool) {
	switch k {
	case IndexUint16:
		return gputypes.IndexFormatUint16, true
	case IndexUint32:
		return gputypes.IndexFormatUint32, true
	default:
		return 0, false
	}
}

// IndexWidening returns the narrowest natively indexable kind that holds
// every value of k. Native kinds map to themselves.
func (FormatCaps) IndexWidening(k IndexKind) (IndexKind, error) {
	switch k {
	case IndexUint8:
		return IndexUint16, nil
	case IndexUint16, IndexUint32:
		return k, nil
	default:
		return IndexNone, fmt.Errorf("%w: %s", ErrUnsupportedIndexType, k)
	}
}
