// Package convert implements CPU transcoding of vertex and index element
// streams between portable layouts and backend-native ones.
//
// All functions operate on raw little-endian bytes so callers can feed
// buffer shadows or staging windows directly. Normalization follows the
// portable API's rules exactly: signed-normalized values map onto [-1, 1]
// with the canonical affine formula, never a plain division by the type's
// full range.
package convert

// Scalar identifies the machine type of one vertex component.
type Scalar uint8

const (
	// Float32 is an IEEE 754 single-precision component.
	Float32 Scalar = iota

	// Int8 is a signed 8-bit component.
	Int8

	// Uint8 is an unsigned 8-bit component.
	Uint8

	// Int16 is a signed 16-bit component.
	Int16

	// Uint16 is an unsigned 16-bit component.
	Uint16

	// Int32 is a signed 32-bit component.
	Int32

	// Uint32 is an unsigned 32-bit component.
	Uint32
)

// Size returns the byte width of one component.
func (s Scalar) Size() int {
	switch s {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	default:
		return 4
	}
}

// String returns a short lowercase name for the scalar.
func (s Scalar) String() string {
	switch s {
	case Float32:
		return "float32"
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	default:
		return "unknown"
	}
}

// SignedInt reports whether the scalar is a signed integer type.
func (s Scalar) SignedInt() bool {
	return s == Int8 || s == Int16 || s == Int32
}

// UnsignedInt reports whether the scalar is an unsigned integer type.
func (s Scalar) UnsignedInt() bool {
	return s == Uint8 || s == Uint16 || s == Uint32
}

// Layout describes one element of a vertex stream: component type, count,
// and whether integer components carry normalized fixed-point values.
type Layout struct {
	Scalar     Scalar
	Count      int
	Normalized bool
}

// ElemSize returns the tightly packed byte size of one element.
func (l Layout) ElemSize() int { return l.Scalar.Size() * l.Count }
