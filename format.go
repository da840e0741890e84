package metalangle

import (
	"fmt"

	"golang.org/x/image/math/f32"

	"github.com/username0x0a/metalangle/internal/convert"
)

// VertexFormatID identifies a portable vertex attribute format: a component
// scalar type, a component count of 1 to 4, and a normalization flag for
// integer scalars. Formats are described by immutable, process-wide shared
// FormatInfo values looked up by id; slots and caches hold ids or pointers
// into the shared table, never copies.
type VertexFormatID uint8

const (
	FormatInvalid VertexFormatID = iota

	FormatFloat32
	FormatFloat32x2
	FormatFloat32x3
	FormatFloat32x4

	FormatUnorm8
	FormatUnorm8x2
	FormatUnorm8x3
	FormatUnorm8x4

	FormatSnorm8
	FormatSnorm8x2
	FormatSnorm8x3
	FormatSnorm8x4

	FormatUint8
	FormatUint8x2
	FormatUint8x3
	FormatUint8x4

	FormatInt8
	FormatInt8x2
	FormatInt8x3
	FormatInt8x4

	FormatUnorm16
	FormatUnorm16x2
	FormatUnorm16x3
	FormatUnorm16x4

	FormatSnorm16
	FormatSnorm16x2
	FormatSnorm16x3
	FormatSnorm16x4

	FormatUint16
	FormatUint16x2
	FormatUint16x3
	FormatUint16x4

	FormatInt16
	FormatInt16x2
	FormatInt16x3
	FormatInt16x4

	FormatUint32
	FormatUint32x2
	FormatUint32x3
	FormatUint32x4

	FormatInt32
	FormatInt32x2
	FormatInt32x3
	FormatInt32x4

	formatCount
)

// BaseKind classifies the shader-visible base type of a format, which
// decides the flavor of default value a disabled slot publishes.
type BaseKind uint8

const (
	// BaseFloat covers float32 components and all normalized formats.
	BaseFloat BaseKind = iota

	// BaseInt covers plain signed integer components.
	BaseInt

	// BaseUint covers plain unsigned integer components.
	BaseUint
)

// FormatInfo describes one portable vertex format. Values live in a shared
// package-level table; treat them as immutable.
type FormatInfo struct {
	ID     VertexFormatID
	Layout convert.Layout
	Name   string
}

// ByteSize returns the tightly packed size of one element.
func (f *FormatInfo) ByteSize() int { return f.Layout.ElemSize() }

// Base returns the format's shader-visible base type.
func (f *FormatInfo) Base() BaseKind {
	if f.Layout.Scalar == convert.Float32 || f.Layout.Normalized {
		return BaseFloat
	}
	if f.Layout.Scalar.SignedInt() {
		return BaseInt
	}
	return BaseUint
}

func (f *FormatInfo) String() string { return f.Name }

var formatInfos [formatCount]FormatInfo

func init() {
	families := []struct {
		first      VertexFormatID
		scalar     convert.Scalar
		normalized bool
		name       string
	}{
		{FormatFloat32, convert.Float32, false, "float32"},
		{FormatUnorm8, convert.Uint8, true, "unorm8"},
		{FormatSnorm8, convert.Int8, true, "snorm8"},
		{FormatUint8, convert.Uint8, false, "uint8"},
		{FormatInt8, convert.Int8, false, "int8"},
		{FormatUnorm16, convert.Uint16, true, "unorm16"},
		{FormatSnorm16, convert.Int16, true, "snorm16"},
		{FormatUint16, convert.Uint16, false, "uint16"},
		{FormatInt16, convert.Int16, false, "int16"},
		{FormatUint32, convert.Uint32, false, "uint32"},
		{FormatInt32, convert.Int32, false, "int32"},
	}
	for _, fam := range families {
		for c := 1; c <= 4; c++ {
			id := fam.first + VertexFormatID(c-1)
			name := fam.name
			if c > 1 {
				name = fmt.Sprintf("%sx%d", fam.name, c)
			}
			formatInfos[id] = FormatInfo{
				ID:     id,
				Layout: convert.Layout{Scalar: fam.scalar, Count: c, Normalized: fam.normalized},
				Name:   name,
			}
		}
	}
}

// FormatByID returns the shared descriptor for id, or nil when id is not a
// valid format.
func FormatByID(id VertexFormatID) *FormatInfo {
	if id == FormatInvalid || id >= formatCount {
		return nil
	}
	return &formatInfos[id]
}

// IndexKind identifies a portable index element type.
type IndexKind uint8

const (
	// IndexNone marks non-indexed draws.
	IndexNone IndexKind = iota

	// IndexUint8 is an 8-bit unsigned index.
	IndexUint8

	// IndexUint16 is a 16-bit unsigned index.
	IndexUint16

	// IndexUint32 is a 32-bit unsigned index.
	IndexUint32
)

// ByteSize returns the width of one index value, or 0 for IndexNone.
func (k IndexKind) ByteSize() int {
	switch k {
	case IndexUint8:
		return 1
	case IndexUint16:
		return 2
	case IndexUint32:
		return 4
	default:
		return 0
	}
}

func (k IndexKind) String() string {
	switch k {
	case IndexNone:
		return "none"
	case IndexUint8:
		return "uint8"
	case IndexUint16:
		return "uint16"
	case IndexUint32:
		return "uint32"
	default:
		return "unknown"
	}
}

// DefaultValue is the shader-visible constant supplied for a disabled
// attribute slot in place of buffer data. Disabled slots always publish the
// zero vector of the attribute's base kind.
type DefaultValue struct {
	Kind  BaseKind
	Float f32.Vec4
	Int   [4]int32
	Uint  [4]uint32
}
