package convert

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Errors returned by stream transcoding.
var (
	// ErrBadConversion is returned for a source/target layout pair with no
	// defined rule. Callers must treat this as a configuration defect, not
	// approximate the result.
	ErrBadConversion = errors.New("convert: no rule for source/target layout pair")

	// ErrShortBuffer is returned when a source or destination slice cannot
	// hold the requested element range at the given stride.
	ErrShortBuffer = errors.New("convert: buffer too small for element range")
)

// ConvertVertexStream transcodes count elements from src into dst, reading
// one element every srcStride bytes and writing one every dstStride bytes.
//
// Three rule families are defined:
//
//   - Identity: equal source and target layouts copy element bytes through
//     unchanged. This is the restream rule for natively readable data at a
//     hostile stride or offset.
//   - Float target: any float32, normalized-integer, or plain-integer source
//     converts to float32 components. Normalized sources apply the
//     normalization formulas; plain integers cast.
//   - Integer target: a plain-integer source converts to a same-signedness
//     integer target of equal or wider component size, value preserving.
//
// When the target has more components than the source, the missing
// components are injected: 0 for y and z, the target's one value for w
// (1.0 for float targets, 1 for integer targets). Any other pairing
// returns ErrBadConversion.
//
// srcStride may be smaller than the source element size; consecutive
// elements then overlap, which client arrays are allowed to do.
func ConvertVertexStream(dst []byte, dstLayout Layout, dstStride int, src []byte, srcLayout Layout, srcStride int, count int) error {
	if count <= 0 {
		return nil
	}
	if srcStride < 1 || dstStride < dstLayout.ElemSize() {
		return fmt.Errorf("%w: bad stride (src %d, dst %d for %d-byte elements)",
			ErrShortBuffer, srcStride, dstStride, dstLayout.ElemSize())
	}
	if need := (count-1)*srcStride + srcLayout.ElemSize(); len(src) < need {
		return fmt.Errorf("%w: source has %d bytes, need %d", ErrShortBuffer, len(src), need)
	}
	if need := (count-1)*dstStride + dstLayout.ElemSize(); len(dst) < need {
		return fmt.Errorf("%w: destination has %d bytes, need %d", ErrShortBuffer, len(dst), need)
	}
	if dstLayout.Count < srcLayout.Count {
		return fmt.Errorf("%w: cannot narrow %d components to %d",
			ErrBadConversion, srcLayout.Count, dstLayout.Count)
	}

	switch {
	case dstLayout == srcLayout:
		copyElements(dst, dstStride, src, srcStride, srcLayout.ElemSize(), count)
		return nil
	case dstLayout.Scalar == Float32:
		convertToFloat(dst, dstLayout, dstStride, src, srcLayout, srcStride, count)
		return nil
	case integerWidening(srcLayout, dstLayout):
		convertToInt(dst, dstLayout, dstStride, src, srcLayout, srcStride, count)
		return nil
	default:
		return fmt.Errorf("%w: %s[%d] normalized=%v -> %s[%d] normalized=%v",
			ErrBadConversion,
			srcLayout.Scalar, srcLayout.Count, srcLayout.Normalized,
			dstLayout.Scalar, dstLayout.Count, dstLayout.Normalized)
	}
}

func copyElements(dst []byte, dstStride int, src []byte, srcStride, elemSize, count int) {
	for e := 0; e < count; e++ {
		copy(dst[e*dstStride:e*dstStride+elemSize], src[e*srcStride:])
	}
}

// integerWidening reports whether src to dst is a value-preserving integer
// conversion: both plain (non-normalized) integers of the same signedness
// with the destination at least as wide.
func integerWidening(src, dst Layout) bool {
	if src.Normalized || dst.Normalized {
		return false
	}
	if src.Scalar.SignedInt() && dst.Scalar.SignedInt() {
		return dst.Scalar.Size() >= src.Scalar.Size()
	}
	if src.Scalar.UnsignedInt() && dst.Scalar.UnsignedInt() {
		return dst.Scalar.Size() >= src.Scalar.Size()
	}
	return false
}

func convertToFloat(dst []byte, dstLayout Layout, dstStride int, src []byte, srcLayout Layout, srcStride int, count int) {
	compSize := srcLayout.Scalar.Size()
	for e := 0; e < count; e++ {
		s := src[e*srcStride:]
		d := dst[e*dstStride:]
		for c := 0; c < dstLayout.Count; c++ {
			var f float32
			switch {
			case c < srcLayout.Count:
				f = readFloatComponent(s[c*compSize:], srcLayout)
			case c == 3:
				f = 1
			default:
				f = 0
			}
			binary.LittleEndian.PutUint32(d[c*4:], math.Float32bits(f))
		}
	}
}

func convertToInt(dst []byte, dstLayout Layout, dstStride int, src []byte, srcLayout Layout, srcStride int, count int) {
	srcSize := srcLayout.Scalar.Size()
	dstSize := dstLayout.Scalar.Size()
	for e := 0; e < count; e++ {
		s := src[e*srcStride:]
		d := dst[e*dstStride:]
		for c := 0; c < dstLayout.Count; c++ {
			var v int64
			switch {
			case c < srcLayout.Count:
				v = readIntComponent(s[c*srcSize:], srcLayout.Scalar)
			case c == 3:
				v = 1
			default:
				v = 0
			}
			writeIntComponent(d[c*dstSize:], dstLayout.Scalar, v)
		}
	}
}

// readFloatComponent reads one component at the start of b and returns it
// as float32 under the layout's normalization rule.
func readFloatComponent(b []byte, l Layout) float32 {
	switch l.Scalar {
	case Float32:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case Int8:
		v := int8(b[0])
		if l.Normalized {
			return snormToFloat(float32(v), 127)
		}
		return float32(v)
	case Uint8:
		v := b[0]
		if l.Normalized {
			return float32(v) / 255
		}
		return float32(v)
	case Int16:
		v := int16(binary.LittleEndian.Uint16(b))
		if l.Normalized {
			return snormToFloat(float32(v), 32767)
		}
		return float32(v)
	case Uint16:
		v := binary.LittleEndian.Uint16(b)
		if l.Normalized {
			return float32(v) / 65535
		}
		return float32(v)
	case Int32:
		v := int32(binary.LittleEndian.Uint32(b))
		if l.Normalized {
			return snormToFloat(float32(float64(v)/2147483647), 1)
		}
		return float32(v)
	case Uint32:
		v := binary.LittleEndian.Uint32(b)
		if l.Normalized {
			return float32(float64(v) / 4294967295)
		}
		return float32(v)
	default:
		return 0
	}
}

// snormToFloat maps a signed-normalized integer component onto [-1, 1]
// using the canonical affine formula: divide by the positive maximum and
// clamp at -1 so the most negative representable value and -max both map
// to exactly -1.
func snormToFloat(v, maxVal float32) float32 {
	f := v / maxVal
	if f < -1 {
		return -1
	}
	return f
}

func readIntComponent(b []byte, s Scalar) int64 {
	switch s {
	case Int8:
		return int64(int8(b[0]))
	case Uint8:
		return int64(b[0])
	case Int16:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case Uint16:
		return int64(binary.LittleEndian.Uint16(b))
	case Int32:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	case Uint32:
		return int64(binary.LittleEndian.Uint32(b))
	default:
		return 0
	}
}

func writeIntComponent(b []byte, s Scalar, v int64) {
	switch s {
	case Int8, Uint8:
		b[0] = byte(v)
	case Int16, Uint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	default:
		binary.LittleEndian.PutUint32(b, uint32(v))
	}
}
