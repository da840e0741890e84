package convert

import (
	"encoding/binary"
	"fmt"
)

// WidenIndexStream converts count index values from srcWidth-byte unsigned
// integers to dstWidth-byte ones, preserving every value exactly. Widths
// must be 1, 2, or 4 bytes with dstWidth >= srcWidth. Equal widths degrade
// to a plain copy.
func WidenIndexStream(dst []byte, dstWidth int, src []byte, srcWidth int, count int) error {
	if count <= 0 {
		return nil
	}
	if !validIndexWidth(srcWidth) || !validIndexWidth(dstWidth) || dstWidth < srcWidth {
		return fmt.Errorf("%w: cannot widen %d-byte indices to %d bytes", ErrBadConversion, srcWidth, dstWidth)
	}
	if len(src) < count*srcWidth {
		return fmt.Errorf("%w: source has %d bytes, need %d", ErrShortBuffer, len(src), count*srcWidth)
	}
	if len(dst) < count*dstWidth {
		return fmt.Errorf("%w: destination has %d bytes, need %d", ErrShortBuffer, len(dst), count*dstWidth)
	}
	if srcWidth == dstWidth {
		copy(dst[:count*dstWidth], src[:count*srcWidth])
		return nil
	}
	for i := 0; i < count; i++ {
		var v uint32
		switch srcWidth {
		case 1:
			v = uint32(src[i])
		case 2:
			v = uint32(binary.LittleEndian.Uint16(src[i*2:]))
		}
		switch dstWidth {
		case 2:
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(v))
		case 4:
			binary.LittleEndian.PutUint32(dst[i*4:], v)
		}
	}
	return nil
}

// StreamIndexBytes copies count indices of the given byte width verbatim.
// Index data never changes representation when streamed from client memory,
// only location, so this is a bounds-checked copy.
func StreamIndexBytes(dst, src []byte, width, count int) error {
	if count <= 0 {
		return nil
	}
	if !validIndexWidth(width) {
		return fmt.Errorf("%w: invalid index width %d", ErrBadConversion, width)
	}
	n := count * width
	if len(src) < n {
		return fmt.Errorf("%w: source has %d bytes, need %d", ErrShortBuffer, len(src), n)
	}
	if len(dst) < n {
		return fmt.Errorf("%w: destination has %d bytes, need %d", ErrShortBuffer, len(dst), n)
	}
	copy(dst[:n], src[:n])
	return nil
}

func validIndexWidth(w int) bool { return w == 1 || w == 2 || w == 4 }
