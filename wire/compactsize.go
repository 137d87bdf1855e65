package wire

import (
	"encoding/binary"
	"math"
)

// CompactSizeLen returns the number of bytes AppendCompactSize uses for v.
func CompactSizeLen(v uint64) int {
	switch {
	case v < 0xfd:
		return 1
	case v <= math.MaxUint16:
		return 3
	case v <= math.MaxUint32:
		return 5
	default:
		return 9
	}
}

// AppendCompactSize appends the variable length encoding of v to dst.
func AppendCompactSize(dst []byte, v uint64) []byte {
	switch {
	case v < 0xfd:
		return append(dst, byte(v))
	case v <= math.MaxUint16:
		dst = append(dst, 0xfd)
		return binary.LittleEndian.AppendUint16(dst, uint16(v))
	case v <= math.MaxUint32:
		dst = append(dst, 0xfe)
		return binary.LittleEndian.AppendUint32(dst, uint32(v))
	default:
		dst = append(dst, 0xff)
		return binary.LittleEndian.AppendUint64(dst, v)
	}
}

// ReadCompactSize decodes a CompactSize from the start of b and returns the
// value and the number of bytes consumed. Encodings that use a wider form
// than necessary are rejected.
func ReadCompactSize(b []byte) (uint64, int, error) {
	if len(b) < 1 {
		return 0, 0, messageError("ReadCompactSize", ErrMalformedPayload, "missing discriminant")
	}
	var (
		v     uint64
		size  int
		least uint64
	)
	switch b[0] {
	case 0xfd:
		size, least = 3, 0xfd
		if len(b) < size {
			break
		}
		v = uint64(binary.LittleEndian.Uint16(b[1:3]))
	case 0xfe:
		size, least = 5, math.MaxUint16+1
		if len(b) < size {
			break
		}
		v = uint64(binary.LittleEndian.Uint32(b[1:5]))
	case 0xff:
		size, least = 9, math.MaxUint32+1
		if len(b) < size {
			break
		}
		v = binary.LittleEndian.Uint64(b[1:9])
	default:
		return uint64(b[0]), 1, nil
	}
	if len(b) < size {
		return 0, 0, messageError("ReadCompactSize", ErrMalformedPayload,
			"need %d bytes, have %d", size, len(b))
	}
	if v < least {
		return 0, 0, messageError("ReadCompactSize", ErrMalformedPayload,
			"non-canonical encoding of %d", v)
	}
	return v, size, nil
}
