package wire

import "encoding/binary"

// payloadReader walks a payload field by field and remembers the first
// short read, so decoders can read every field and check err once.
type payloadReader struct {
	fn  string
	buf []byte
	err error
}

func newPayloadReader(fn string, b []byte) *payloadReader {
	return &payloadReader{fn: fn, buf: b}
}

func (r *payloadReader) next(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = messageError(r.fn, ErrMalformedPayload,
			"%s needs %d bytes, %d left", field, n, len(r.buf))
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *payloadReader) u8(field string) uint8 {
	if b := r.next(1, field); b != nil {
		return b[0]
	}
	return 0
}

func (r *payloadReader) u32(field string) uint32 {
	if b := r.next(4, field); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *payloadReader) u64(field string) uint64 {
	if b := r.next(8, field); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

// varBytes reads a CompactSize length followed by that many bytes. The
// length is checked against what is left before anything is allocated.
func (r *payloadReader) varBytes(field string) []byte {
	if r.err != nil {
		return nil
	}
	n, used, err := ReadCompactSize(r.buf)
	if err != nil {
		r.err = messageError(r.fn, ErrMalformedPayload, "%s length: %v", field, err)
		return nil
	}
	r.buf = r.buf[used:]
	if n > uint64(len(r.buf)) {
		r.err = messageError(r.fn, ErrMalformedPayload,
			"%s declares %d bytes, %d left", field, n, len(r.buf))
		return nil
	}
	b := make([]byte, n)
	copy(b, r.buf[:n])
	r.buf = r.buf[n:]
	return b
}
