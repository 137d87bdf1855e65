package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

const (
	// HeaderSize is magic(4) + command(12) + length(4) + checksum(4).
	HeaderSize   = 24
	ChecksumSize = 4

	// DefaultMaxPayload bounds the declared payload length a peer may send.
	DefaultMaxPayload uint32 = 32 * 1024 * 1024
)

// Message is a decoded envelope. Length and checksum are implied by Payload.
type Message struct {
	Magic   Magic
	Command string
	Payload []byte
}

// Payload is implemented by every message body the package knows how to
// encode.
type Payload interface {
	Command() string
	Encode() []byte
}

// Checksum returns the first four bytes of sha256(sha256(payload)).
func Checksum(payload []byte) [ChecksumSize]byte {
	var sum [ChecksumSize]byte
	copy(sum[:], chainhash.DoubleHashB(payload)[:ChecksumSize])
	return sum
}

// Encode frames payload under the given command. Commands longer than
// CommandSize are a programming error and cause a panic.
func Encode(magic Magic, command string, payload []byte) []byte {
	if len(command) > CommandSize {
		panic(fmt.Sprintf("wire: command %q longer than %d bytes", command, CommandSize))
	}
	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(magic))
	cmd := commandToBytes(command)
	copy(buf[4:16], cmd[:])
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(payload)))
	sum := Checksum(payload)
	copy(buf[20:24], sum[:])
	copy(buf[HeaderSize:], payload)
	return buf
}

// EncodeMessage frames p under its own command.
func EncodeMessage(magic Magic, p Payload) []byte {
	return Encode(magic, p.Command(), p.Encode())
}

type header struct {
	command  string
	length   uint32
	checksum [ChecksumSize]byte
}

func decodeHeader(magic Magic, maxPayload uint32, b []byte) (header, error) {
	var h header
	if got := Magic(binary.LittleEndian.Uint32(b[0:4])); got != magic {
		return h, messageError("decodeHeader", ErrInvalidMagic,
			"got %#08x, want %#08x", uint32(got), uint32(magic))
	}
	command, err := parseCommand(b[4:16])
	if err != nil {
		return h, err
	}
	h.command = command
	h.length = binary.LittleEndian.Uint32(b[16:20])
	if h.length > maxPayload {
		return h, messageError("decodeHeader", ErrOversizedMessage,
			"%s declares %d payload bytes, limit is %d", command, h.length, maxPayload)
	}
	copy(h.checksum[:], b[20:24])
	return h, nil
}

func verifyChecksum(h header, payload []byte) error {
	if sum := Checksum(payload); !bytes.Equal(sum[:], h.checksum[:]) {
		return messageError("verifyChecksum", ErrChecksumMismatch,
			"%s header says %x, payload hashes to %x", h.command, h.checksum, sum)
	}
	return nil
}

// Decode parses one envelope from the start of data and reports how many
// bytes it used. The payload is only copied once the declared length has
// been checked against maxPayload.
func Decode(magic Magic, maxPayload uint32, data []byte) (*Message, int, error) {
	if len(data) < HeaderSize {
		return nil, 0, messageError("Decode", ErrTruncated,
			"have %d bytes, header needs %d", len(data), HeaderSize)
	}
	h, err := decodeHeader(magic, maxPayload, data[:HeaderSize])
	if err != nil {
		return nil, 0, err
	}
	end := HeaderSize + int(h.length)
	if len(data) < end {
		return nil, 0, messageError("Decode", ErrTruncated,
			"%s declares %d payload bytes, have %d", h.command, h.length, len(data)-HeaderSize)
	}
	payload := make([]byte, h.length)
	copy(payload, data[HeaderSize:end])
	if err := verifyChecksum(h, payload); err != nil {
		return nil, 0, err
	}
	return &Message{Magic: magic, Command: h.command, Payload: payload}, end, nil
}

// ReadMessage reads exactly one envelope from r. Envelopes that arrive over
// several reads are assembled; bytes of a following envelope stay in r.
// Errors from r are returned wrapped and are never a *MessageError.
func ReadMessage(r io.Reader, magic Magic, maxPayload uint32) (*Message, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	h, err := decodeHeader(magic, maxPayload, hdr[:])
	if err != nil {
		return nil, err
	}
	payload := make([]byte, h.length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrapf(err, "read %s payload", h.command)
	}
	if err := verifyChecksum(h, payload); err != nil {
		return nil, err
	}
	return &Message{Magic: magic, Command: h.command, Payload: payload}, nil
}

// WriteMessage frames p and writes it to w in a single call.
func WriteMessage(w io.Writer, magic Magic, p Payload) error {
	_, err := w.Write(EncodeMessage(magic, p))
	return errors.Wrapf(err, "write %s", p.Command())
}
