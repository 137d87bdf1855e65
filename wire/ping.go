package wire

import "encoding/binary"

// MsgPing carries a nonce the peer echoes back in a MsgPong.
type MsgPing struct {
	Nonce uint64
}

func (msg *MsgPing) Command() string {
	return PING_MSG
}

func (msg *MsgPing) Encode() []byte {
	return binary.LittleEndian.AppendUint64(nil, msg.Nonce)
}

// MsgPong answers a MsgPing with the same nonce.
type MsgPong struct {
	Nonce uint64
}

func (msg *MsgPong) Command() string {
	return PONG_MSG
}

func (msg *MsgPong) Encode() []byte {
	return binary.LittleEndian.AppendUint64(nil, msg.Nonce)
}

func decodeNonce(fn string, b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, messageError(fn, ErrMalformedPayload, "nonce needs 8 bytes, have %d", len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

func DecodePing(b []byte) (*MsgPing, error) {
	nonce, err := decodeNonce("DecodePing", b)
	if err != nil {
		return nil, err
	}
	return &MsgPing{Nonce: nonce}, nil
}

func DecodePong(b []byte) (*MsgPong, error) {
	nonce, err := decodeNonce("DecodePong", b)
	if err != nil {
		return nil, err
	}
	return &MsgPong{Nonce: nonce}, nil
}
