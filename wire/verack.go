package wire

// MsgVerAck acknowledges a version message. It has no payload.
type MsgVerAck struct{}

func (msg *MsgVerAck) Command() string {
	return VERACK_MSG
}

func (msg *MsgVerAck) Encode() []byte {
	return nil
}

// DecodeVerAck accepts only an empty payload.
func DecodeVerAck(b []byte) (*MsgVerAck, error) {
	if len(b) != 0 {
		return nil, messageError("DecodeVerAck", ErrMalformedPayload,
			"verack carries %d payload bytes", len(b))
	}
	return &MsgVerAck{}, nil
}
