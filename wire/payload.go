package wire

// DecodePayload decodes b according to command.
func DecodePayload(command string, b []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch command {
	case VERSION_MSG:
		var msg *MsgVersion
		if msg, err = DecodeVersion(b); err == nil {
			p = msg
		}
	case VERACK_MSG:
		var msg *MsgVerAck
		if msg, err = DecodeVerAck(b); err == nil {
			p = msg
		}
	case PING_MSG:
		var msg *MsgPing
		if msg, err = DecodePing(b); err == nil {
			p = msg
		}
	case PONG_MSG:
		var msg *MsgPong
		if msg, err = DecodePong(b); err == nil {
			p = msg
		}
	default:
		err = messageError("DecodePayload", ErrInvalidCommand, "unknown command %q", command)
	}
	return p, err
}
