package wire

const (
	VERSION_MSG = "version"
	VERACK_MSG  = "verack"
	PING_MSG    = "ping"
	PONG_MSG    = "pong"
)

// CommandSize is the fixed width of the command field; shorter commands are
// padded with zero bytes.
const CommandSize = 12

func commandToBytes(command string) [CommandSize]byte {
	var res [CommandSize]byte
	copy(res[:], command)
	return res
}

// parseCommand strips the zero padding from a command field. Everything
// before the first zero byte must be printable ASCII and everything after it
// must be zero.
func parseCommand(field []byte) (string, error) {
	end := len(field)
	for i, c := range field {
		if c == 0 {
			end = i
			break
		}
		if c < 0x20 || c > 0x7e {
			return "", messageError("parseCommand", ErrInvalidCommand,
				"non-printable byte %#02x at offset %d", c, i)
		}
	}
	for i := end; i < len(field); i++ {
		if field[i] != 0 {
			return "", messageError("parseCommand", ErrInvalidCommand,
				"non-zero padding byte at offset %d", i)
		}
	}
	if end == 0 {
		return "", messageError("parseCommand", ErrInvalidCommand, "empty command")
	}
	return string(field[:end]), nil
}
