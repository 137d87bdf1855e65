package wire

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kinds of codec failures. A *MessageError matches exactly one of them with
// errors.Is.
var (
	ErrTruncated        = errors.New("truncated message")
	ErrInvalidMagic     = errors.New("invalid network magic")
	ErrInvalidCommand   = errors.New("invalid command")
	ErrOversizedMessage = errors.New("oversized message")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrMalformedPayload = errors.New("malformed payload")
)

// MessageError describes an envelope or payload that could not be decoded.
// Transport errors are never reported as a MessageError.
type MessageError struct {
	Func        string // function name
	Kind        error  // one of the Err* kinds above
	Description string // human readable detail
}

func (e *MessageError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%s: %v: %s", e.Func, e.Kind, e.Description)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Description)
}

func (e *MessageError) Unwrap() error {
	return e.Kind
}

func messageError(f string, kind error, format string, args ...interface{}) *MessageError {
	return &MessageError{Func: f, Kind: kind, Description: fmt.Sprintf(format, args...)}
}
