package network

import (
	"EPeer/wire"

	"context"
	"fmt"
	"net"

	"github.com/pkg/errors"
)

var (
	ErrConnection          = errors.New("connection error")
	ErrProtocol            = errors.New("protocol error")
	ErrUnexpectedMessage   = errors.New("unexpected message")
	ErrVersionIncompatible = errors.New("incompatible protocol version")
	ErrSelfConnection      = errors.New("connected to self")
	ErrTimeout             = errors.New("timed out")
	ErrCancelled           = errors.New("cancelled")
	ErrSkipped             = errors.New("skipped")
)

var reasonErrors = map[Reason]error{
	ReasonConnection:          ErrConnection,
	ReasonProtocol:            ErrProtocol,
	ReasonUnexpectedMessage:   ErrUnexpectedMessage,
	ReasonVersionIncompatible: ErrVersionIncompatible,
	ReasonSelfConnection:      ErrSelfConnection,
	ReasonTimeout:             ErrTimeout,
	ReasonCancelled:           ErrCancelled,
	ReasonSkipped:             ErrSkipped,
}

// Failure is the terminal error of one attempt. It matches the Err* value of
// its Reason with errors.Is and unwraps to the underlying cause.
type Failure struct {
	Reason Reason
	State  State // state the session was in when it failed
	Err    error
}

func newFailure(reason Reason, state State, err error) *Failure {
	return &Failure{Reason: reason, State: state, Err: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s in state %s: %v", f.Reason, f.State, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func (f *Failure) Is(target error) bool {
	return target != nil && reasonErrors[f.Reason] == target
}

// classify turns an I/O error into a Failure. bounded is the context that
// limits the current step and is derived from parent: expiry of either one is
// a timeout, while cancellation of parent is a shutdown.
func classify(parent, bounded context.Context, state State, err error) *Failure {
	var (
		merr   *wire.MessageError
		netErr net.Error
	)
	switch {
	case errors.As(err, &merr):
		return newFailure(ReasonProtocol, state, err)
	case parent.Err() != nil:
		if errors.Is(parent.Err(), context.DeadlineExceeded) {
			return newFailure(ReasonTimeout, state, parent.Err())
		}
		return newFailure(ReasonCancelled, state, parent.Err())
	case bounded.Err() != nil:
		return newFailure(ReasonTimeout, state, bounded.Err())
	case errors.As(err, &netErr) && netErr.Timeout():
		return newFailure(ReasonTimeout, state, err)
	}
	return newFailure(ReasonConnection, state, err)
}
