package network

import "fmt"

// State is the position of a session in the version/verack exchange.
type State uint8

const (
	StateInit State = iota
	StateVersionSent
	StateVersionReceived
	StateAckSent
	StateAckReceived
	StateEstablished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateVersionSent:
		return "VersionSent"
	case StateVersionReceived:
		return "VersionReceived"
	case StateAckSent:
		return "AckSent"
	case StateAckReceived:
		return "AckReceived"
	case StateEstablished:
		return "Established"
	case StateFailed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	switch s {
	case StateEstablished, StateFailed:
		return true
	case StateInit, StateVersionSent, StateVersionReceived, StateAckSent, StateAckReceived:
		return false
	}
	return true
}

// Reason says why an attempt did not reach StateEstablished.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonConnection
	ReasonProtocol
	ReasonUnexpectedMessage
	ReasonVersionIncompatible
	ReasonSelfConnection
	ReasonTimeout
	// ReasonCancelled: the caller shut the batch down.
	ReasonCancelled
	// ReasonSkipped: never attempted because the established target was met.
	ReasonSkipped
)

var reasonNames = map[Reason]string{
	ReasonNone:                "none",
	ReasonConnection:          "connection",
	ReasonProtocol:            "protocol",
	ReasonUnexpectedMessage:   "unexpected_message",
	ReasonVersionIncompatible: "version_incompatible",
	ReasonSelfConnection:      "self_connection",
	ReasonTimeout:             "timeout",
	ReasonCancelled:           "cancelled",
	ReasonSkipped:             "skipped",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Reason(%d)", uint8(r))
}
