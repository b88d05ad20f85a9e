package core

import "errors"

// Failure classes. None of them is fatal; each is contained to one message.
var (
	ErrMalformedInput       = errors.New("malformed input")
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrProtocolViolation    = errors.New("protocol violation")
)

type ForwardStatus int

const (
	Delivered ForwardStatus = iota
	// Suppressed means nothing needed sending (duplicate or end marker).
	Suppressed
	NoTransport
	Failed
)

func (s ForwardStatus) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Suppressed:
		return "suppressed"
	case NoTransport:
		return "no_transport"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ForwardResult reports what happened to one forwarded frame.
type ForwardResult struct {
	Status ForwardStatus
	ConnID string
	Err    error
}

func (r ForwardResult) OK() bool { return r.Status == Delivered }
