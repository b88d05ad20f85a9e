package core

import "errors"

// Frame is one outbound payload: a JSON message for sockets, a text fragment for streams.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

//go:generate mockgen -source=signal_iface.go -destination=coremock/signal_iface_mock.go -package=coremock

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// ID is unique per physical connection; a reconnect gets a new one.
	ID() string
	TrySend(Frame) error
	Close()
}
