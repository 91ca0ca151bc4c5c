package core

// Frame is a marshaled outbound event.
type Frame []byte

// SessionID identifies one live connection.
type SessionID string

// SignalConnection abstracts the messaging transport of a session.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
