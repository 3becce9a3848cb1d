package longchat

// ConnectionState represents the current state of the connection.
type ConnectionState int

const (
	// StateDisconnected means the client holds no transport, possibly with a
	// reconnect pending.
	StateDisconnected ConnectionState = iota

	// StateConnecting means a dial is in flight.
	StateConnecting

	// StateOpen means the transport is established and frames flow.
	StateOpen

	// StateClosing means the client is shutting the connection down on
	// purpose; auto-reconnect is suppressed.
	StateClosing
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// StateEvent describes one state transition.
type StateEvent struct {
	Old ConnectionState
	New ConnectionState
	Err error // cause, when the transition was fault-driven
}
