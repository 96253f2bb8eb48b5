package engine

// State is the lifecycle stage of an Engine.
type State int

const (
	// StateConnecting is the initial state; the stream opens on the first poll.
	StateConnecting State = iota
	// StateStreaming means the stream is open and messages are being processed.
	StateStreaming
	// StateTerminated means the provider ended the stream.
	StateTerminated
	// StateFaulted means an unrecoverable error was returned.
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateTerminated:
		return "terminated"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Done reports whether no further messages will be produced.
func (s State) Done() bool {
	return s == StateTerminated || s == StateFaulted
}
