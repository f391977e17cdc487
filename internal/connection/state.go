package connection

// State is the lifecycle state of a Manager
type State int

const (
	StateConnecting State = iota // Handshake in progress (or not yet started)
	StateOpen                    // Frames flow both ways
	StateClosed                  // Terminal
	StateErrored                 // Transport failure; always followed by Closed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}
