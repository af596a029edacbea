package call

// State is the negotiation state of one call attempt. Closed is terminal and
// reachable from anywhere; Failed is terminal for the instance (retry means a
// brand-new Negotiator). Disconnected may self-heal back to Connected unless
// the relay also reports the peer gone.
type State int

const (
	StateNew State = iota
	StateNegotiating
	StateConnected
	StateDisconnected
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the negotiator instance is done for good.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateClosed
}

// Status is what the caller sees: the small, human-readable set of call
// states. Raw transport or protocol errors never surface directly.
type Status int

const (
	StatusWaiting Status = iota
	StatusConnecting
	StatusConnected
	StatusPeerLeft
	StatusFailed
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting for peer"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusPeerLeft:
		return "peer left"
	case StatusFailed:
		return "failed"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is anything the session reports to its consumer; the UI type-switches
// on the concrete kinds below.
type Event any

// StatusEvent reports a user-visible status change. Err is set for Failed.
type StatusEvent struct {
	Status Status
	Err    error
}

// PeerMediaEvent reports the remote side toggling its tracks.
type PeerMediaEvent struct {
	Audio bool
	Video bool
}
