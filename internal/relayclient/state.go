package relayclient

// State is the lifecycle of one relay connection.
//
//	Disconnected -> Connecting -> Connected -> Closing -> Disconnected
//	                                 |
//	                                 v
//	                Erroring -> Reconnecting -> Connecting
//
// Only Close (or cancelling Run's context) leads to the terminal
// Disconnected state. Every other loss of the connection goes through
// Reconnecting, which waits a fixed delay.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Closing
	Erroring
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	case Erroring:
		return "erroring"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Erroring -> Disconnected is taken only when the server rejects the
// credential; reconnecting with it again cannot succeed.
var transitions = map[State][]State{
	Disconnected: {Connecting},
	Connecting:   {Connected, Erroring, Closing},
	Connected:    {Closing, Erroring},
	Closing:      {Disconnected},
	Erroring:     {Reconnecting, Closing, Disconnected},
	Reconnecting: {Connecting, Closing},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
