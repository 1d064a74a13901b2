package session

type State int

const (
	Disconnected State = iota
	Connected
	Joined
	Active
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Joined:
		return "joined"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

var transitions = map[State][]State{
	Disconnected: {Connected},
	Connected:    {Joined, Disconnected},
	Joined:       {Active, Disconnected},
	Active:       {Disconnected},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
