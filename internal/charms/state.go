package charms

import "fmt"

// State is a step of the override deploy.
type State string

const (
	StateStart           State = "start"
	StateTryOverride     State = "try-override"
	StateSuccess         State = "success"
	StateFallbackDefault State = "fallback-default"
	StateDone            State = "done"
)

// tracker records the path through the override deploy and rejects
// transitions the deploy never makes.
type tracker struct {
	states []State
}

func newTracker() *tracker {
	return &tracker{states: []State{StateStart}}
}

func (t *tracker) current() State {
	return t.states[len(t.states)-1]
}

func (t *tracker) advance(to State) error {
	from := t.current()
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed deploy transition: %s -> %s", from, to)
	}
	t.states = append(t.states, to)
	return nil
}

// path returns the recorded states.
func (t *tracker) path() []State {
	out := make([]State, len(t.states))
	copy(out, t.states)
	return out
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case StateStart:
		return to == StateTryOverride
	case StateTryOverride:
		return to == StateSuccess || to == StateFallbackDefault
	case StateSuccess, StateFallbackDefault:
		return to == StateDone
	default:
		return false
	}
}
