package fetcher

import (
	"repocard/models"
)

// Phase discriminates the variants of State
type Phase int

const (
	Idle Phase = iota
	Loading
	Success
	Failure
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// State is the card's fetch state. Payload is set only in Success and Err
// only in Failure.
type State struct {
	Phase     Phase
	Reference models.Reference
	Payload   *models.Payload
	Err       error
}

// Settled reports whether the state is Success or Failure.
func (s State) Settled() bool {
	return s.Phase == Success || s.Phase == Failure
}

// Event is an input to Reduce
type Event interface {
	generation() uint64
}

// ReferenceSet starts a new request for Reference.
type ReferenceSet struct {
	Gen       uint64
	Reference models.Reference
}

// ReferenceRejected records an input that could not be parsed.
type ReferenceRejected struct {
	Gen uint64
	Raw string
	Err error
}

// Resolved carries the outcome of the request started by the ReferenceSet
// with the same generation.
type Resolved struct {
	Gen     uint64
	Payload *models.Payload
	Err     error
}

func (e ReferenceSet) generation() uint64      { return e.Gen }
func (e ReferenceRejected) generation() uint64 { return e.Gen }
func (e Resolved) generation() uint64          { return e.Gen }

// Reduce applies ev to s. current is the controller's current generation;
// a Resolved event from any other generation, or one arriving when s is not
// Loading, leaves s unchanged.
func Reduce(s State, current uint64, ev Event) State {
	switch e := ev.(type) {
	case ReferenceSet:
		return State{Phase: Loading, Reference: e.Reference}
	case ReferenceRejected:
		return State{Phase: Failure, Reference: models.Reference{Raw: e.Raw}, Err: e.Err}
	case Resolved:
		if e.Gen != current || s.Phase != Loading {
			return s
		}
		if e.Err != nil {
			return State{Phase: Failure, Reference: s.Reference, Err: e.Err}
		}
		return State{Phase: Success, Reference: s.Reference, Payload: e.Payload}
	default:
		return s
	}
}
