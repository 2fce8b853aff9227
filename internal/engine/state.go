package engine

import "sync/atomic"

// State is the scanning gate.
type State int32

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// gate holds a State for concurrent readers.
type gate struct{ v atomic.Int32 }

func (g *gate) load() State { return State(g.v.Load()) }

// swap sets the state and reports whether it changed.
func (g *gate) swap(s State) bool { return State(g.v.Swap(int32(s))) != s }
