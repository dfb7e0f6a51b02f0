// Package orchestrator implements the Orchestrator (C11): the state
// machine driving a project through Initializing, Loading, Introspecting,
// Planning, Executing, and into the Serving/Reconciling loop the File
// Watcher re-enters on every filesystem change, until Terminating shuts
// everything down (§4.11).
package orchestrator

import "fmt"

// State is one node of the Orchestrator's state machine.
type State string

const (
	StateInitializing  State = "initializing"
	StateLoading       State = "loading"
	StateIntrospecting State = "introspecting"
	StatePlanning      State = "planning"
	StateExecuting     State = "executing"
	StateServing       State = "serving"
	StateReconciling   State = "reconciling"
	StateTerminating   State = "terminating"
)

// transitions enumerates the only state changes the Orchestrator permits
// (§4.11): Serving and Reconciling alternate for the lifetime of dev mode,
// an empty plan goes from Planning straight to Serving, and every state can
// fall through to Terminating.
var transitions = map[State][]State{
	StateInitializing:  {StateLoading, StateTerminating},
	StateLoading:       {StateIntrospecting, StateTerminating},
	StateIntrospecting: {StatePlanning, StateTerminating},
	StatePlanning:      {StateExecuting, StateServing, StateTerminating},
	StateExecuting:     {StateServing, StateTerminating},
	StateServing:       {StateReconciling, StateTerminating},
	StateReconciling:   {StatePlanning, StateServing, StateTerminating},
	StateTerminating:   {},
}

// Machine tracks the Orchestrator's current state and enforces that only
// legal transitions occur.
type Machine struct {
	current State
}

// NewMachine starts a Machine in StateInitializing.
func NewMachine() *Machine {
	return &Machine{current: StateInitializing}
}

// Current returns the active state.
func (m *Machine) Current() State { return m.current }

// Transition moves to next, or returns an error if next is not reachable
// from the current state.
func (m *Machine) Transition(next State) error {
	for _, allowed := range transitions[m.current] {
		if allowed == next {
			m.current = next
			return nil
		}
	}
	return fmt.Errorf("illegal transition %s -> %s", m.current, next)
}
