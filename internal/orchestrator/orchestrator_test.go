package orchestrator

import "testing"

func TestMachineFollowsLifecycleToServing(t *testing.T) {
	m := NewMachine()
	steps := []State{StateLoading, StateIntrospecting, StatePlanning, StateExecuting, StateServing}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition(%s): %v", s, err)
		}
	}
	if m.Current() != StateServing {
		t.Fatalf("Current() = %s, want %s", m.Current(), StateServing)
	}
}

func TestMachineRejectsIllegalTransition(t *testing.T) {
	m := NewMachine()
	if err := m.Transition(StateExecuting); err == nil {
		t.Fatal("expected an error jumping straight from Initializing to Executing")
	}
	if m.Current() != StateInitializing {
		t.Fatalf("an illegal transition should not move current state, got %s", m.Current())
	}
}

func TestMachineServingReconcilingLoop(t *testing.T) {
	m := NewMachine()
	for _, s := range []State{StateLoading, StateIntrospecting, StatePlanning, StateExecuting, StateServing} {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition(%s): %v", s, err)
		}
	}

	if err := m.Transition(StateReconciling); err != nil {
		t.Fatalf("Serving -> Reconciling: %v", err)
	}
	if err := m.Transition(StateServing); err != nil {
		t.Fatalf("Reconciling -> Serving: %v", err)
	}
	if err := m.Transition(StateReconciling); err != nil {
		t.Fatalf("Serving -> Reconciling (again): %v", err)
	}
	if err := m.Transition(StatePlanning); err != nil {
		t.Fatalf("Reconciling -> Planning: %v", err)
	}
}

func TestEveryNonTerminalStateCanTerminate(t *testing.T) {
	for state := range transitions {
		if state == StateTerminating {
			continue
		}
		m := &Machine{current: state}
		if err := m.Transition(StateTerminating); err != nil {
			t.Fatalf("%s -> Terminating should always be legal, got: %v", state, err)
		}
	}
}
