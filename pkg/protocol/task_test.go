package protocol

import "testing"

func TestTaskState_IsTerminal(t *testing.T) {
	t.Parallel()

	terminal := []TaskState{TaskStateCompleted, TaskStateFailed, TaskStateCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s: expected terminal", s)
		}
	}

	live := []TaskState{TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired}
	for _, s := range live {
		if s.IsTerminal() {
			t.Errorf("%s: expected non-terminal", s)
		}
	}
}

func TestCanTransition_LegalPaths(t *testing.T) {
	t.Parallel()

	legal := []struct{ from, to TaskState }{
		{TaskStateSubmitted, TaskStateWorking},
		{TaskStateSubmitted, TaskStateCancelled},
		{TaskStateWorking, TaskStateInputRequired},
		{TaskStateWorking, TaskStateCompleted},
		{TaskStateWorking, TaskStateFailed},
		{TaskStateWorking, TaskStateCancelled},
		{TaskStateInputRequired, TaskStateWorking},
		{TaskStateInputRequired, TaskStateCancelled},
		{TaskStateInputRequired, TaskStateFailed},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s: expected legal", tc.from, tc.to)
		}
	}
}

func TestCanTransition_TerminalStatesAcceptNothing(t *testing.T) {
	t.Parallel()

	all := []TaskState{
		TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired,
		TaskStateCompleted, TaskStateFailed, TaskStateCancelled,
	}
	for _, from := range []TaskState{TaskStateCompleted, TaskStateFailed, TaskStateCancelled} {
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("%s -> %s: terminal state must not transition", from, to)
			}
		}
	}
}

func TestCanTransition_NoReentryExceptWorkingCycle(t *testing.T) {
	t.Parallel()

	// A task may not return to submitted, and working may only be re-entered
	// from input-required.
	if CanTransition(TaskStateWorking, TaskStateSubmitted) {
		t.Error("working -> submitted must be illegal")
	}
	if CanTransition(TaskStateInputRequired, TaskStateSubmitted) {
		t.Error("input-required -> submitted must be illegal")
	}
	if !CanTransition(TaskStateInputRequired, TaskStateWorking) {
		t.Error("input-required -> working must be legal (resume)")
	}
}
