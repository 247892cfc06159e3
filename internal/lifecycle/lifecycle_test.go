package lifecycle

import "testing"

func testTable() Table {
	return Table{
		Initial: "draft",
		Transitions: map[State][]State{
			"draft":      {"certified"},
			"certified":  {"registered"},
			"registered": {"issued"},
		},
		Locked: map[State]bool{"registered": true, "issued": true},
	}
}

func TestGuardTransition(t *testing.T) {
	tbl := testTable()

	if err := tbl.GuardTransition("draft", "certified"); err != nil {
		t.Errorf("draft→certified should be allowed: %v", err)
	}
	if err := tbl.GuardTransition("draft", "issued"); err != ErrBadTransition {
		t.Errorf("draft→issued should be rejected, got %v", err)
	}
	if err := tbl.GuardTransition("issued", "draft"); err != ErrBadTransition {
		t.Errorf("reversal issued→draft should be rejected, got %v", err)
	}
	if err := tbl.GuardTransition("bogus", "certified"); err != ErrUnknownState {
		t.Errorf("unknown from-state should be ErrUnknownState, got %v", err)
	}
}

func TestGuardUpdate_LockedStates(t *testing.T) {
	tbl := testTable()

	for _, s := range []State{"draft", "certified"} {
		if err := tbl.GuardUpdate(s); err != nil {
			t.Errorf("GuardUpdate(%s) = %v, want nil", s, err)
		}
	}
	for _, s := range []State{"registered", "issued"} {
		if err := tbl.GuardUpdate(s); err != ErrLocked {
			t.Errorf("GuardUpdate(%s) = %v, want ErrLocked", s, err)
		}
	}
}

func TestValid(t *testing.T) {
	tbl := testTable()

	for _, s := range []State{"draft", "certified", "registered", "issued"} {
		if !tbl.Valid(s) {
			t.Errorf("Valid(%s) = false, want true", s)
		}
	}
	if tbl.Valid("archived") {
		t.Error("Valid(archived) = true, want false")
	}
}

func TestBranchingTable(t *testing.T) {
	tbl := Table{
		Initial: "suspected",
		Transitions: map[State][]State{
			"suspected":  {"confirmed"},
			"confirmed":  {"monitoring", "resolved"},
			"monitoring": {"resolved"},
		},
		Locked: map[State]bool{"resolved": true},
	}

	if err := tbl.GuardTransition("confirmed", "monitoring"); err != nil {
		t.Errorf("confirmed→monitoring: %v", err)
	}
	if err := tbl.GuardTransition("confirmed", "resolved"); err != nil {
		t.Errorf("confirmed→resolved: %v", err)
	}
	if err := tbl.GuardTransition("monitoring", "confirmed"); err != ErrBadTransition {
		t.Errorf("monitoring→confirmed should be rejected, got %v", err)
	}
	if !tbl.Valid("resolved") {
		t.Error("terminal state should be valid")
	}
}
