package engine

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEngine_ActivePath(t *testing.T) {
	eng := New(compile(t, "If x == 1\n  Wait 3\nEndIf\n"), RunConfig{Vars: map[string]any{"x": 1}, Stdout: io.Discard})
	for i := 0; i < 2; i++ {
		if _, err := eng.Step(); err != nil {
			t.Fatal(err)
		}
	}

	st := eng.State()
	if st.Status != StatusRunning || st.Tick != 2 {
		t.Fatalf("status=%q tick=%d", st.Status, st.Tick)
	}
	if len(st.Active) != 1 {
		t.Fatalf("active = %+v, want one frame", st.Active)
	}
	f := st.Active[0]
	if f.Kind != "If" || f.Branch != 0 {
		t.Errorf("frame = %+v", f)
	}
	if !eng.Running(f.Cursor) {
		t.Errorf("branch cursor %d not reported running", f.Cursor)
	}
	if got := eng.Sequence().Node(f.Cursor).Kind().String(); got != "Wait" {
		t.Errorf("branch cursor on %s, want Wait", got)
	}
}

func TestSaveLoadState(t *testing.T) {
	dir := t.TempDir()
	st := &State{
		RunID:   "test-run-123",
		Tick:    7,
		Status:  StatusRunning,
		Cursor:  2,
		Active:  []Frame{{Node: 2, Name: "loop", Kind: "While", Branch: 0, Cursor: 3}},
		Vars:    map[string]any{"n": float64(4)},
		Outputs: []string{"n: 3"},
	}

	if _, err := SaveState(dir, st); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	loaded, err := LoadState(dir, "test-run-123")
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if diff := cmp.Diff(st, loaded); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadState_NotFound(t *testing.T) {
	if _, err := LoadState(t.TempDir(), "nonexistent"); err == nil {
		t.Error("expected error for nonexistent state")
	}
}

func TestStateRejectsPathRunIDs(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []string{"", ".", "..", "../x", "a/b", `a\b`} {
		if _, err := LoadState(dir, id); !errors.Is(err, ErrInvalidRunID) {
			t.Errorf("LoadState(%q) = %v, want ErrInvalidRunID", id, err)
		}
		if _, err := SaveState(dir, &State{RunID: id}); !errors.Is(err, ErrInvalidRunID) {
			t.Errorf("SaveState(%q) = %v, want ErrInvalidRunID", id, err)
		}
	}
}
