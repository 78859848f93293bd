package command

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWait_Ticks(t *testing.T) {
	for _, n := range []int{0, 1, 4} {
		w := NewWait(n)
		rt := newRuntime(build(t, w), newFakeEval(nil), nil)
		calls := 0
		for {
			calls++
			if _, err := w.Execute(rt); err != nil {
				t.Fatal(err)
			}
			if !w.Running() {
				break
			}
		}
		want := max(n, 1)
		if calls != want {
			t.Errorf("Wait %d took %d calls, want %d", n, calls, want)
		}
	}
}

func TestSet_NestedTarget(t *testing.T) {
	seq := build(t, NewSet("sat.x", "7"), NewSet("n", "2"))
	rt := newRuntime(seq, newFakeEval(nil), nil)
	drive(t, rt, 10)

	want := map[string]any{"sat": map[string]any{"x": 7}, "n": 2}
	if diff := cmp.Diff(want, rt.Vars); diff != "" {
		t.Errorf("vars mismatch (-want +got):\n%s", diff)
	}
}

func TestSet_NotAssignable(t *testing.T) {
	s := NewSet("n.x", "1")
	rt := newRuntime(build(t, s), newFakeEval(nil), nil)
	rt.Vars["n"] = 3
	if _, err := s.Execute(rt); !errors.Is(err, ErrNotAssignable) {
		t.Errorf("err = %v, want ErrNotAssignable", err)
	}
}

func TestReport_Output(t *testing.T) {
	seq := build(t, labeled(NewReport("a", "2"), "pos"), NewReport("a"))
	var out bytes.Buffer
	rt := newRuntime(seq, newFakeEval(nil), nil)
	rt.Out = &out
	rt.Vars["a"] = "x"
	drive(t, rt, 10)

	if got, want := out.String(), "pos: x 2\nx\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestStop_EndsRun(t *testing.T) {
	seq := build(t, NewNoOp(), NewStop(), labeled(NewNoOp(), "unreached"))
	rec := &recorder{}
	rt := newRuntime(seq, newFakeEval(nil), rec)
	if ticks := drive(t, rt, 10); ticks != 2 {
		t.Errorf("ticks = %d, want 2", ticks)
	}
	for _, name := range rec.started {
		if name == "unreached" {
			t.Error("command after Stop started")
		}
	}
}
