package command

import (
	"fmt"
	"strconv"
	"testing"
)

// fakeEval answers conditions from scripted result lists keyed by the
// condition's left-hand side; the last result repeats.
type fakeEval struct {
	conds map[string][]bool
	calls map[string]int
}

func newFakeEval(conds map[string][]bool) *fakeEval {
	return &fakeEval{conds: conds, calls: make(map[string]int)}
}

func (f *fakeEval) EvalCondition(c Condition, vars map[string]any) (bool, error) {
	results, ok := f.conds[c.Left]
	if !ok {
		return false, fmt.Errorf("unknown name %q", c.Left)
	}
	n := f.calls[c.Left]
	f.calls[c.Left]++
	if n >= len(results) {
		n = len(results) - 1
	}
	return results[n], nil
}

func (f *fakeEval) Eval(expr string, vars map[string]any) (any, error) {
	if v, ok := vars[expr]; ok {
		return v, nil
	}
	if n, err := strconv.Atoi(expr); err == nil {
		return n, nil
	}
	return strconv.ParseFloat(expr, 64)
}

// soft completes in one tick but reports the tick as unsuccessful.
type soft struct{ Base }

func newSoft() *soft { return &soft{Base: newBase(KindNoOp)} }

func (c *soft) Text() string { return "soft" }

func (c *soft) Execute(rt *Runtime) (bool, error) {
	c.complete = true
	return false, nil
}

type recorder struct {
	started   []string
	selected  []int
	exited    []int
	snapshots []Snapshot
}

func (r *recorder) CommandStarted(c Command)               { r.started = append(r.started, c.Name()) }
func (r *recorder) BranchSelected(c Container, branch int) { r.selected = append(r.selected, branch) }
func (r *recorder) BranchExited(c Container, branch int)   { r.exited = append(r.exited, branch) }
func (r *recorder) Snapshot(s Snapshot)                    { r.snapshots = append(r.snapshots, s) }

func pred(t *testing.T, names ...string) Predicate {
	t.Helper()
	conds := make([]Condition, len(names))
	conns := make([]Connective, 0, len(names))
	for i, n := range names {
		conds[i] = Condition{Left: n, Op: "==", Right: "true"}
		if i > 0 {
			conns = append(conns, And)
		}
	}
	p, err := NewPredicate(conds, conns)
	if err != nil {
		t.Fatalf("NewPredicate: %v", err)
	}
	return p
}

func labeled[C Command](c C, label string) C {
	c.node().SetSource(0, label)
	return c
}

func build(t *testing.T, cmds ...Command) *Sequence {
	t.Helper()
	seq := NewSequence()
	for _, c := range cmds {
		if err := seq.Append(c); err != nil {
			t.Fatalf("Append %s: %v", c.Name(), err)
		}
	}
	if err := seq.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return seq
}

func newRuntime(seq *Sequence, ev Evaluator, rep Reporter) *Runtime {
	seq.BeginRun()
	return &Runtime{Seq: seq, Eval: ev, Vars: map[string]any{}, Reporter: rep}
}

// drive walks the trunk the way the engine does and returns the tick count.
func drive(t *testing.T, rt *Runtime, limit int) int {
	t.Helper()
	ticks := 0
	for id := rt.Seq.Head(); id != NoNode && !rt.Stopped; {
		if ticks >= limit {
			t.Fatalf("sequence still running after %d ticks", limit)
		}
		ticks++
		rt.Tick++
		c := rt.Seq.Node(id)
		rt.Enter(c)
		if _, err := c.Execute(rt); err != nil {
			t.Fatalf("tick %d: %v", ticks, err)
		}
		if !c.Running() {
			id = c.Next()
		}
	}
	return ticks
}
