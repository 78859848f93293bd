package command

import (
	"io"
)

// Evaluator resolves expressions against mission variables.
type Evaluator interface {
	EvalCondition(c Condition, vars map[string]any) (bool, error)
	Eval(expr string, vars map[string]any) (any, error)
}

// Reporter receives diagnostics while a sequence runs. None of its methods
// influence control flow.
type Reporter interface {
	CommandStarted(c Command)
	BranchSelected(c Container, branch int)
	BranchExited(c Container, branch int)
	Snapshot(s Snapshot)
}

// Snapshot is the state of a branch command at the end of one Execute.
type Snapshot struct {
	Node          NodeID
	Kind          Kind
	Name          string
	Tick          uint64
	ActiveBranch  int
	BranchRunning bool
	Running       bool
	Complete      bool
	Conditions    []bool
}

// Runtime is what a command sees of the run sandbox while it executes.
type Runtime struct {
	Seq      *Sequence
	Eval     Evaluator
	Vars     map[string]any
	Out      io.Writer
	Reporter Reporter

	// MaxLoopIterations bounds the body passes of one While or For pass;
	// zero means unbounded.
	MaxLoopIterations int

	Tick    uint64
	Stopped bool
}

// Enter tells the reporter that c is about to execute, if it is starting a
// fresh pass rather than resuming.
func (rt *Runtime) Enter(c Command) {
	if rt.Reporter != nil && !c.Running() {
		rt.Reporter.CommandStarted(c)
	}
}

func (rt *Runtime) branchSelected(c Container, branch int) {
	if rt.Reporter != nil {
		rt.Reporter.BranchSelected(c, branch)
	}
}

func (rt *Runtime) branchExited(c Container, branch int) {
	if rt.Reporter != nil {
		rt.Reporter.BranchExited(c, branch)
	}
}

func (rt *Runtime) snapshot(c Container, results []bool) {
	if rt.Reporter == nil {
		return
	}
	rt.Reporter.Snapshot(Snapshot{
		Node:          c.ID(),
		Kind:          c.Kind(),
		Name:          c.Name(),
		Tick:          rt.Tick,
		ActiveBranch:  c.ActiveBranch(),
		BranchRunning: c.BranchRunning(),
		Running:       c.Running(),
		Complete:      c.Complete(),
		Conditions:    results,
	})
}

func (rt *Runtime) out() io.Writer {
	if rt.Out == nil {
		return io.Discard
	}
	return rt.Out
}
