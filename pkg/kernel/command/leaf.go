package command

import (
	"fmt"
	"strconv"
	"strings"
)

// NoOp does nothing for one tick.
type NoOp struct{ Base }

func NewNoOp() *NoOp { return &NoOp{Base: newBase(KindNoOp)} }

func (c *NoOp) Text() string { return c.keyword() }

func (c *NoOp) Execute(rt *Runtime) (bool, error) {
	c.complete = true
	return true, nil
}

// Set assigns the value of an expression to a mission variable. Dotted
// targets assign into nested maps.
type Set struct {
	Base
	Target string
	Expr   string
}

func NewSet(target, expr string) *Set {
	return &Set{Base: newBase(KindSet), Target: target, Expr: expr}
}

func (c *Set) Text() string {
	return fmt.Sprintf("%s %s = %s", c.keyword(), c.Target, c.Expr)
}

func (c *Set) Execute(rt *Runtime) (bool, error) {
	v, err := rt.Eval.Eval(c.Expr, rt.Vars)
	if err != nil {
		return false, fmt.Errorf("set %s: %w", c.Target, err)
	}
	if err := assign(rt.Vars, c.Target, v); err != nil {
		return false, err
	}
	c.complete = true
	return true, nil
}

// Wait stays running for a number of ticks. It stands in for the
// long-running commands of a mission, such as propagation.
type Wait struct {
	Base
	Ticks     int
	remaining int
}

func NewWait(ticks int) *Wait {
	return &Wait{Base: newBase(KindWait), Ticks: ticks}
}

func (c *Wait) Text() string {
	return c.keyword() + " " + strconv.Itoa(c.Ticks)
}

// Remaining is the number of ticks left in the current pass.
func (c *Wait) Remaining() int { return c.remaining }

func (c *Wait) Execute(rt *Runtime) (bool, error) {
	if !c.running {
		c.remaining = c.Ticks
		c.running = true
		c.complete = false
	}
	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.running = false
		c.complete = true
	}
	return true, nil
}

func (c *Wait) Reset() {
	c.Base.Reset()
	c.remaining = 0
}

// Report writes the values of its expressions to the run output.
type Report struct {
	Base
	Exprs []string
}

func NewReport(exprs ...string) *Report {
	return &Report{Base: newBase(KindReport), Exprs: exprs}
}

func (c *Report) Text() string {
	return c.keyword() + " " + strings.Join(c.Exprs, ", ")
}

func (c *Report) Execute(rt *Runtime) (bool, error) {
	vals := make([]string, len(c.Exprs))
	for i, e := range c.Exprs {
		v, err := rt.Eval.Eval(e, rt.Vars)
		if err != nil {
			return false, fmt.Errorf("report %q: %w", e, err)
		}
		vals[i] = fmt.Sprint(v)
	}
	prefix := ""
	if c.label != "" {
		prefix = c.label + ": "
	}
	fmt.Fprintln(rt.out(), prefix+strings.Join(vals, " "))
	c.complete = true
	return true, nil
}

// Stop ends the run.
type Stop struct{ Base }

func NewStop() *Stop { return &Stop{Base: newBase(KindStop)} }

func (c *Stop) Text() string { return c.keyword() }

func (c *Stop) Execute(rt *Runtime) (bool, error) {
	rt.Stopped = true
	c.complete = true
	return true, nil
}

// assign sets vars[path] where path may be dotted, creating intermediate
// maps as needed.
func assign(vars map[string]any, path string, v any) error {
	parts := strings.Split(path, ".")
	m := vars
	for i, p := range parts[:len(parts)-1] {
		next, ok := m[p]
		if !ok {
			child := make(map[string]any)
			m[p] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s is %T", ErrNotAssignable, strings.Join(parts[:i+1], "."), next)
		}
		m = child
	}
	m[parts[len(parts)-1]] = v
	return nil
}
