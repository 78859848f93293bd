package command

import (
	"fmt"
	"math"
	"strconv"
)

// For runs its branch once per value of Var from Start to End by Step.
// The bounds are expressions evaluated at the start of each fresh pass.
type For struct {
	BranchContainer
	structure

	Var   string
	Start string
	Step  string
	End   string

	start      float64
	step       float64
	passes     int
	iterations int
}

// NewFor creates a For loop. An empty step means 1.
func NewFor(variable, start, step, end string) *For {
	if step == "" {
		step = "1"
	}
	return &For{
		BranchContainer: newBranchContainer(KindFor),
		structure:       structure{family: ForFamily},
		Var:             variable,
		Start:           start,
		Step:            step,
		End:             end,
	}
}

func (c *For) Append(seq *Sequence, id NodeID) error {
	wasOpen := c.Open()
	if err := c.BranchContainer.Append(seq, id); err != nil {
		return err
	}
	_, err := c.track(seq, &c.BranchContainer, wasOpen, seq.Node(id))
	return err
}

func (c *For) Text() string {
	return fmt.Sprintf("%s %s = %s:%s:%s", c.keyword(), c.Var, c.Start, c.Step, c.End)
}

// Iterations is the number of body passes finished in the current pass.
func (c *For) Iterations() int { return c.iterations }

func (c *For) Execute(rt *Runtime) (bool, error) {
	if c.branchRunning {
		if err := c.checkResume(rt); err != nil {
			return false, err
		}
		ok, err := c.ExecuteBranch(rt, 0)
		if err != nil {
			return false, err
		}
		if !c.branchRunning {
			c.iterations++
			rt.branchExited(c, 0)
		}
		rt.snapshot(c, nil)
		return ok, nil
	}

	if !c.running {
		if err := c.bounds(rt); err != nil {
			return false, err
		}
		c.iterations = 0
	}
	which := NoBranch
	if c.inRange() {
		if rt.MaxLoopIterations > 0 && c.iterations >= rt.MaxLoopIterations {
			return false, fmt.Errorf("%w: %s at line %d ran %d times", ErrLoopLimit, c.kind, c.line, c.iterations)
		}
		if err := assign(rt.Vars, c.Var, number(c.value(c.iterations))); err != nil {
			return false, err
		}
		which = 0
		c.startBranch(0, rt.Seq.Epoch())
	} else {
		c.skip()
	}
	rt.branchSelected(c, which)
	rt.snapshot(c, nil)
	return true, nil
}

func (c *For) bounds(rt *Runtime) error {
	vals := make([]float64, 3)
	for i, src := range []string{c.Start, c.Step, c.End} {
		v, err := rt.Eval.Eval(src, rt.Vars)
		if err != nil {
			return fmt.Errorf("For bound %q: %w", src, err)
		}
		f, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("For bound %q is %T, not a number", src, v)
		}
		vals[i] = f
	}
	if vals[1] == 0 {
		return fmt.Errorf("%w: %s at line %d", ErrZeroStep, c.kind, c.line)
	}
	c.start, c.step = vals[0], vals[1]
	c.passes = passCount(vals[0], vals[1], vals[2])
	return nil
}

func (c *For) inRange() bool { return c.iterations < c.passes }

// value is the loop variable on pass k. It is computed from the start
// rather than accumulated so that fractional steps do not drift.
func (c *For) value(k int) float64 {
	return roundSignificant(c.start + float64(k)*c.step)
}

// passCount is the number of values in start:step:end. A range whose end
// falls within rounding error of a step boundary includes that boundary.
func passCount(start, step, end float64) int {
	q := (end - start) / step
	switch {
	case math.IsNaN(q) || q < 0:
		return 0
	case q >= math.MaxInt32:
		return math.MaxInt32
	}
	return int(math.Floor(q+rangeTolerance*math.Max(1, q))) + 1
}

const rangeTolerance = 1e-10

// roundSignificant drops the binary noise below 15 significant digits.
func roundSignificant(f float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', 15, 64), 64)
	if err != nil {
		return f
	}
	return r
}

func (c *For) Reset() {
	c.BranchContainer.Reset()
	c.iterations = 0
	c.passes = 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// number stores whole values as int so that they print and compare like
// the literals a script author wrote.
func number(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int(f)
	}
	return f
}
