package command

import "fmt"

// While repeats its single branch for as long as its predicate holds.
type While struct {
	Conditional
	structure
	iterations int
}

// NewWhile creates a While guarded by p.
func NewWhile(p Predicate) *While {
	return &While{
		Conditional: newConditional(KindWhile, p),
		structure:   structure{family: WhileFamily},
	}
}

func (c *While) Append(seq *Sequence, id NodeID) error {
	wasOpen := c.Open()
	if err := c.BranchContainer.Append(seq, id); err != nil {
		return err
	}
	_, err := c.track(seq, &c.BranchContainer, wasOpen, seq.Node(id))
	return err
}

// Iterations is the number of body passes finished in the current pass.
func (c *While) Iterations() int { return c.iterations }

// Execute evaluates the predicate whenever the body is not running. After
// a body pass the While stays running so that the driver calls it again.
func (c *While) Execute(rt *Runtime) (bool, error) {
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
		rt.snapshot(c, c.lastResults)
		return ok, nil
	}

	if !c.running {
		c.resetConditions()
		c.iterations = 0
	}
	ok, err := c.EvaluateAllConditions(rt)
	if err != nil {
		return false, err
	}
	which := NoBranch
	if ok {
		if rt.MaxLoopIterations > 0 && c.iterations >= rt.MaxLoopIterations {
			return false, fmt.Errorf("%w: %s at line %d ran %d times", ErrLoopLimit, c.kind, c.line, c.iterations)
		}
		which = 0
		c.startBranch(0, rt.Seq.Epoch())
	} else {
		c.skip()
	}
	rt.branchSelected(c, which)
	rt.snapshot(c, c.lastResults)
	return true, nil
}

func (c *While) Reset() {
	c.Conditional.Reset()
	c.iterations = 0
}
