package command

import "fmt"

// If runs its first branch when its predicate holds, otherwise the first
// alternate (ElseIf whose predicate holds, or Else), otherwise nothing.
type If struct {
	Conditional
	structure

	// alternates[i] is the ElseIf or Else node that opened branch i+1.
	alternates []NodeID
	sawElse    bool
}

// NewIf creates an If guarded by p.
func NewIf(p Predicate) *If {
	return &If{
		Conditional: newConditional(KindIf, p),
		structure:   structure{family: IfFamily},
	}
}

// Append assembles the If: commands go to the open branch, Else and ElseIf
// start the next branch, and EndIf closes the If, unless they belong to an
// If nested inside the open branch.
func (c *If) Append(seq *Sequence, id NodeID) error {
	wasOpen := c.Open()
	if err := c.BranchContainer.Append(seq, id); err != nil {
		return err
	}
	cmd := seq.Node(id)
	if wasOpen && c.nestDepth == 0 && c.sawElse && c.family.IsAlternate(cmd.Kind()) {
		return fmt.Errorf("%w: %s at line %d", ErrAlternateAfterElse, cmd.Kind(), cmd.Line())
	}
	asm, err := c.track(seq, &c.BranchContainer, wasOpen, cmd)
	if err != nil {
		return err
	}
	if asm == asmAlternate {
		c.alternates = append(c.alternates, id)
		if cmd.Kind() == KindElse {
			c.sawElse = true
		}
	}
	return nil
}

// Execute selects a branch on a fresh pass and then resumes it one tick
// per call until it has finished.
func (c *If) Execute(rt *Runtime) (bool, error) {
	if c.branchRunning {
		if err := c.checkResume(rt); err != nil {
			return false, err
		}
		ok, err := c.ExecuteBranch(rt, c.activeBranch)
		if err != nil {
			return false, err
		}
		if !c.branchRunning {
			c.complete = true
			c.running = false
			rt.branchExited(c, c.activeBranch)
		}
		rt.snapshot(c, c.lastResults)
		return ok, nil
	}

	if !c.running {
		c.resetConditions()
	}
	which, err := c.selectBranch(rt)
	if err != nil {
		return false, err
	}
	if which == NoBranch {
		c.skip()
	} else {
		c.startBranch(which, rt.Seq.Epoch())
	}
	rt.branchSelected(c, which)
	rt.snapshot(c, c.lastResults)
	return true, nil
}

func (c *If) selectBranch(rt *Runtime) (int, error) {
	ok, err := c.EvaluateAllConditions(rt)
	if err != nil {
		return NoBranch, err
	}
	if ok {
		return 0, nil
	}
	for i, alt := range c.alternates {
		elseIf, conditional := rt.Seq.Node(alt).(*ElseIf)
		if !conditional {
			return i + 1, nil
		}
		hold, _, err := elseIf.Evaluate(rt)
		if err != nil {
			return NoBranch, err
		}
		if hold {
			return i + 1, nil
		}
	}
	return NoBranch, nil
}
