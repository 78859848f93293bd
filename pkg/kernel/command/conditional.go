package command

import (
	"fmt"
	"strings"
)

// Condition is one comparison of a predicate.
type Condition struct {
	Left  string
	Op    string
	Right string
}

func (c Condition) String() string {
	return c.Left + " " + c.Op + " " + c.Right
}

// Connective joins two conditions.
type Connective uint8

const (
	And Connective = iota
	Or
)

func (c Connective) String() string {
	if c == Or {
		return "|"
	}
	return "&"
}

// Predicate is an ordered list of conditions combined left to right.
type Predicate struct {
	conds []Condition
	conns []Connective
}

// NewPredicate builds a predicate; conns joins conds[i] and conds[i+1].
func NewPredicate(conds []Condition, conns []Connective) (Predicate, error) {
	if len(conds) == 0 {
		return Predicate{}, ErrNoConditions
	}
	if len(conns) != len(conds)-1 {
		return Predicate{}, fmt.Errorf("predicate: %d conditions need %d connectives, got %d",
			len(conds), len(conds)-1, len(conns))
	}
	return Predicate{conds: conds, conns: conns}, nil
}

// Conditions returns the conditions in order.
func (p Predicate) Conditions() []Condition { return p.conds }

// Connectives returns the connectives in order.
func (p Predicate) Connectives() []Connective { return p.conns }

// Evaluate evaluates every condition and combines the results left to
// right, with no precedence between & and |.
func (p Predicate) Evaluate(rt *Runtime) (bool, []bool, error) {
	if len(p.conds) == 0 {
		return false, nil, ErrNoConditions
	}
	results := make([]bool, len(p.conds))
	for i, c := range p.conds {
		ok, err := rt.Eval.EvalCondition(c, rt.Vars)
		if err != nil {
			return false, results[:i], fmt.Errorf("condition %q: %w", c.String(), err)
		}
		results[i] = ok
	}
	acc := results[0]
	for i, conn := range p.conns {
		switch conn {
		case And:
			acc = acc && results[i+1]
		case Or:
			acc = acc || results[i+1]
		}
	}
	return acc, results, nil
}

func (p Predicate) String() string {
	var b strings.Builder
	for i, c := range p.conds {
		if i > 0 {
			b.WriteString(" " + p.conns[i-1].String() + " ")
		}
		b.WriteString(c.String())
	}
	return b.String()
}

// Conditional is a branch container guarded by a predicate.
type Conditional struct {
	BranchContainer
	Predicate

	// results of the last evaluation in this pass, for diagnostics only
	lastResults []bool
}

func newConditional(kind Kind, p Predicate) Conditional {
	return Conditional{BranchContainer: newBranchContainer(kind), Predicate: p}
}

// EvaluateAllConditions evaluates the predicate now; results are never
// reused across ticks.
func (c *Conditional) EvaluateAllConditions(rt *Runtime) (bool, error) {
	ok, results, err := c.Predicate.Evaluate(rt)
	c.lastResults = results
	return ok, err
}

// LastResults are the per-condition results of the latest evaluation.
func (c *Conditional) LastResults() []bool { return c.lastResults }

// resetConditions is the per-pass reset hook.
func (c *Conditional) resetConditions() {
	c.lastResults = nil
}

func (c *Conditional) Reset() {
	c.BranchContainer.Reset()
	c.resetConditions()
}

func (c *Conditional) Text() string {
	return c.keyword() + " " + c.Predicate.String()
}
