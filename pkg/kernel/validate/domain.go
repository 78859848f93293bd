package validate

import (
	"sort"
	"strings"

	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
	"github.com/ormasoftchile/missionseq/pkg/kernel/eval"
	"github.com/ormasoftchile/missionseq/pkg/kernel/schema"
)

// validateDomain runs mission/v0 domain rules on a compiled sequence. They
// only produce warnings: the sequence runs, but probably not as meant.
func validateDomain(m *schema.Mission, seq *command.Sequence) []*ValidationError {
	var errs []*ValidationError

	// D1: Wait 0 still costs a tick
	seq.Walk(func(c command.Command, _ int) {
		if w, ok := c.(*command.Wait); ok && w.Ticks == 0 {
			errs = append(errs, warningf("domain", sequencePath(m, c.Line()), "Wait 0 still takes one tick"))
		}
	})

	// D2: declared variables that nothing reads; names read before any
	// declaration or assignment
	errs = append(errs, validateVariables(m, seq)...)

	// D3: commands after Stop in the same chain never run
	errs = append(errs, validateUnreachable(m, seq, seq.Head())...)

	// D4: While loops whose body assigns none of the predicate's names
	seq.Walk(func(c command.Command, _ int) {
		if w, ok := c.(*command.While); ok {
			errs = append(errs, validateLoopProgress(m, seq, w)...)
		}
	})

	return errs
}

// Expressions returns the expressions c evaluates.
func Expressions(c command.Command) []string {
	switch c := c.(type) {
	case *command.If:
		return predicateExprs(c.Predicate)
	case *command.ElseIf:
		return predicateExprs(c.Predicate)
	case *command.While:
		return predicateExprs(c.Predicate)
	case *command.For:
		return []string{c.Start, c.Step, c.End}
	case *command.Set:
		return []string{c.Expr}
	case *command.Report:
		return c.Exprs
	}
	return nil
}

// Assigned returns the top-level variable c writes, if any.
func Assigned(c command.Command) string {
	switch c := c.(type) {
	case *command.Set:
		root, _, _ := strings.Cut(c.Target, ".")
		return root
	case *command.For:
		return c.Var
	}
	return ""
}

func predicateExprs(p command.Predicate) []string {
	var out []string
	for _, c := range p.Conditions() {
		out = append(out, c.Left, c.Right)
	}
	return out
}

func identifiers(c command.Command) []string {
	var names []string
	for _, e := range Expressions(c) {
		ids, err := eval.Identifiers(e)
		if err != nil {
			continue
		}
		names = append(names, ids...)
	}
	return names
}

func validateVariables(m *schema.Mission, seq *command.Sequence) []*ValidationError {
	var errs []*ValidationError
	read := map[string]bool{}
	known := map[string]bool{}
	for name := range m.Meta.Vars {
		known[name] = true
	}
	warned := map[string]bool{}
	seq.Walk(func(c command.Command, _ int) {
		for _, name := range identifiers(c) {
			read[name] = true
			if !known[name] && !warned[name] {
				warned[name] = true
				errs = append(errs, warningf("domain", sequencePath(m, c.Line()),
					"%q is read before it is declared in meta.vars or assigned", name))
			}
		}
		if name := Assigned(c); name != "" {
			known[name] = true
		}
	})

	var unused []string
	for name := range m.Meta.Vars {
		if !read[name] {
			unused = append(unused, name)
		}
	}
	sort.Strings(unused)
	for _, name := range unused {
		errs = append(errs, warningf("domain", "meta.vars."+name, "variable %q is never read", name))
	}
	return errs
}

func validateUnreachable(m *schema.Mission, seq *command.Sequence, head command.NodeID) []*ValidationError {
	var errs []*ValidationError
	stopped := false
	for id := head; id != command.NoNode; id = seq.Node(id).Next() {
		c := seq.Node(id)
		if _, closer := c.(command.Closer); stopped && !closer {
			errs = append(errs, warningf("domain", sequencePath(m, c.Line()),
				"%s is unreachable after Stop", c.Kind()))
			stopped = false
		}
		if c.Kind() == command.KindStop {
			stopped = true
		}
		if ct, ok := c.(command.Container); ok {
			for _, branch := range ct.Branches() {
				errs = append(errs, validateUnreachable(m, seq, branch)...)
			}
		}
	}
	return errs
}

func validateLoopProgress(m *schema.Mission, seq *command.Sequence, w *command.While) []*ValidationError {
	watched := map[string]bool{}
	for _, name := range identifiers(w) {
		watched[name] = true
	}
	progress := false
	seq.WalkFrom(w.Branches()[0], func(c command.Command, _ int) {
		if watched[Assigned(c)] || c.Kind() == command.KindStop {
			progress = true
		}
	})
	if progress {
		return nil
	}
	if len(watched) == 0 {
		return []*ValidationError{warningf("domain", sequencePath(m, w.Line()),
			"While predicate reads no variables; the loop can only end through the iteration limit")}
	}
	return []*ValidationError{warningf("domain", sequencePath(m, w.Line()),
		"While body never assigns %s; the loop can only end through the iteration limit",
		strings.Join(sortedKeys(watched), ", "))}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
