// Package eval evaluates mission expressions. Conditions, Set values,
// Report values and For bounds are expr-lang expressions over the mission
// variables; free text such as a mission description may use Go
// text/template placeholders.
package eval

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
)

// Operators maps the comparison operators accepted in a condition to their
// expr-lang spelling.
var Operators = map[string]string{
	"==": "==",
	"~=": "!=",
	"!=": "!=",
	"<":  "<",
	">":  ">",
	"<=": "<=",
	">=": ">=",
}

// Evaluator implements command.Evaluator with expr-lang.
type Evaluator struct{}

// New returns an Evaluator.
func New() *Evaluator { return &Evaluator{} }

var _ command.Evaluator = (*Evaluator)(nil)

// Eval compiles src against vars and returns its value.
func (e *Evaluator) Eval(src string, vars map[string]any) (any, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty expression")
	}
	env := envOf(vars)
	program, err := expr.Compile(src, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", src, err)
	}
	return out, nil
}

// EvalBool evaluates src as a boolean expression.
func (e *Evaluator) EvalBool(src string, vars map[string]any) (bool, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return false, fmt.Errorf("empty condition")
	}
	env := envOf(vars)
	program, err := expr.Compile(src, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile condition %q: %w", src, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("eval condition %q: %w", src, err)
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not return bool (got %T: %v)", src, out, out)
	}
	return result, nil
}

// EvalCondition evaluates one left-op-right comparison.
func (e *Evaluator) EvalCondition(c command.Condition, vars map[string]any) (bool, error) {
	src, err := ConditionExpr(c)
	if err != nil {
		return false, err
	}
	return e.EvalBool(src, vars)
}

// ConditionExpr renders c as an expr-lang expression.
func ConditionExpr(c command.Condition) (string, error) {
	op, ok := Operators[c.Op]
	if !ok {
		return "", fmt.Errorf("unknown operator %q", c.Op)
	}
	return "(" + c.Left + ") " + op + " (" + c.Right + ")", nil
}

// Check parses src without evaluating it.
func Check(src string) error {
	if strings.TrimSpace(src) == "" {
		return fmt.Errorf("empty expression")
	}
	if _, err := parser.Parse(src); err != nil {
		return fmt.Errorf("parse %q: %w", src, err)
	}
	return nil
}

// Identifiers returns the sorted set of top-level names src refers to.
func Identifiers(src string) ([]string, error) {
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	v := &identVisitor{seen: map[string]bool{}}
	ast.Walk(&tree.Node, v)
	names := make([]string, 0, len(v.seen))
	for n := range v.seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

type identVisitor struct {
	seen map[string]bool
}

func (v *identVisitor) Visit(node *ast.Node) {
	if id, ok := (*node).(*ast.IdentifierNode); ok {
		v.seen[id.Value] = true
	}
}

// envOf never returns nil so that compile-time name checks still apply to
// a mission without variables.
func envOf(vars map[string]any) map[string]any {
	if vars == nil {
		return map[string]any{}
	}
	return vars
}

// Resolve renders a text/template string against the mission variables.
// Example: Resolve("target {{ .alt }} km", {"alt": 400}) → "target 400 km"
func Resolve(tmpl string, vars map[string]any) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil // fast path for literals
	}

	t, err := template.New("").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("template parse: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("template eval: %w", err)
	}
	return buf.String(), nil
}
