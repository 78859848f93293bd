// Package script turns mission sequence text into a command.Sequence.
//
// One command per line. A line starts with a keyword, optionally followed
// by a label in single quotes, then the command's arguments:
//
//	If 'burn' Sat.Fuel > 10 & Sat.Mode == "coast"
//	   Set Sat.Mode = "burn"
//	   Wait 3
//	Else
//	   Report 'low fuel' Sat.Fuel
//	EndIf
//
// % starts a comment. A line of the form `name = expr` is a Set.
package script

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
	"github.com/ormasoftchile/missionseq/pkg/kernel/eval"
)

// Error is a parse or compile error tied to a script line.
type Error struct {
	Line int
	Text string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrUnknownKeyword = errors.New("unknown command")
	ErrSyntax         = errors.New("syntax error")
)

// Parse turns every non-blank line of src into a command. Commands are not
// linked; see Compile.
func Parse(src string) ([]command.Command, error) {
	var cmds []command.Command
	for i, raw := range strings.Split(src, "\n") {
		cmd, err := ParseLine(raw, i+1)
		if err != nil {
			return nil, err
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return cmds, nil
}

// ParseLine parses one script line. It returns nil for blank and
// comment-only lines.
func ParseLine(raw string, line int) (command.Command, error) {
	text := stripComment(raw)
	if text == "" {
		return nil, nil
	}
	cmd, label, err := parseCommand(text)
	if err != nil {
		return nil, &Error{Line: line, Text: strings.TrimSpace(raw), Err: err}
	}
	command.SetSource(cmd, line, label)
	return cmd, nil
}

func parseCommand(text string) (cmd command.Command, label string, err error) {
	word, rest := text, ""
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		word, rest = text[:i], text[i+1:]
	}
	kind, ok := command.ParseKind(word)
	if !ok {
		if findAssign(text) > 0 {
			cmd, err = parseSet(text)
			return cmd, "", err
		}
		return nil, "", fmt.Errorf("%w %q", ErrUnknownKeyword, word)
	}
	label, args, err := splitLabel(strings.TrimSpace(rest))
	if err != nil {
		return nil, "", err
	}

	switch kind {
	case command.KindIf, command.KindElseIf, command.KindWhile:
		p, err := ParsePredicate(args)
		if err != nil {
			return nil, "", err
		}
		switch kind {
		case command.KindIf:
			cmd = command.NewIf(p)
		case command.KindElseIf:
			cmd = command.NewElseIf(p)
		default:
			cmd = command.NewWhile(p)
		}
	case command.KindFor:
		cmd, err = parseFor(args)
	case command.KindSet:
		cmd, err = parseSet(args)
	case command.KindWait:
		cmd, err = parseWait(args)
	case command.KindReport:
		cmd, err = parseReport(args)
	default:
		if args != "" {
			return nil, "", fmt.Errorf("%w: %s takes no arguments, got %q", ErrSyntax, kind, args)
		}
		switch kind {
		case command.KindNoOp:
			cmd = command.NewNoOp()
		case command.KindStop:
			cmd = command.NewStop()
		default:
			cmd = command.NewMarker(kind)
		}
	}
	if err != nil {
		return nil, "", err
	}
	return cmd, label, nil
}

// splitLabel separates a leading 'label' from the arguments.
func splitLabel(rest string) (label, args string, err error) {
	if !strings.HasPrefix(rest, "'") {
		return "", rest, nil
	}
	end := strings.IndexByte(rest[1:], '\'')
	if end < 0 {
		return "", "", fmt.Errorf("%w: unterminated label", ErrSyntax)
	}
	return rest[1 : end+1], strings.TrimSpace(rest[end+2:]), nil
}

// ParsePredicate parses conditions joined by & or | (&& and || are
// accepted too).
func ParsePredicate(src string) (command.Predicate, error) {
	var (
		conds []command.Condition
		conns []command.Connective
	)
	sc := &scanner{s: src}
	start := 0
	for i := 0; i < len(src); i++ {
		if !sc.top(i) || (src[i] != '&' && src[i] != '|') {
			continue
		}
		conn := command.And
		if src[i] == '|' {
			conn = command.Or
		}
		c, err := parseCondition(src[start:i])
		if err != nil {
			return command.Predicate{}, err
		}
		conds = append(conds, c)
		conns = append(conns, conn)
		if i+1 < len(src) && src[i+1] == src[i] {
			i++
		}
		start = i + 1
	}
	c, err := parseCondition(src[start:])
	if err != nil {
		return command.Predicate{}, err
	}
	conds = append(conds, c)
	return command.NewPredicate(conds, conns)
}

func parseCondition(src string) (command.Condition, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return command.Condition{}, fmt.Errorf("%w: empty condition", ErrSyntax)
	}
	pos, ops := findComparison(src)
	switch len(pos) {
	case 0:
		return command.Condition{}, fmt.Errorf("%w: condition %q has no comparison", ErrSyntax, src)
	case 1:
	default:
		return command.Condition{}, fmt.Errorf("%w: condition %q has %d comparisons", ErrSyntax, src, len(pos))
	}
	c := command.Condition{
		Left:  strings.TrimSpace(src[:pos[0]]),
		Op:    ops[0],
		Right: strings.TrimSpace(src[pos[0]+len(ops[0]):]),
	}
	for _, side := range []string{c.Left, c.Right} {
		if err := eval.Check(side); err != nil {
			return command.Condition{}, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
	}
	return c, nil
}

// parseFor parses `v = start:end` or `v = start:step:end`.
func parseFor(args string) (command.Command, error) {
	at := findAssign(args)
	if at < 0 {
		return nil, fmt.Errorf("%w: For needs `var = start:end`", ErrSyntax)
	}
	v := strings.TrimSpace(args[:at])
	if !isIdent(v) {
		return nil, fmt.Errorf("%w: For variable %q", ErrSyntax, v)
	}
	bounds := splitTop(args[at+1:], ':')
	var start, step, end string
	switch len(bounds) {
	case 2:
		start, end = bounds[0], bounds[1]
	case 3:
		start, step, end = bounds[0], bounds[1], bounds[2]
	default:
		return nil, fmt.Errorf("%w: For range %q", ErrSyntax, strings.TrimSpace(args[at+1:]))
	}
	if start == "" || end == "" || (len(bounds) == 3 && step == "") {
		return nil, fmt.Errorf("%w: empty For bound", ErrSyntax)
	}
	for _, b := range bounds {
		if err := eval.Check(b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
	}
	return command.NewFor(v, start, step, end), nil
}

func parseSet(args string) (command.Command, error) {
	at := findAssign(args)
	if at < 0 {
		return nil, fmt.Errorf("%w: Set needs `name = expr`", ErrSyntax)
	}
	target := strings.TrimSpace(args[:at])
	value := strings.TrimSpace(args[at+1:])
	if !isTarget(target) {
		return nil, fmt.Errorf("%w: cannot assign to %q", ErrSyntax, target)
	}
	if err := eval.Check(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return command.NewSet(target, value), nil
}

func parseWait(args string) (command.Command, error) {
	n, err := strconv.Atoi(args)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: Wait needs a tick count, got %q", ErrSyntax, args)
	}
	return command.NewWait(n), nil
}

func parseReport(args string) (command.Command, error) {
	if args == "" {
		return nil, fmt.Errorf("%w: Report needs at least one expression", ErrSyntax)
	}
	exprs := splitTop(args, ',')
	for _, e := range exprs {
		if err := eval.Check(e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
	}
	return command.NewReport(exprs...), nil
}
