package script

import (
	"errors"
	"strings"

	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
)

// Options controls what Compile accepts.
type Options struct {
	// AllowElseIf enables ElseIf chains.
	AllowElseIf bool
}

// Compile parses src and assembles it into a sequence. It stops at the
// first error.
func Compile(src string, opts Options) (*command.Sequence, error) {
	lines := strings.Split(src, "\n")
	seq := command.NewSequence()
	for i, raw := range lines {
		cmd, err := ParseLine(raw, i+1)
		if err != nil {
			return nil, err
		}
		if cmd == nil {
			continue
		}
		if cmd.Kind() == command.KindElseIf && !opts.AllowElseIf {
			return nil, lineError(lines, cmd.Line(), command.ErrElseIfDisabled)
		}
		if err := seq.Append(cmd); err != nil {
			return nil, lineError(lines, cmd.Line(), err)
		}
	}

	if err := seq.Finish(); err != nil {
		var ue *command.UnclosedError
		if errors.As(err, &ue) {
			return nil, lineError(lines, ue.Node.Line(), err)
		}
		return nil, err
	}
	return seq, nil
}

func lineError(lines []string, line int, err error) *Error {
	text := ""
	if line >= 1 && line <= len(lines) {
		text = strings.TrimSpace(lines[line-1])
	}
	return &Error{Line: line, Text: text, Err: err}
}
