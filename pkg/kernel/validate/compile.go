package validate

import (
	"errors"

	"github.com/ormasoftchile/missionseq/pkg/config"
	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
	"github.com/ormasoftchile/missionseq/pkg/kernel/schema"
	"github.com/ormasoftchile/missionseq/pkg/kernel/script"
)

// compileSequence assembles the mission's script. Structural errors carry
// the line of the offending command in the mission file.
func compileSequence(m *schema.Mission, s config.Settings) (*command.Sequence, []*ValidationError) {
	seq, err := script.Compile(m.Sequence, script.Options{AllowElseIf: s.ElseIfAllowed()})
	if err == nil {
		return seq, nil
	}
	var se *script.Error
	if errors.As(err, &se) {
		ve := errorf("compile", sequencePath(m, se.Line), "%s", se.Err)
		if errors.Is(err, command.ErrElseIfDisabled) {
			ve.Message += " (set options.allow_else_if to enable them)"
		}
		return nil, []*ValidationError{ve}
	}
	return nil, []*ValidationError{errorf("compile", "sequence", "%s", err)}
}
