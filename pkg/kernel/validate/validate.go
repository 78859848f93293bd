// Package validate implements the mission/v0 validation pipeline:
// structural → semantic → compile → domain.
package validate

import (
	"fmt"

	"github.com/ormasoftchile/missionseq/pkg/config"
	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
	"github.com/ormasoftchile/missionseq/pkg/kernel/schema"
)

// ValidationError represents one error or warning from the validation pipeline.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, compile, domain
	Path     string `json:"path"`  // JSON-path-like location, or sequence:<line>
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s at %s", e.Phase, e.Message, e.Path)
	}
	return fmt.Sprintf("[%s] %s", e.Phase, e.Message)
}

func errorf(phase, path, msg string, args ...any) *ValidationError {
	return &ValidationError{
		Phase:    phase,
		Path:     path,
		Message:  fmt.Sprintf(msg, args...),
		Severity: "error",
	}
}

func warningf(phase, path, msg string, args ...any) *ValidationError {
	return &ValidationError{
		Phase:    phase,
		Path:     path,
		Message:  fmt.Sprintf(msg, args...),
		Severity: "warning",
	}
}

// Options carries the setting layers that surround the mission's own
// options: the project manifest below it and CLI flags above it.
type Options struct {
	Project config.Settings
	Flags   config.Settings
}

// Result is what the pipeline produced. Sequence is nil unless the
// mission compiled.
type Result struct {
	Mission  *schema.Mission
	Sequence *command.Sequence
	Settings config.Settings
	Errors   []*ValidationError
}

// HasErrors reports whether any finding is an error rather than a warning.
func (r *Result) HasErrors() bool { return hasErrors(r.Errors) }

// ValidateFile runs the full pipeline on a mission file.
func ValidateFile(path string, opts Options) *Result {
	// Phase 1: Structural (strict YAML decode)
	m, err := schema.LoadFile(path)
	if err != nil {
		return &Result{Errors: []*ValidationError{errorf("structural", "", "failed to load: %s", err)}}
	}
	return ValidateMission(m, opts)
}

// ValidateMission runs phases 2 to 4 on an already-loaded mission.
func ValidateMission(m *schema.Mission, opts Options) *Result {
	res := &Result{Mission: m, Settings: config.Resolve(opts.Project, m, opts.Flags)}

	// Phase 2: Semantic (JSON Schema validation)
	res.Errors = append(res.Errors, validateSemantic(m)...)
	if hasErrors(res.Errors) {
		return res
	}

	// Phase 3: Compile the sequence script
	seq, errs := compileSequence(m, res.Settings)
	res.Errors = append(res.Errors, errs...)
	if seq == nil {
		return res
	}
	res.Sequence = seq

	// Phase 4: Domain (warnings about a sequence that compiles)
	res.Errors = append(res.Errors, validateDomain(m, seq)...)
	return res
}

func hasErrors(errs []*ValidationError) bool {
	for _, e := range errs {
		if e.Severity == "error" {
			return true
		}
	}
	return false
}

func sequencePath(m *schema.Mission, line int) string {
	if line == 0 {
		return "sequence"
	}
	return fmt.Sprintf("sequence:%d", m.SourceLine(line))
}
