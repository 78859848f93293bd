// Package recorder captures a finished run as a scenario test spec, so a
// run that behaved correctly can be replayed by missionseq test.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/missionseq/pkg/kernel/engine"
	ktesting "github.com/ormasoftchile/missionseq/pkg/kernel/testing"
)

// Recorder turns run results into scenario specs.
type Recorder struct {
	secrets []string // env var names whose values should be redacted
}

// New creates a recorder.
func New() *Recorder {
	return &Recorder{}
}

// SetSecrets configures secret env var names whose values are redacted in
// captured output.
func (r *Recorder) SetSecrets(envVars []string) {
	r.secrets = envVars
}

// Capture builds a scenario spec that expects what res did: its status,
// every command it started, its Report lines and its final scalar
// variables. overrides are the --var values the run was started with.
func (r *Recorder) Capture(overrides map[string]string, res *engine.RunResult) *ktesting.TestSpec {
	spec := &ktesting.TestSpec{
		Vars:            r.redactMap(overrides),
		ExpectedStatus:  res.Status,
		ExpectedOutputs: map[string]string{},
		ExpectedReports: []string{},
	}

	seen := make(map[string]bool, len(res.Visited))
	for _, name := range res.Visited {
		if !seen[name] {
			seen[name] = true
			spec.MustReach = append(spec.MustReach, name)
		}
	}
	for _, line := range res.Outputs {
		spec.ExpectedReports = append(spec.ExpectedReports, r.redact(line))
	}
	flatten("", res.Vars, func(key, value string) {
		spec.ExpectedOutputs[key] = r.redact(value)
	})
	if len(spec.ExpectedOutputs) == 0 {
		spec.ExpectedOutputs = nil
	}
	return spec
}

// Save writes spec to dir/test.yaml.
func Save(dir string, spec *ktesting.TestSpec) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scenario dir: %w", err)
	}
	data, err := yaml.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("marshal scenario: %w", err)
	}
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write scenario: %w", err)
	}
	return path, nil
}

// flatten calls fn for every scalar in vars, with dotted keys for nested
// maps, in key order.
func flatten(prefix string, vars map[string]any, fn func(key, value string)) {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := vars[k].(type) {
		case map[string]any:
			flatten(key, v, fn)
		case []any, nil:
		default:
			fn(key, fmt.Sprint(v))
		}
	}
}

// redact replaces secret values with <REDACTED>.
func (r *Recorder) redact(s string) string {
	for _, envVar := range r.secrets {
		val := os.Getenv(envVar)
		if val != "" {
			s = strings.ReplaceAll(s, val, "<REDACTED>")
		}
	}
	return s
}

// redactMap redacts secret values in a map.
func (r *Recorder) redactMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = r.redact(v)
	}
	return out
}
