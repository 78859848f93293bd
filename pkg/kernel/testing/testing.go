// Package testing implements the scenario test harness for missions. A
// scenario overrides mission variables, runs the sequence to its end and
// evaluates assertions on the run status, the commands that started, the
// final variables and the reported lines.
package testing

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// TestSpec declares what to assert about a scenario run.
// All fields are optional; omitted fields produce no assertions.
type TestSpec struct {
	Description     string            `yaml:"description,omitempty" json:"description,omitempty"`
	Vars            map[string]string `yaml:"vars,omitempty" json:"vars,omitempty"`                         // overrides, as with --var
	ExpectedStatus  string            `yaml:"expected_status,omitempty" json:"expected_status,omitempty"`   // completed, stopped, error
	MustReach       []string          `yaml:"must_reach,omitempty" json:"must_reach,omitempty"`             // command names that must start
	MustNotReach    []string          `yaml:"must_not_reach,omitempty" json:"must_not_reach,omitempty"`     // command names that must not start
	ExpectedOutputs map[string]string `yaml:"expected_outputs,omitempty" json:"expected_outputs,omitempty"` // variable → expected value
	ExpectedReports []string          `yaml:"expected_reports,omitempty" json:"expected_reports,omitempty"` // Report lines, in order
	MaxTicks        int               `yaml:"max_ticks,omitempty" json:"max_ticks,omitempty"`
	Tags            []string          `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// LoadTestSpec loads a test spec from a YAML file.
func LoadTestSpec(path string) (*TestSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read test spec: %w", err)
	}
	return ParseTestSpec(data)
}

// ParseTestSpec parses test spec YAML.
func ParseTestSpec(data []byte) (*TestSpec, error) {
	var s TestSpec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse test spec: %w", err)
	}
	return &s, nil
}

// RunResult captures execution data for assertion evaluation.
type RunResult struct {
	Status  string         // completed, stopped, error
	Visited []string       // command names in start order
	Vars    map[string]any // final variable state
	Reports []string
	Error   error
}

// AssertionResult is the result of a single assertion.
type AssertionResult struct {
	Type     string `json:"type"` // expected_status, must_reach, etc.
	Key      string `json:"key,omitempty"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

// Evaluate runs all assertions from a TestSpec against a RunResult.
func Evaluate(spec *TestSpec, run *RunResult) []AssertionResult {
	var results []AssertionResult

	if spec.ExpectedStatus != "" {
		msg := fmt.Sprintf("status: expected %q, got %q", spec.ExpectedStatus, run.Status)
		if run.Error != nil && run.Status != spec.ExpectedStatus {
			msg += fmt.Sprintf(" (%v)", run.Error)
		}
		results = append(results, AssertionResult{
			Type:     "expected_status",
			Expected: spec.ExpectedStatus,
			Actual:   run.Status,
			Passed:   run.Status == spec.ExpectedStatus,
			Message:  msg,
		})
	}

	visitedSet := make(map[string]bool, len(run.Visited))
	for _, s := range run.Visited {
		visitedSet[s] = true
	}

	for _, name := range spec.MustReach {
		passed := visitedSet[name]
		results = append(results, AssertionResult{
			Type:     "must_reach",
			Key:      name,
			Expected: "visited",
			Actual:   boolToVisited(passed),
			Passed:   passed,
			Message:  fmt.Sprintf("must_reach %q: %s", name, boolToVisited(passed)),
		})
	}

	for _, name := range spec.MustNotReach {
		visited := visitedSet[name]
		results = append(results, AssertionResult{
			Type:     "must_not_reach",
			Key:      name,
			Expected: "not visited",
			Actual:   boolToVisited(visited),
			Passed:   !visited,
			Message:  fmt.Sprintf("must_not_reach %q: %s", name, boolToVisited(visited)),
		})
	}

	for key, expected := range spec.ExpectedOutputs {
		actual := ""
		if v, ok := lookup(run.Vars, key); ok {
			actual = fmt.Sprint(v)
		}
		passed := compareValue(expected, actual)
		results = append(results, AssertionResult{
			Type:     "expected_output",
			Key:      key,
			Expected: expected,
			Actual:   actual,
			Passed:   passed,
			Message:  fmt.Sprintf("output %q: expected %q, got %q", key, expected, actual),
		})
	}

	if spec.ExpectedReports != nil {
		passed := len(spec.ExpectedReports) == len(run.Reports)
		for i := 0; passed && i < len(run.Reports); i++ {
			passed = compareValue(spec.ExpectedReports[i], run.Reports[i])
		}
		results = append(results, AssertionResult{
			Type:     "expected_reports",
			Expected: strings.Join(spec.ExpectedReports, "\n"),
			Actual:   strings.Join(run.Reports, "\n"),
			Passed:   passed,
			Message:  fmt.Sprintf("reports: expected %q, got %q", spec.ExpectedReports, run.Reports),
		})
	}

	return results
}

// HasFailures returns true if any assertion failed.
func HasFailures(results []AssertionResult) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

// lookup resolves a dotted variable name through nested maps.
func lookup(vars map[string]any, key string) (any, bool) {
	var cur any = vars
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// compareValue supports two match modes:
//   - /pattern/ → regex match
//   - exact string equality (default)
func compareValue(expected, actual string) bool {
	if strings.HasPrefix(expected, "/") && strings.HasSuffix(expected, "/") && len(expected) > 2 {
		re, err := regexp.Compile(expected[1 : len(expected)-1])
		if err != nil {
			return false
		}
		return re.MatchString(actual)
	}
	return expected == actual
}

func boolToVisited(b bool) string {
	if b {
		return "visited"
	}
	return "not visited"
}
