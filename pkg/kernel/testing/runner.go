package testing

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ormasoftchile/missionseq/pkg/config"
	"github.com/ormasoftchile/missionseq/pkg/kernel/engine"
	"github.com/ormasoftchile/missionseq/pkg/kernel/validate"
)

// TestResult is the result of running one scenario.
type TestResult struct {
	MissionName  string            `json:"mission_name"`
	ScenarioName string            `json:"scenario_name"`
	Status       string            `json:"status"` // passed, failed, skipped, error
	DurationMs   int64             `json:"duration_ms"`
	Ticks        uint64            `json:"ticks"`
	Assertions   []AssertionResult `json:"assertions,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// TestSummary aggregates counts across scenarios.
type TestSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// TestOutput is the top-level output of a test run.
type TestOutput struct {
	Mission   string       `json:"mission"`
	Scenarios []TestResult `json:"scenarios"`
	Summary   TestSummary  `json:"summary"`
}

// Runner executes scenario-based tests against a mission.
type Runner struct {
	// Project owns the mission; nil discovers it from the mission path.
	Project  *config.Project
	Flags    config.Settings
	Timeout  time.Duration
	FailFast bool
}

// ScenarioInfo describes a discovered scenario directory.
type ScenarioInfo struct {
	Name string
	Dir  string
}

// MissionBase is the mission file name without its .mission.yaml (or
// other) extension.
func MissionBase(missionPath string) string {
	base := filepath.Base(missionPath)
	for _, ext := range []string{".mission.yaml", ".mission.yml", ".yaml", ".yml"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DiscoverScenarios finds scenario directories for a mission.
// Convention: <scenarios>/<mission-base>/<scenario>/test.yaml, where
// <scenarios> comes from the project manifest.
func DiscoverScenarios(proj *config.Project, missionPath string) ([]ScenarioInfo, error) {
	scenariosDir := filepath.Join(proj.ScenariosDir(), MissionBase(missionPath))
	entries, err := os.ReadDir(scenariosDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read scenarios dir: %w", err)
	}

	var scenarios []ScenarioInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(scenariosDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "test.yaml")); err == nil {
			scenarios = append(scenarios, ScenarioInfo{Name: entry.Name(), Dir: dir})
		}
	}
	return scenarios, nil
}

// RunAll discovers and runs all scenarios for a mission.
func (r *Runner) RunAll(missionPath string) (*TestOutput, error) {
	proj, res, err := r.load(missionPath)
	if err != nil {
		return nil, err
	}
	scenarios, err := DiscoverScenarios(proj, missionPath)
	if err != nil {
		return nil, err
	}

	output := &TestOutput{Mission: res.Mission.Meta.Name}
	for _, si := range scenarios {
		result := r.runScenario(res, si)
		output.Scenarios = append(output.Scenarios, result)

		switch result.Status {
		case "passed":
			output.Summary.Passed++
		case "failed":
			output.Summary.Failed++
		case "skipped":
			output.Summary.Skipped++
		case "error":
			output.Summary.Errors++
		}
		output.Summary.Total++

		if r.FailFast && (result.Status == "failed" || result.Status == "error") {
			break
		}
	}
	return output, nil
}

// RunScenario runs a single named scenario.
func (r *Runner) RunScenario(missionPath, scenarioName string) (*TestResult, error) {
	proj, res, err := r.load(missionPath)
	if err != nil {
		return nil, err
	}
	si := ScenarioInfo{
		Name: scenarioName,
		Dir:  filepath.Join(proj.ScenariosDir(), MissionBase(missionPath), scenarioName),
	}
	result := r.runScenario(res, si)
	return &result, nil
}

func (r *Runner) load(missionPath string) (*config.Project, *validate.Result, error) {
	proj := r.Project
	if proj == nil {
		var err error
		if proj, err = config.ProjectFor(missionPath); err != nil {
			return nil, nil, fmt.Errorf("discover project: %w", err)
		}
	}
	res := validate.ValidateFile(missionPath, validate.Options{Project: proj.Settings, Flags: r.Flags})
	if res.HasErrors() {
		return nil, nil, fmt.Errorf("mission validation failed: %v", res.Errors[0])
	}
	return proj, res, nil
}

// runScenario executes a single scenario and evaluates its test spec.
func (r *Runner) runScenario(res *validate.Result, si ScenarioInfo) TestResult {
	start := time.Now()
	result := TestResult{MissionName: res.Mission.Meta.Name, ScenarioName: si.Name}
	fail := func(format string, args ...any) TestResult {
		result.Status = "error"
		result.DurationMs = time.Since(start).Milliseconds()
		result.Error = fmt.Sprintf(format, args...)
		return result
	}

	specPath := filepath.Join(si.Dir, "test.yaml")
	if _, err := os.Stat(specPath); err != nil {
		// No test.yaml: skip
		result.Status = "skipped"
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}
	spec, err := LoadTestSpec(specPath)
	if err != nil {
		return fail("load test spec: %s", err)
	}

	vars, err := engine.ResolveVars(res.Mission.Meta.Vars, spec.Vars)
	if err != nil {
		return fail("resolve vars: %s", err)
	}

	maxTicks := res.Settings.MaxTicks
	if spec.MaxTicks > 0 {
		maxTicks = spec.MaxTicks
	}

	ctx := context.Background()
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	res.Sequence.Reset()
	eng := engine.New(res.Sequence, engine.RunConfig{
		RunID:             "test-" + si.Name,
		Mission:           res.Mission.Meta.Name,
		Vars:              vars,
		Stdout:            io.Discard,
		MaxTicks:          uint64(maxTicks),
		MaxLoopIterations: res.Settings.MaxLoopIterations,
	})
	engineResult := eng.Run(ctx)
	if ctx.Err() != nil {
		return fail("timeout after %s", r.Timeout)
	}

	run := &RunResult{
		Status:  engineResult.Status,
		Visited: engineResult.Visited,
		Vars:    engineResult.Vars,
		Reports: engineResult.Outputs,
		Error:   engineResult.Error,
	}

	result.Assertions = Evaluate(spec, run)
	result.Status = "passed"
	if HasFailures(result.Assertions) {
		result.Status = "failed"
	}
	result.Ticks = engineResult.Ticks
	result.DurationMs = time.Since(start).Milliseconds()
	return result
}
