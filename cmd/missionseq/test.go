package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	ktesting "github.com/ormasoftchile/missionseq/pkg/kernel/testing"
)

var (
	testScenario string
	testJSON     bool
	testFailFast bool
	testTimeout  time.Duration
)

var testCmd = &cobra.Command{
	Use:   "test [mission.yaml...]",
	Short: "Run scenario tests for missions",
	Long: `Discover scenarios for each mission, run them, and compare against their
test.yaml assertions.

Scenarios are discovered by convention at:
  {scenarios}/{mission-name}/{scenario}/test.yaml

where {scenarios} is the project manifest's scenarios directory (default:
scenarios next to missionseq.yaml).

Exit codes:
  0 — all asserted tests passed
  1 — at least one asserted test failed
  2 — mission validation failed (no tests ran)`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	runner := &ktesting.Runner{
		Flags:    flagSettings(cmd),
		Timeout:  testTimeout,
		FailFast: testFailFast,
	}
	allPassed := true
	hasValidationError := false

	for _, missionPath := range args {
		output, err := runTests(runner, missionPath)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "  ✗ %s: %v\n", missionPath, err)
			hasValidationError = true
			continue
		}

		if testJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.Encode(output)
		} else {
			printTestOutput(cmd.OutOrStdout(), output)
		}

		if output.Summary.Failed > 0 || output.Summary.Errors > 0 {
			allPassed = false
		}
		if testFailFast && !allPassed {
			break
		}
	}

	if hasValidationError {
		os.Exit(2)
	}
	if !allPassed {
		os.Exit(1)
	}
	return nil
}

// runTests runs every scenario of a mission, or only --scenario.
func runTests(runner *ktesting.Runner, missionPath string) (*ktesting.TestOutput, error) {
	if testScenario == "" {
		return runner.RunAll(missionPath)
	}
	result, err := runner.RunScenario(missionPath, testScenario)
	if err != nil {
		return nil, err
	}
	output := &ktesting.TestOutput{
		Mission:   result.MissionName,
		Scenarios: []ktesting.TestResult{*result},
		Summary:   ktesting.TestSummary{Total: 1},
	}
	switch result.Status {
	case "passed":
		output.Summary.Passed = 1
	case "failed":
		output.Summary.Failed = 1
	case "skipped":
		output.Summary.Skipped = 1
	default:
		output.Summary.Errors = 1
	}
	return output, nil
}

func printTestOutput(w io.Writer, output *ktesting.TestOutput) {
	fmt.Fprintf(w, "\n  %s\n", output.Mission)
	for _, s := range output.Scenarios {
		switch s.Status {
		case "passed":
			fmt.Fprintf(w, "    ✓ %-30s (%d ticks)  %dms\n", s.ScenarioName, s.Ticks, s.DurationMs)
		case "failed":
			fmt.Fprintf(w, "    ✗ %-30s (%d ticks)  %dms\n", s.ScenarioName, s.Ticks, s.DurationMs)
			for _, a := range s.Assertions {
				if !a.Passed {
					fmt.Fprintf(w, "        %s: %s\n", a.Type, a.Message)
				}
			}
		case "skipped":
			fmt.Fprintf(w, "    ○ %-30s (no test.yaml)  %dms\n", s.ScenarioName, s.DurationMs)
		case "error":
			fmt.Fprintf(w, "    ✗ %-30s ERROR: %s\n", s.ScenarioName, s.Error)
		}
	}
	fmt.Fprintf(w, "\n  %d scenarios, %d passed, %d failed, %d skipped\n",
		output.Summary.Total, output.Summary.Passed, output.Summary.Failed, output.Summary.Skipped)
	if output.Summary.Errors > 0 {
		fmt.Fprintf(w, "  %d errors\n", output.Summary.Errors)
	}
}

func init() {
	testCmd.Flags().StringVar(&testScenario, "scenario", "", "Run only the named scenario (default: all)")
	testCmd.Flags().BoolVar(&testJSON, "json", false, "Output results as structured JSON")
	testCmd.Flags().BoolVar(&testFailFast, "fail-fast", false, "Stop after first failure")
	testCmd.Flags().DurationVar(&testTimeout, "timeout", 30*time.Second, "Per-scenario timeout (e.g. 30s, 1m)")
	rootCmd.AddCommand(testCmd)
}
