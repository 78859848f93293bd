package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/missionseq/pkg/ecosystem/recorder"
	"github.com/ormasoftchile/missionseq/pkg/kernel/engine"
	"github.com/ormasoftchile/missionseq/pkg/kernel/trace"
)

var (
	runVars    []string
	runTrace   string
	runRecord  string
	runSecrets []string
	runJSON    bool
)

var runCmd = &cobra.Command{
	Use:   "run [mission.yaml]",
	Short: "Run a mission to completion",
	Long: `Run a mission tick by tick until its sequence completes, a Stop command
ends it or an error occurs. Report lines are written to stdout.

A trace is written to --trace, or to <trace_dir>/<run_id>.jsonl when the
project or mission configures trace_dir.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	proj, res, err := loadMission(cmd, args[0])
	if err != nil {
		return err
	}
	vars, overrides, err := resolveVars(res, runVars)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, res.Settings)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	tracePath := runTrace
	if tracePath == "" && res.Settings.TraceDir != "" {
		dir := res.Settings.TraceDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(proj.Root, dir)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create trace dir: %w", err)
		}
		tracePath = filepath.Join(dir, runID+".jsonl")
	}
	var tw *trace.Writer
	if tracePath != "" {
		tw, err = trace.NewFileWriter(tracePath, runID)
		if err != nil {
			return err
		}
		defer tw.Close()
	}

	out := cmd.OutOrStdout()
	if runJSON {
		out = io.Discard
	}
	eng := engine.New(res.Sequence, engine.RunConfig{
		RunID:             runID,
		Mission:           res.Mission.Meta.Name,
		Vars:              vars,
		Stdout:            out,
		Trace:             tw,
		Logger:            logger,
		MaxTicks:          uint64(res.Settings.MaxTicks),
		MaxLoopIterations: res.Settings.MaxLoopIterations,
	})
	result := eng.Run(cmd.Context())

	if runRecord != "" {
		rec := recorder.New()
		rec.SetSecrets(runSecrets)
		path, err := recorder.Save(runRecord, rec.Capture(overrides, result))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "  Scenario recorded: %s\n", path)
	}

	if runJSON {
		printRunJSON(cmd, result, tracePath)
	} else {
		printRunSummary(cmd, result, tracePath)
	}
	if result.Status == engine.StatusError {
		return result.Error
	}
	return nil
}

func printRunSummary(cmd *cobra.Command, result *engine.RunResult, tracePath string) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "\n  %s %s after %d ticks (%s)\n", statusIcon(result.Status), result.Status,
		result.Ticks, result.Duration.Truncate(time.Microsecond))
	if tracePath != "" {
		fmt.Fprintf(w, "  Trace: %s\n", tracePath)
	}
}

func printRunJSON(cmd *cobra.Command, result *engine.RunResult, tracePath string) {
	response := map[string]any{
		"run_id":   result.RunID,
		"status":   result.Status,
		"ticks":    result.Ticks,
		"duration": result.Duration.String(),
		"vars":     result.Vars,
		"reports":  result.Outputs,
		"visited":  result.Visited,
	}
	if tracePath != "" {
		response["trace"] = tracePath
	}
	if result.Error != nil {
		response["error"] = result.Error.Error()
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.Encode(response)
}

func statusIcon(status string) string {
	switch status {
	case engine.StatusCompleted:
		return "✓"
	case engine.StatusStopped:
		return "■"
	case engine.StatusError:
		return "✗"
	default:
		return "!"
	}
}

func init() {
	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "Set a variable (name=value), repeatable")
	runCmd.Flags().StringVar(&runTrace, "trace", "", "Write the run trace to this JSONL file")
	runCmd.Flags().StringVar(&runRecord, "record", "", "Save the run as a scenario test.yaml in this directory")
	runCmd.Flags().StringSliceVar(&runSecrets, "redact-env", nil, "Env vars whose values are redacted in a recorded scenario")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the run result as JSON instead of Report lines")
	rootCmd.AddCommand(runCmd)
}
