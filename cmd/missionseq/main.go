// Command missionseq validates, runs, debugs and visualizes mission
// sequences.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/missionseq/pkg/config"
	"github.com/ormasoftchile/missionseq/pkg/kernel/engine"
	"github.com/ormasoftchile/missionseq/pkg/kernel/schema"
	"github.com/ormasoftchile/missionseq/pkg/kernel/validate"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	logLevel    string
	allowElseIf bool
	maxTicks    int
	maxLoops    int
)

var rootCmd = &cobra.Command{
	Use:          "missionseq",
	Short:        "Mission sequence engine",
	Long:         "missionseq runs mission sequences: scripts of branch commands (If, While, For) driven one tick at a time.",
	SilenceUsage: true,
}

// flagSettings is the CLI settings layer. Only flags the user set
// override the mission and project.
func flagSettings(cmd *cobra.Command) config.Settings {
	var s config.Settings
	flags := cmd.Flags()
	if flags.Changed("max-ticks") {
		s.MaxTicks = maxTicks
	}
	if flags.Changed("max-loop-iterations") {
		s.MaxLoopIterations = maxLoops
	}
	if flags.Changed("allow-else-if") {
		v := allowElseIf
		s.AllowElseIf = &v
	}
	if flags.Changed("log-level") {
		s.LogLevel = logLevel
	}
	return s
}

// loadMission discovers the mission's project and runs the validation
// pipeline, printing findings to stderr.
func loadMission(cmd *cobra.Command, path string) (*config.Project, *validate.Result, error) {
	proj, err := config.ProjectFor(path)
	if err != nil {
		return nil, nil, fmt.Errorf("discover project: %w", err)
	}
	res := validate.ValidateFile(path, validate.Options{Project: proj.Settings, Flags: flagSettings(cmd)})
	if printFindings(cmd.ErrOrStderr(), res.Errors) > 0 {
		return nil, nil, fmt.Errorf("mission validation failed")
	}
	return proj, res, nil
}

// printFindings writes warnings and errors and returns the error count.
func printFindings(w io.Writer, findings []*validate.ValidationError) int {
	var errs []*validate.ValidationError
	for _, f := range findings {
		if f.Severity == "warning" {
			fmt.Fprintf(w, "  ⚠ [%s] %s\n", f.Phase, f.Message)
			if f.Path != "" {
				fmt.Fprintf(w, "    at: %s\n", f.Path)
			}
			continue
		}
		errs = append(errs, f)
	}
	if len(errs) == 0 {
		return 0
	}
	fmt.Fprintf(w, "Validation failed: %d error(s)\n\n", len(errs))
	for i, e := range errs {
		fmt.Fprintf(w, "  %d. [%s] %s\n", i+1, e.Phase, e.Message)
		if e.Path != "" {
			fmt.Fprintf(w, "     at: %s\n", e.Path)
		}
	}
	return len(errs)
}

// newLogger builds the run logger at the resolved log level.
func newLogger(cmd *cobra.Command, settings config.Settings) (*log.Logger, error) {
	return config.NewLogger(cmd.ErrOrStderr(), settings.LogLevel)
}

// resolveVars applies --var overrides to the mission's declared variables.
func resolveVars(res *validate.Result, pairs []string) (map[string]any, map[string]string, error) {
	overrides, err := engine.ParseOverrides(pairs)
	if err != nil {
		return nil, nil, err
	}
	vars, err := engine.ResolveVars(res.Mission.Meta.Vars, overrides)
	if err != nil {
		return nil, nil, err
	}
	return vars, overrides, nil
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [mission.yaml]",
	Short: "Validate a mission file and compile its sequence",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	_, res, err := loadMission(cmd, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (%d commands)\n", res.Mission.Meta.Name, res.Sequence.Len())
	return nil
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Export the mission/v0 JSON Schema to stdout",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	data, err := schema.GenerateMissionJSONSchema()
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	var out json.RawMessage = data
	formatted, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		formatted = data
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(formatted))
	return nil
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "missionseq %s (build: %s)\n", version, commit)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	pf.BoolVar(&allowElseIf, "allow-else-if", false, "Allow ElseIf chains in sequences")
	pf.IntVar(&maxTicks, "max-ticks", 0, "Tick limit for a run (0 keeps the configured limit)")
	pf.IntVar(&maxLoops, "max-loop-iterations", 0, "Iteration limit for each While or For pass (0 keeps the configured limit)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}
