package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/missionseq/pkg/ecosystem/tui"
	"github.com/ormasoftchile/missionseq/pkg/kernel/engine"
)

var (
	watchVars     []string
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [mission.yaml]",
	Short: "Run a mission in a live terminal view",
	Long: `Run a mission one tick per --interval in a full-screen view that
highlights the running commands, the variables and the branch events.

Keys: space pauses, n steps, r restarts, +/- change speed, v toggles the
variables panel, q quits.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	_, res, err := loadMission(cmd, args[0])
	if err != nil {
		return err
	}
	vars, _, err := resolveVars(res, watchVars)
	if err != nil {
		return err
	}

	model := tui.NewModel(res.Mission.Meta.Name, res.Mission.Meta.Description, res.Sequence, engine.RunConfig{
		Mission:           res.Mission.Meta.Name,
		Vars:              vars,
		MaxTicks:          uint64(res.Settings.MaxTicks),
		MaxLoopIterations: res.Settings.MaxLoopIterations,
	}, watchInterval)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if m, ok := final.(tui.Model); ok {
		if result := m.Engine().Result(); result != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s %s after %d ticks\n", statusIcon(result.Status), result.Status, result.Ticks)
		}
	}
	return nil
}

func init() {
	watchCmd.Flags().StringArrayVar(&watchVars, "var", nil, "Set a variable (name=value), repeatable")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 200*time.Millisecond, "Time between ticks (e.g. 50ms, 1s)")
	rootCmd.AddCommand(watchCmd)
}
