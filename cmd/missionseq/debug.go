package main

import (
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/missionseq/pkg/debugger"
	"github.com/ormasoftchile/missionseq/pkg/kernel/engine"
)

var (
	debugVars     []string
	debugStateDir string
)

var debugCmd = &cobra.Command{
	Use:   "debug [mission.yaml]",
	Short: "Step through a mission tick by tick in an interactive debugger",
	Args:  cobra.ExactArgs(1),
	RunE:  runDebug,
}

func runDebug(cmd *cobra.Command, args []string) error {
	_, res, err := loadMission(cmd, args[0])
	if err != nil {
		return err
	}
	vars, _, err := resolveVars(res, debugVars)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, res.Settings)
	if err != nil {
		return err
	}

	eng := engine.New(res.Sequence, engine.RunConfig{
		Mission:           res.Mission.Meta.Name,
		Vars:              vars,
		Stdout:            cmd.OutOrStdout(),
		Logger:            logger,
		MaxTicks:          uint64(res.Settings.MaxTicks),
		MaxLoopIterations: res.Settings.MaxLoopIterations,
	})
	d := debugger.New(res.Mission.Meta.Name, eng)
	d.SetOutput(cmd.OutOrStdout())
	if debugStateDir != "" {
		d.SetStateDir(debugStateDir)
	}
	return d.Run(cmd.Context())
}

func init() {
	debugCmd.Flags().StringArrayVar(&debugVars, "var", nil, "Set a variable (name=value), repeatable")
	debugCmd.Flags().StringVar(&debugStateDir, "state-dir", "", "Directory the save command writes run state to (default: runs)")
	rootCmd.AddCommand(debugCmd)
}
