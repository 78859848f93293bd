package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt [mission.yaml]",
	Short: "Print a mission's sequence with canonical indentation",
	Long: `Print the compiled sequence back as script text. Branch bodies are
indented one level per nesting depth and every terminator lines up with
the command it closes, so the output shows how the script was assembled.`,
	Args: cobra.ExactArgs(1),
	RunE: runFmt,
}

func runFmt(cmd *cobra.Command, args []string) error {
	_, res, err := loadMission(cmd, args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), command.Serialize(res.Sequence))
	return nil
}

func init() {
	rootCmd.AddCommand(fmtCmd)
}
