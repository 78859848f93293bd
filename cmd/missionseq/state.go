package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/missionseq/pkg/kernel/engine"
)

var (
	stateDir  string
	stateJSON bool
)

var stateCmd = &cobra.Command{
	Use:   "state [run-id]",
	Short: "Show run state saved by the debugger's save command",
	Args:  cobra.ExactArgs(1),
	RunE:  runState,
}

func runState(cmd *cobra.Command, args []string) error {
	st, err := engine.LoadState(stateDir, args[0])
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	w := cmd.OutOrStdout()
	if stateJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(w, "  run %s: %s at tick %d\n", st.RunID, st.Status, st.Tick)
	for _, f := range st.Active {
		fmt.Fprintf(w, "    %s (%s) branch %d\n", f.Name, f.Kind, f.Branch)
	}
	names := make([]string, 0, len(st.Vars))
	for k := range st.Vars {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(w, "    %s = %v\n", k, st.Vars[k])
	}
	for _, line := range st.Outputs {
		fmt.Fprintf(w, "    > %s\n", line)
	}
	return nil
}

func init() {
	stateCmd.Flags().StringVar(&stateDir, "dir", "runs", "Directory the state was saved to")
	stateCmd.Flags().BoolVar(&stateJSON, "json", false, "Print the raw state as JSON")
	rootCmd.AddCommand(stateCmd)
}
