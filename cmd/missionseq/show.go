package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/missionseq/pkg/diagram"
	"github.com/ormasoftchile/missionseq/pkg/ecosystem/tui"
	"github.com/ormasoftchile/missionseq/pkg/kernel/eval"
)

var (
	showFormat   string
	showDescribe bool
	showWidth    int
)

var headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))

var showCmd = &cobra.Command{
	Use:   "show [mission.yaml]",
	Short: "Render a mission's control flow",
	Long: `Render the compiled sequence as a Mermaid flowchart, an ASCII outline or
an indented tree. --describe prints the mission description, rendered as
Markdown with {{ .var }} placeholders filled from the mission variables,
above the diagram.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	_, res, err := loadMission(cmd, args[0])
	if err != nil {
		return err
	}
	out, err := diagram.Generate(res.Sequence, res.Mission.Meta.Name, diagram.Format(showFormat))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if showDescribe {
		fmt.Fprintln(w, headingStyle.Render(res.Mission.Meta.Name))
		if desc := strings.TrimSpace(res.Mission.Meta.Description); desc != "" {
			desc, err = eval.Resolve(desc, res.Mission.Meta.Vars)
			if err != nil {
				return fmt.Errorf("description: %w", err)
			}
			fmt.Fprintln(w, tui.RenderMarkdown(desc, showWidth))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprint(w, out)
	if !strings.HasSuffix(out, "\n") {
		fmt.Fprintln(w)
	}
	return nil
}

func init() {
	names := make([]string, len(diagram.Formats))
	for i, f := range diagram.Formats {
		names[i] = string(f)
	}
	showCmd.Flags().StringVar(&showFormat, "format", string(diagram.FormatASCII), "Diagram format: "+strings.Join(names, ", "))
	showCmd.Flags().BoolVar(&showDescribe, "describe", false, "Print the rendered mission description first")
	showCmd.Flags().IntVar(&showWidth, "width", 80, "Wrap width for the description")
	rootCmd.AddCommand(showCmd)
}
