package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/missionseq/pkg/serve"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve mission runs over JSON-RPC on stdio (editor integration)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd, flagSettings(cmd))
		if err != nil {
			return err
		}
		s := serve.New(os.Stdin, os.Stdout)
		s.SetLogger(logger)
		return s.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
