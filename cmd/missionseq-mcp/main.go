// Command missionseq-mcp serves the missionseq tools to AI agents over
// MCP stdio.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	msmcp "github.com/ormasoftchile/missionseq/pkg/ecosystem/mcp"
)

var version = "dev"

func main() {
	s := msmcp.NewServer(version)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
