// Package debugger implements the interactive REPL debugger for missions.
package debugger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
	"github.com/ormasoftchile/missionseq/pkg/kernel/engine"
)

// Debugger provides an interactive REPL for stepping through a mission
// tick by tick.
type Debugger struct {
	name     string
	engine   *engine.Engine
	output   io.Writer
	rl       *readline.Instance
	stateDir string
}

// New creates a debugger over eng. name is shown in the banner and tree.
func New(name string, eng *engine.Engine) *Debugger {
	return &Debugger{
		name:     name,
		engine:   eng,
		output:   os.Stdout,
		stateDir: "runs",
	}
}

// SetOutput redirects debugger output; the engine's Report output is
// configured on the engine itself.
func (d *Debugger) SetOutput(w io.Writer) { d.output = w }

// SetStateDir sets where "save" writes run state.
func (d *Debugger) SetStateDir(dir string) { d.stateDir = dir }

// Engine returns the engine being debugged.
func (d *Debugger) Engine() *engine.Engine { return d.engine }

var commands = []string{"tick", "next", "continue", "print vars", "where", "tree",
	"history", "outputs", "save", "dump", "reset", "help", "quit"}

// Run starts the interactive REPL loop.
func (d *Debugger) Run(ctx context.Context) error {
	completer := readline.NewPrefixCompleter()
	for _, cmd := range commands {
		completer.Children = append(completer.Children, readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          d.buildPrompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	d.rl = rl
	defer rl.Close()

	fmt.Fprintf(d.output, "missionseq debugger: %s, %d commands\n", d.name, d.engine.Sequence().Len())
	fmt.Fprintf(d.output, "Type 'help' for available commands, 'tick' to run one tick.\n\n")

	for {
		rl.SetPrompt(d.buildPrompt())
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if d.Exec(ctx, line) {
			return nil
		}
	}
}

// Exec runs one debugger command line. It reports whether the user asked
// to quit.
func (d *Debugger) Exec(ctx context.Context, line string) (quit bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	switch parts[0] {
	case "tick", "t":
		d.handleTick(parts)
	case "next", "n":
		d.handleNext()
	case "continue", "c":
		d.handleContinue(ctx)
	case "print", "p":
		d.handlePrint(parts)
	case "where", "w":
		d.handleWhere()
	case "tree":
		d.handleTree()
	case "history", "h":
		d.handleHistory()
	case "outputs", "o":
		d.handleOutputs()
	case "save":
		d.handleSave()
	case "dump":
		d.handleDump()
	case "reset", "r":
		d.handleReset()
	case "help", "?":
		d.handleHelp()
	case "quit", "q":
		fmt.Fprintf(d.output, "Exiting debugger.\n")
		return true
	default:
		fmt.Fprintf(d.output, "Unknown command: %q. Type 'help' for available commands.\n", parts[0])
	}
	return false
}

// buildPrompt creates the prompt string: missionseq[tick N | name]>
func (d *Debugger) buildPrompt() string {
	if r := d.engine.Result(); r != nil {
		return fmt.Sprintf("missionseq[done: %s]> ", r.Status)
	}
	cursor := d.engine.Cursor()
	if cursor == command.NoNode {
		return "missionseq[done]> "
	}
	return fmt.Sprintf("missionseq[tick %d | %s]> ", d.engine.Tick(), d.engine.Sequence().Node(cursor).Name())
}
