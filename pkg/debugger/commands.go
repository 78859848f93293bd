package debugger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ormasoftchile/missionseq/pkg/diagram"
	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
	"github.com/ormasoftchile/missionseq/pkg/kernel/engine"
)

// step runs one tick and prints what ran. It reports whether the run is
// over.
func (d *Debugger) step() bool {
	eng := d.engine
	if eng.Done() {
		d.printResult()
		return true
	}
	var name string
	if id := eng.Cursor(); id != command.NoNode {
		name = eng.Sequence().Node(id).Name()
	}
	done, _ := eng.Step()
	fmt.Fprintf(d.output, "  tick %d: %s\n", eng.Tick(), name)
	if done {
		d.printResult()
	}
	return done
}

// handleTick runs n ticks (default 1).
func (d *Debugger) handleTick(parts []string) {
	n := 1
	if len(parts) > 1 {
		v, err := strconv.Atoi(parts[1])
		if err != nil || v < 1 {
			fmt.Fprintf(d.output, "Usage: tick [n]\n")
			return
		}
		n = v
	}
	for i := 0; i < n; i++ {
		if d.step() {
			return
		}
	}
}

// handleNext ticks until the trunk cursor moves to another command.
func (d *Debugger) handleNext() {
	start := d.engine.Cursor()
	for {
		if d.step() || d.engine.Cursor() != start {
			return
		}
	}
}

// handleContinue runs until the mission ends.
func (d *Debugger) handleContinue(ctx context.Context) {
	for ctx.Err() == nil {
		if d.step() {
			return
		}
	}
	fmt.Fprintf(d.output, "Interrupted.\n")
}

func (d *Debugger) printResult() {
	r := d.engine.Result()
	if r == nil {
		return
	}
	if r.Error != nil {
		fmt.Fprintf(d.output, "  ✗ %s after %d ticks: %v\n", r.Status, r.Ticks, r.Error)
		return
	}
	fmt.Fprintf(d.output, "  ✓ %s after %d ticks\n", r.Status, r.Ticks)
}

// handlePrint displays all variables or one dotted variable.
func (d *Debugger) handlePrint(parts []string) {
	if len(parts) < 2 {
		fmt.Fprintf(d.output, "Usage: print vars|<name>\n")
		return
	}
	vars := d.engine.Vars()
	if parts[1] == "vars" {
		if len(vars) == 0 {
			fmt.Fprintf(d.output, "No variables defined.\n")
			return
		}
		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(d.output, "  %s = %v\n", k, vars[k])
		}
		return
	}

	var cur any = vars
	for _, part := range strings.Split(parts[1], ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			cur = nil
			break
		}
		cur = m[part]
	}
	if cur == nil {
		fmt.Fprintf(d.output, "  %s is not defined\n", parts[1])
		return
	}
	fmt.Fprintf(d.output, "  %s = %v\n", parts[1], cur)
}

// handleWhere shows the trunk cursor and the running branches under it.
func (d *Debugger) handleWhere() {
	eng := d.engine
	if eng.Done() {
		d.printResult()
		return
	}
	seq := eng.Sequence()
	if eng.Cursor() == command.NoNode {
		fmt.Fprintf(d.output, "  at end of sequence\n")
		return
	}
	c := seq.Node(eng.Cursor())
	fmt.Fprintf(d.output, "  → %s  (line %d)\n", c.Text(), c.Line())
	for i, f := range eng.ActivePath() {
		indent := strings.Repeat("  ", i+2)
		fmt.Fprintf(d.output, "%sbranch %d of %s\n", indent, f.Branch, f.Name)
		if f.Cursor != command.NoNode {
			next := seq.Node(f.Cursor)
			fmt.Fprintf(d.output, "%s→ %s  (line %d)\n", indent, next.Text(), next.Line())
		}
	}
}

// handleTree prints the sequence as a tree.
func (d *Debugger) handleTree() {
	out, err := diagram.Generate(d.engine.Sequence(), d.name, diagram.FormatTree)
	if err != nil {
		fmt.Fprintf(d.output, "  Error: %v\n", err)
		return
	}
	fmt.Fprint(d.output, out)
}

// handleHistory shows the commands that started, in order.
func (d *Debugger) handleHistory() {
	visited := d.engine.Visited()
	if len(visited) == 0 {
		fmt.Fprintf(d.output, "No commands started yet.\n")
		return
	}
	for i, name := range visited {
		fmt.Fprintf(d.output, "  [%d] %s\n", i+1, name)
	}
}

// handleOutputs shows the Report lines so far.
func (d *Debugger) handleOutputs() {
	outputs := d.engine.Outputs()
	if len(outputs) == 0 {
		fmt.Fprintf(d.output, "No reports yet.\n")
		return
	}
	for _, line := range outputs {
		fmt.Fprintf(d.output, "  %s\n", line)
	}
}

// handleSave persists the current run state.
func (d *Debugger) handleSave() {
	path, err := engine.SaveState(d.stateDir, d.engine.State())
	if err != nil {
		fmt.Fprintf(d.output, "  Error: %v\n", err)
		return
	}
	fmt.Fprintf(d.output, "  State saved: %s\n", path)
}

// handleDump outputs the full current state as JSON.
func (d *Debugger) handleDump() {
	data, err := json.MarshalIndent(d.engine.State(), "", "  ")
	if err != nil {
		fmt.Fprintf(d.output, "  Error marshaling state: %v\n", err)
		return
	}
	fmt.Fprintln(d.output, string(data))
}

// handleReset abandons the run and starts over.
func (d *Debugger) handleReset() {
	d.engine.Restart()
	fmt.Fprintf(d.output, "Run reset.\n")
}

// handleHelp displays available commands.
func (d *Debugger) handleHelp() {
	fmt.Fprintln(d.output, "Available commands:")
	fmt.Fprintln(d.output, "  tick (t) [n]     Run n ticks (default 1)")
	fmt.Fprintln(d.output, "  next (n)         Tick until the next trunk command")
	fmt.Fprintln(d.output, "  continue (c)     Run to the end of the mission")
	fmt.Fprintln(d.output, "  print vars       Show current variables")
	fmt.Fprintln(d.output, "  print <name>     Show one variable (dotted names allowed)")
	fmt.Fprintln(d.output, "  where (w)        Show the running command and branches")
	fmt.Fprintln(d.output, "  tree             Show the sequence as a tree")
	fmt.Fprintln(d.output, "  history (h)      Show commands started so far")
	fmt.Fprintln(d.output, "  outputs (o)      Show Report lines so far")
	fmt.Fprintln(d.output, "  save             Save run state to disk")
	fmt.Fprintln(d.output, "  dump             Output full state as JSON")
	fmt.Fprintln(d.output, "  reset (r)        Restart the run")
	fmt.Fprintln(d.output, "  help (?)         Show this help")
	fmt.Fprintln(d.output, "  quit (q)         Exit debugger")
}
