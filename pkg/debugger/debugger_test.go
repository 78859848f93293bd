package debugger

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ormasoftchile/missionseq/pkg/kernel/engine"
	"github.com/ormasoftchile/missionseq/pkg/kernel/script"
)

const burnScript = `Set n = 0
While 'burn' n < 2
   Set n = n + 1
EndWhile
Report 'count' n
`

func newDebugger(t *testing.T) (*Debugger, *bytes.Buffer) {
	t.Helper()
	seq, err := script.Compile(burnScript, script.Options{})
	if err != nil {
		t.Fatal(err)
	}
	eng := engine.New(seq, engine.RunConfig{RunID: "dbg-run", Stdout: io.Discard, Vars: map[string]any{"Sat": map[string]any{"Mode": "idle"}}})
	var buf bytes.Buffer
	d := New("burn", eng)
	d.SetOutput(&buf)
	d.SetStateDir(t.TempDir())
	return d, &buf
}

// TestDebuggerCommandHelp verifies help output lists all commands.
func TestDebuggerCommandHelp(t *testing.T) {
	d, buf := newDebugger(t)
	d.Exec(context.Background(), "help")
	out := buf.String()
	for _, cmd := range []string{"tick", "next", "continue", "print", "where", "tree", "history", "outputs", "save", "dump", "reset", "help", "quit"} {
		if !strings.Contains(out, cmd) {
			t.Errorf("help output missing command %q", cmd)
		}
	}
}

func TestDebuggerTickAndPrompt(t *testing.T) {
	d, buf := newDebugger(t)
	if p := d.buildPrompt(); !strings.Contains(p, "tick 0") || !strings.Contains(p, "Set@1") {
		t.Errorf("initial prompt = %q", p)
	}

	d.Exec(context.Background(), "tick 2")
	if d.Engine().Tick() != 2 {
		t.Errorf("tick = %d, want 2", d.Engine().Tick())
	}
	if !strings.Contains(buf.String(), "tick 2: burn") {
		t.Errorf("output = %q", buf.String())
	}
	if p := d.buildPrompt(); !strings.Contains(p, "burn") {
		t.Errorf("prompt = %q, want the While label", p)
	}
}

func TestDebuggerNextLeavesTheLoop(t *testing.T) {
	d, _ := newDebugger(t)
	ctx := context.Background()
	d.Exec(ctx, "next") // Set n = 0
	d.Exec(ctx, "next") // the whole While

	if got := d.Engine().Vars()["n"]; got != 2 {
		t.Errorf("n = %v, want 2", got)
	}
	if p := d.buildPrompt(); !strings.Contains(p, "count") {
		t.Errorf("prompt = %q, want the Report", p)
	}
}

func TestDebuggerWhere(t *testing.T) {
	d, buf := newDebugger(t)
	ctx := context.Background()
	d.Exec(ctx, "tick 3")
	buf.Reset()
	d.Exec(ctx, "where")

	out := buf.String()
	if !strings.Contains(out, "While 'burn' n < 2") || !strings.Contains(out, "branch 0 of burn") {
		t.Errorf("where output:\n%s", out)
	}
}

func TestDebuggerContinueAndOutputs(t *testing.T) {
	d, buf := newDebugger(t)
	ctx := context.Background()
	d.Exec(ctx, "continue")
	if !strings.Contains(buf.String(), "✓ completed") {
		t.Errorf("continue output:\n%s", buf.String())
	}
	if p := d.buildPrompt(); p != "missionseq[done: completed]> " {
		t.Errorf("prompt = %q", p)
	}

	buf.Reset()
	d.Exec(ctx, "outputs")
	if !strings.Contains(buf.String(), "count: 2") {
		t.Errorf("outputs = %q", buf.String())
	}

	buf.Reset()
	d.Exec(ctx, "history")
	if !strings.Contains(buf.String(), "burn") {
		t.Errorf("history = %q", buf.String())
	}
}

// TestDebuggerPrintVars verifies print vars output.
func TestDebuggerPrintVars(t *testing.T) {
	d, buf := newDebugger(t)
	ctx := context.Background()
	d.Exec(ctx, "tick")
	d.Exec(ctx, "print vars")
	if !strings.Contains(buf.String(), "n = 0") {
		t.Errorf("print vars missing n: %s", buf.String())
	}

	buf.Reset()
	d.Exec(ctx, "print Sat.Mode")
	if !strings.Contains(buf.String(), "Sat.Mode = idle") {
		t.Errorf("print Sat.Mode = %q", buf.String())
	}

	buf.Reset()
	d.Exec(ctx, "print nope")
	if !strings.Contains(buf.String(), "not defined") {
		t.Errorf("print nope = %q", buf.String())
	}
}

func TestDebuggerSaveAndReset(t *testing.T) {
	d, buf := newDebugger(t)
	ctx := context.Background()
	d.Exec(ctx, "tick 2")
	d.Exec(ctx, "save")

	st, err := engine.LoadState(d.stateDir, "dbg-run")
	if err != nil {
		t.Fatalf("LoadState: %v\n%s", err, buf.String())
	}
	if st.Tick != 2 {
		t.Errorf("saved tick = %d", st.Tick)
	}
	if !strings.Contains(buf.String(), filepath.Join(d.stateDir, "dbg-run")) {
		t.Errorf("save output = %q", buf.String())
	}

	d.Exec(ctx, "reset")
	if d.Engine().Tick() != 0 || d.Engine().Done() {
		t.Errorf("after reset tick=%d done=%v", d.Engine().Tick(), d.Engine().Done())
	}
}

func TestDebuggerUnknownAndQuit(t *testing.T) {
	d, buf := newDebugger(t)
	ctx := context.Background()
	if d.Exec(ctx, "bogus") {
		t.Error("unknown command must not quit")
	}
	if !strings.Contains(buf.String(), "Unknown command") {
		t.Errorf("output = %q", buf.String())
	}
	if !d.Exec(ctx, "q") {
		t.Error("q must quit")
	}
}
