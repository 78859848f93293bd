// Package engine drives a compiled mission sequence tick by tick.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ormasoftchile/missionseq/pkg/config"
	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
	"github.com/ormasoftchile/missionseq/pkg/kernel/eval"
	"github.com/ormasoftchile/missionseq/pkg/kernel/trace"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusStopped   = "stopped"
	StatusError     = "error"
)

var (
	// ErrTickLimit ends a run that is still going after RunConfig.MaxTicks.
	ErrTickLimit = errors.New("tick limit reached")
	// ErrAborted ends a run that the host abandoned.
	ErrAborted = errors.New("run aborted")
)

// RunConfig configures a mission run.
type RunConfig struct {
	RunID   string
	Mission string         // mission name, for the trace
	Vars    map[string]any // initial variables; copied
	Stdout  io.Writer      // Report output; defaults to os.Stdout
	Trace   *trace.Writer
	Logger  *log.Logger

	// MaxTicks bounds the run; zero means unbounded.
	MaxTicks uint64
	// MaxLoopIterations bounds each While or For pass; zero means unbounded.
	MaxLoopIterations int

	Evaluator command.Evaluator // nil uses the expr-lang evaluator
	Observer  command.Reporter  // optional, sees what the trace sees
}

// RunResult is the outcome of executing a mission.
type RunResult struct {
	RunID    string
	Status   string // "completed", "stopped", "error"
	Ticks    uint64
	Duration time.Duration
	Vars     map[string]any
	Visited  []string
	Outputs  []string
	Error    error
}

// Engine executes one mission sequence. It is not safe for concurrent use.
type Engine struct {
	cfg    RunConfig
	seq    *command.Sequence
	rt     *command.Runtime
	trace  *trace.Writer
	logger *log.Logger

	cursor    command.NodeID
	started   bool
	startTime time.Time
	result    *RunResult
	visited   []string
	outputs   []string
}

// New creates an engine for a compiled sequence and starts a new run epoch
// on it.
func New(seq *command.Sequence, cfg RunConfig) *Engine {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = eval.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = config.DiscardLogger()
	}

	e := &Engine{
		cfg:    cfg,
		seq:    seq,
		trace:  cfg.Trace,
		logger: logger.With("run", shortID(cfg.RunID)),
	}
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.seq.BeginRun()
	e.rt = &command.Runtime{
		Seq:               e.seq,
		Eval:              e.cfg.Evaluator,
		Vars:              copyVars(e.cfg.Vars),
		Out:               &reportWriter{e: e},
		Reporter:          &reporter{e: e},
		MaxLoopIterations: e.cfg.MaxLoopIterations,
	}
	e.cursor = e.seq.Head()
	e.started = false
	e.result = nil
	e.visited = nil
	e.outputs = nil
}

// Run executes the sequence until it completes, stops, fails or ctx is
// done.
func (e *Engine) Run(ctx context.Context) *RunResult {
	for {
		if err := ctx.Err(); err != nil {
			e.seq.Reset()
			return e.finish(StatusError, fmt.Errorf("run cancelled: %w", err))
		}
		done, _ := e.Step()
		if done {
			return e.result
		}
	}
}

// Step runs one tick: the trunk command under the cursor executes once.
// It reports done once the run has ended; err is the run error, if any.
func (e *Engine) Step() (done bool, err error) {
	if e.result != nil {
		return true, e.result.Error
	}
	if !e.started {
		e.start()
	}
	if e.cursor == command.NoNode {
		e.finish(StatusCompleted, nil)
		return true, nil
	}
	if e.cfg.MaxTicks > 0 && e.rt.Tick >= e.cfg.MaxTicks {
		e.seq.Reset()
		r := e.finish(StatusError, fmt.Errorf("%w: %d", ErrTickLimit, e.cfg.MaxTicks))
		return true, r.Error
	}

	e.rt.Tick++
	c := e.seq.Node(e.cursor)
	e.logger.Debug("tick", "tick", e.rt.Tick, "node", c.ID(), "kind", c.Kind())
	if e.trace != nil {
		e.trace.EmitTick(e.rt.Tick, c)
	}
	e.rt.Enter(c)
	if _, err := c.Execute(e.rt); err != nil {
		e.seq.Reset()
		r := e.finish(StatusError, fmt.Errorf("tick %d: %s at line %d: %w", e.rt.Tick, c.Kind(), c.Line(), err))
		return true, r.Error
	}
	if !c.Running() {
		e.cursor = c.Next()
	}

	switch {
	case e.rt.Stopped:
		e.seq.Reset()
		e.finish(StatusStopped, nil)
		return true, nil
	case e.cursor == command.NoNode:
		e.finish(StatusCompleted, nil)
		return true, nil
	}
	return false, nil
}

// Abort abandons the run and clears the run state of every command.
func (e *Engine) Abort() *RunResult {
	if e.result != nil {
		return e.result
	}
	e.seq.Reset()
	return e.finish(StatusError, ErrAborted)
}

// Restart abandons any current run and prepares a fresh one with the
// initial variables.
func (e *Engine) Restart() {
	if e.result == nil && e.started {
		e.Abort()
	}
	e.seq.Reset()
	e.reset()
}

// Done reports whether the run has ended.
func (e *Engine) Done() bool { return e.result != nil }

// Result is the run outcome, or nil while the run is going.
func (e *Engine) Result() *RunResult { return e.result }

// Sequence is the sequence being run.
func (e *Engine) Sequence() *command.Sequence { return e.seq }

// Cursor is the trunk command that executes on the next tick.
func (e *Engine) Cursor() command.NodeID { return e.cursor }

// Tick is the number of ticks run so far.
func (e *Engine) Tick() uint64 { return e.rt.Tick }

// Vars are the live mission variables.
func (e *Engine) Vars() map[string]any { return e.rt.Vars }

// Visited lists the names of commands in the order they started a fresh
// pass. Branch children are included.
func (e *Engine) Visited() []string { return e.visited }

// Outputs are the Report lines written so far.
func (e *Engine) Outputs() []string { return e.outputs }

func (e *Engine) start() {
	e.started = true
	e.startTime = time.Now()
	e.logger.Info("run start", "mission", e.cfg.Mission, "run_id", e.cfg.RunID)
	if e.trace != nil {
		e.trace.EmitRunStart(e.cfg.Mission, e.rt.Vars)
	}
}

func (e *Engine) finish(status string, err error) *RunResult {
	if !e.started {
		e.start()
	}
	e.result = &RunResult{
		RunID:    e.cfg.RunID,
		Status:   status,
		Ticks:    e.rt.Tick,
		Duration: time.Since(e.startTime),
		Vars:     e.rt.Vars,
		Visited:  e.visited,
		Outputs:  e.outputs,
		Error:    err,
	}
	if err != nil {
		e.logger.Error("run failed", "ticks", e.rt.Tick, "err", err)
	} else {
		e.logger.Info("run complete", "status", status, "ticks", e.rt.Tick)
	}
	if e.trace != nil {
		e.trace.EmitRunComplete(status, e.rt.Tick, e.result.Duration, err)
	}
	return e.result
}

// reporter feeds command diagnostics into the trace, the logger and the
// optional observer.
type reporter struct {
	e *Engine
}

func (r *reporter) CommandStarted(c command.Command) {
	e := r.e
	e.visited = append(e.visited, c.Name())
	if e.trace != nil {
		e.trace.EmitCommandStart(e.rt.Tick, c)
	}
	if e.cfg.Observer != nil {
		e.cfg.Observer.CommandStarted(c)
	}
}

func (r *reporter) BranchSelected(c command.Container, branch int) {
	e := r.e
	e.logger.Debug("branch select", "node", c.Name(), "branch", branch)
	if e.trace != nil {
		e.trace.EmitBranchSelect(e.rt.Tick, c, branch)
	}
	if e.cfg.Observer != nil {
		e.cfg.Observer.BranchSelected(c, branch)
	}
}

func (r *reporter) BranchExited(c command.Container, branch int) {
	e := r.e
	e.logger.Debug("branch exit", "node", c.Name(), "branch", branch)
	if e.trace != nil {
		e.trace.EmitBranchExit(e.rt.Tick, c, branch)
	}
	if e.cfg.Observer != nil {
		e.cfg.Observer.BranchExited(c, branch)
	}
}

func (r *reporter) Snapshot(s command.Snapshot) {
	e := r.e
	if e.trace != nil {
		e.trace.EmitSnapshot(s)
	}
	if e.cfg.Observer != nil {
		e.cfg.Observer.Snapshot(s)
	}
}

// reportWriter records Report lines and forwards them to Stdout.
type reportWriter struct {
	e       *Engine
	partial []byte
}

func (w *reportWriter) Write(p []byte) (int, error) {
	e := w.e
	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		line := string(w.partial[:i])
		w.partial = w.partial[i+1:]
		e.outputs = append(e.outputs, line)
		if e.trace != nil {
			e.trace.EmitReport(e.rt.Tick, line)
		}
	}
	return e.cfg.Stdout.Write(p)
}

func copyVars(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		if m, ok := v.(map[string]any); ok {
			v = copyVars(m)
		}
		out[k] = v
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
