// Package serve implements the JSON-RPC server editor integrations use to
// drive a mission run. It communicates over stdio using newline-delimited
// JSON messages; run events are pushed as notifications.
package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/ormasoftchile/missionseq/pkg/config"
	"github.com/ormasoftchile/missionseq/pkg/diagram"
	"github.com/ormasoftchile/missionseq/pkg/ecosystem/recorder"
	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
	"github.com/ormasoftchile/missionseq/pkg/kernel/engine"
	"github.com/ormasoftchile/missionseq/pkg/kernel/validate"
)

// JSON-RPC error codes.
const (
	codeParse          = -32700
	codeUnknownMethod  = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
	codeNoRun          = -32607
	codeValidation     = -32610
	codeRunNotFinished = -32611
)

// Message is a JSON-RPC 2.0 message (request or notification).
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int            `json:"id,omitempty"` // nil for notifications
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// StartParams are the parameters for exec/start.
type StartParams struct {
	Mission  string            `json:"mission"`
	Vars     map[string]string `json:"vars,omitempty"`
	MaxTicks int               `json:"maxTicks,omitempty"`
}

// StepParams are the parameters for exec/step.
type StepParams struct {
	Count int `json:"count,omitempty"`
}

// Server is the JSON-RPC server that wraps the mission engine. Requests
// are handled one at a time, in arrival order.
type Server struct {
	reader io.Reader
	writer io.Writer
	mu     sync.Mutex // serializes writes
	logger *log.Logger
	ctx    context.Context
	cancel context.CancelFunc

	res       *validate.Result
	engine    *engine.Engine
	overrides map[string]string
}

// New creates a server reading requests from r and writing responses and
// notifications to w.
func New(r io.Reader, w io.Writer) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		reader: r,
		writer: w,
		logger: config.DiscardLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetLogger sets the diagnostics logger. Diagnostics never go to the
// protocol stream.
func (s *Server) SetLogger(l *log.Logger) { s.logger = l }

// Run reads messages until the input ends or shutdown is requested.
func (s *Server) Run() error {
	defer s.cancel()

	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			s.sendError(nil, codeParse, fmt.Sprintf("parse error: %v", err))
			continue
		}

		s.dispatch(&msg)
		if s.ctx.Err() != nil {
			return nil
		}
	}

	return scanner.Err()
}

// dispatch routes a message to the appropriate handler.
func (s *Server) dispatch(msg *Message) {
	s.logger.Debug("request", "method", msg.Method)
	switch msg.Method {
	case "exec/start":
		s.handleStart(msg)
	case "exec/step":
		s.handleStep(msg)
	case "exec/continue":
		s.handleContinue(msg)
	case "exec/restart":
		s.handleRestart(msg)
	case "exec/getState":
		s.handleGetState(msg)
	case "exec/getVariables":
		s.handleGetVariables(msg)
	case "exec/saveState":
		s.handleSaveState(msg)
	case "exec/saveScenario":
		s.handleSaveScenario(msg)
	case "shutdown":
		s.cancel()
		s.sendResult(msg.ID, map[string]string{"status": "shutting down"})
	default:
		s.sendError(msg.ID, codeUnknownMethod, fmt.Sprintf("unknown method: %s", msg.Method))
	}
}

// handleStart validates a mission and prepares a run. No tick runs until
// exec/step or exec/continue.
func (s *Server) handleStart(msg *Message) {
	var params StartParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendError(msg.ID, codeInvalidParams, fmt.Sprintf("invalid params: %v", err))
		return
	}
	if params.Mission == "" {
		s.sendError(msg.ID, codeInvalidParams, "mission is required")
		return
	}
	s.logger.Info("exec/start", "mission", params.Mission)

	proj, err := config.ProjectFor(params.Mission)
	if err != nil {
		s.sendError(msg.ID, codeInternal, fmt.Sprintf("discover project: %v", err))
		return
	}
	res := validate.ValidateFile(params.Mission, validate.Options{Project: proj.Settings})
	if res.HasErrors() {
		s.sendError(msg.ID, codeValidation, firstError(res.Errors))
		return
	}
	vars, err := engine.ResolveVars(res.Mission.Meta.Vars, params.Vars)
	if err != nil {
		s.sendError(msg.ID, codeInvalidParams, fmt.Sprintf("resolve vars: %v", err))
		return
	}
	maxTicks := res.Settings.MaxTicks
	if params.MaxTicks > 0 {
		maxTicks = params.MaxTicks
	}

	s.res = res
	s.overrides = params.Vars
	s.engine = engine.New(res.Sequence, engine.RunConfig{
		Mission:           res.Mission.Meta.Name,
		Vars:              vars,
		Stdout:            &reportNotifier{s: s},
		Logger:            s.logger,
		MaxTicks:          uint64(maxTicks),
		MaxLoopIterations: res.Settings.MaxLoopIterations,
		Observer:          &notifier{s: s},
	})

	rows := diagram.Outline(res.Sequence)
	outline := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		if r.Node == command.NoNode {
			continue
		}
		outline = append(outline, map[string]any{
			"node":  r.Node,
			"depth": r.Depth,
			"text":  r.Text,
			"line":  res.Mission.SourceLine(r.Line),
		})
	}
	s.sendResult(msg.ID, map[string]any{
		"runId":    s.engine.State().RunID,
		"mission":  res.Mission.Meta.Name,
		"commands": outline,
	})
}

// handleStep runs count ticks (default 1), stopping early when the run
// ends.
func (s *Server) handleStep(msg *Message) {
	if !s.requireRun(msg) {
		return
	}
	params := StepParams{Count: 1}
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			s.sendError(msg.ID, codeInvalidParams, fmt.Sprintf("invalid params: %v", err))
			return
		}
	}
	if params.Count <= 0 {
		params.Count = 1
	}
	for i := 0; i < params.Count; i++ {
		if done, _ := s.engine.Step(); done {
			s.sendComplete()
			break
		}
	}
	s.sendResult(msg.ID, s.engine.State())
}

// handleContinue runs to the end of the mission.
func (s *Server) handleContinue(msg *Message) {
	if !s.requireRun(msg) {
		return
	}
	if !s.engine.Done() {
		s.engine.Run(s.ctx)
		s.sendComplete()
	}
	s.sendResult(msg.ID, s.engine.State())
}

func (s *Server) handleRestart(msg *Message) {
	if !s.requireRun(msg) {
		return
	}
	s.engine.Restart()
	s.sendResult(msg.ID, s.engine.State())
}

func (s *Server) handleGetState(msg *Message) {
	if !s.requireRun(msg) {
		return
	}
	st := s.engine.State()
	s.sendResult(msg.ID, map[string]any{
		"state":  st,
		"active": s.engine.ActivePath(),
	})
}

func (s *Server) handleGetVariables(msg *Message) {
	if !s.requireRun(msg) {
		return
	}
	s.sendResult(msg.ID, map[string]any{"vars": s.engine.Vars()})
}

// handleSaveState persists the run state under params.dir.
func (s *Server) handleSaveState(msg *Message) {
	if !s.requireRun(msg) {
		return
	}
	var params struct {
		Dir string `json:"dir"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil || params.Dir == "" {
		s.sendError(msg.ID, codeInvalidParams, "dir is required")
		return
	}
	path, err := engine.SaveState(params.Dir, s.engine.State())
	if err != nil {
		s.sendError(msg.ID, codeInternal, fmt.Sprintf("save state: %v", err))
		return
	}
	s.sendResult(msg.ID, map[string]string{"status": "saved", "path": path})
}

// handleSaveScenario records the finished run as a scenario test.yaml.
func (s *Server) handleSaveScenario(msg *Message) {
	if !s.requireRun(msg) {
		return
	}
	var params struct {
		OutputDir string `json:"outputDir"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil || params.OutputDir == "" {
		s.sendError(msg.ID, codeInvalidParams, "outputDir is required")
		return
	}
	result := s.engine.Result()
	if result == nil {
		s.sendError(msg.ID, codeRunNotFinished, "run has not finished")
		return
	}
	path, err := recorder.Save(params.OutputDir, recorder.New().Capture(s.overrides, result))
	if err != nil {
		s.sendError(msg.ID, codeInternal, fmt.Sprintf("save scenario: %v", err))
		return
	}
	s.sendResult(msg.ID, map[string]string{"status": "saved", "path": path})
}

func (s *Server) requireRun(msg *Message) bool {
	if s.engine == nil {
		s.sendError(msg.ID, codeNoRun, "no active execution")
		return false
	}
	return true
}

func (s *Server) sendComplete() {
	result := s.engine.Result()
	if result == nil {
		return
	}
	params := map[string]any{
		"runId":  result.RunID,
		"status": result.Status,
		"ticks":  result.Ticks,
	}
	if result.Error != nil {
		params["error"] = result.Error.Error()
	}
	s.sendEvent("event/complete", params)
}

// --- Message sending ---

func (s *Server) sendResult(id *int, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		s.sendError(id, codeInternal, fmt.Sprintf("encode result: %v", err))
		return
	}
	s.send(&Message{
		JSONRPC: "2.0",
		ID:      id,
		Result:  json.RawMessage(data),
	})
}

func (s *Server) sendError(id *int, code int, message string) {
	s.send(&Message{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	})
}

func (s *Server) sendEvent(method string, params any) {
	data, _ := json.Marshal(params)
	s.send(&Message{
		JSONRPC: "2.0",
		Method:  method,
		Params:  json.RawMessage(data),
	})
}

func (s *Server) send(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, _ := json.Marshal(msg)
	fmt.Fprintf(s.writer, "%s\n", data)
}

func firstError(errs []*validate.ValidationError) string {
	for _, e := range errs {
		if e.Severity == "error" {
			return e.Error()
		}
	}
	return "validation failed"
}

// notifier forwards engine diagnostics as notifications.
type notifier struct {
	s *Server
}

func (n *notifier) CommandStarted(c command.Command) {
	n.s.sendEvent("event/commandStart", map[string]any{
		"tick": n.s.engine.Tick(),
		"node": c.ID(),
		"name": c.Name(),
		"line": n.s.res.Mission.SourceLine(c.Line()),
	})
}

func (n *notifier) BranchSelected(c command.Container, branch int) {
	n.s.sendEvent("event/branchSelect", map[string]any{
		"tick":   n.s.engine.Tick(),
		"node":   c.ID(),
		"name":   c.Name(),
		"branch": branch,
	})
}

func (n *notifier) BranchExited(c command.Container, branch int) {
	n.s.sendEvent("event/branchExit", map[string]any{
		"tick":   n.s.engine.Tick(),
		"node":   c.ID(),
		"name":   c.Name(),
		"branch": branch,
	})
}

func (n *notifier) Snapshot(command.Snapshot) {}

// reportNotifier turns Report output into event/report notifications.
type reportNotifier struct {
	s *Server
}

func (w *reportNotifier) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		w.s.sendEvent("event/report", map[string]any{"text": line})
	}
	return len(p), nil
}
