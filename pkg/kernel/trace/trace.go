// Package trace implements the append-only JSONL run trail. Every event
// carries the SHA-256 of the line before it, so that the file can be
// checked for tampering with Verify.
package trace

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
)

// EventType enumerates all trace event types.
type EventType string

const (
	EventRunStart     EventType = "run_start"
	EventRunComplete  EventType = "run_complete"
	EventTick         EventType = "tick"
	EventCommandStart EventType = "command_start"
	EventBranchSelect EventType = "branch_select"
	EventBranchExit   EventType = "branch_exit"
	EventSnapshot     EventType = "snapshot"
	EventReport       EventType = "report"
)

// Signing key environment variables. The key signs the chain hash placed
// on run_complete.
const (
	SigningKeyEnv   = "MISSIONSEQ_TRACE_SIGNING_KEY"
	SigningKeyIDEnv = "MISSIONSEQ_TRACE_SIGNING_KEY_ID"
)

// Genesis is the prev_hash of the first event.
var Genesis = strings.Repeat("0", 64)

// Event is a single trace event written to the JSONL stream.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	PrevHash  string         `json:"prev_hash"`
	Data      map[string]any `json:"data,omitempty"`
}

// Writer writes trace events to an append-only JSONL stream.
type Writer struct {
	mu       sync.Mutex
	w        io.Writer
	runID    string
	prevHash string
	now      func() time.Time
}

// NewWriter creates a trace writer that writes to the given io.Writer.
func NewWriter(w io.Writer, runID string) *Writer {
	return &Writer{
		w:        w,
		runID:    runID,
		prevHash: Genesis,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewFileWriter creates a trace writer that appends to a JSONL file.
func NewFileWriter(path, runID string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return NewWriter(f, runID), nil
}

// RunID is the run the writer stamps on every event.
func (tw *Writer) RunID() string { return tw.runID }

// Close closes the underlying stream when it is closable.
func (tw *Writer) Close() error {
	if c, ok := tw.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Emit writes a single trace event.
func (tw *Writer) Emit(eventType EventType, data map[string]any) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.emitLocked(eventType, data)
}

func (tw *Writer) emitLocked(eventType EventType, data map[string]any) error {
	evt := Event{
		Type:      eventType,
		Timestamp: tw.now(),
		RunID:     tw.runID,
		PrevHash:  tw.prevHash,
		Data:      data,
	}
	line, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	h := sha256.Sum256(line)
	if _, err := tw.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write %s event: %w", eventType, err)
	}
	tw.prevHash = hex.EncodeToString(h[:])
	return nil
}

// EmitRunStart emits a run_start event with the mission name and its
// initial variables.
func (tw *Writer) EmitRunStart(mission string, vars map[string]any) error {
	data := map[string]any{
		"mission": mission,
	}
	if len(vars) > 0 {
		data["vars"] = vars
	}
	return tw.Emit(EventRunStart, data)
}

// EmitTick emits a tick event for the trunk command under the cursor.
func (tw *Writer) EmitTick(tick uint64, c command.Command) error {
	return tw.Emit(EventTick, map[string]any{
		"tick": tick,
		"node": int(c.ID()),
		"kind": c.Kind().String(),
	})
}

// EmitCommandStart emits a command_start event.
func (tw *Writer) EmitCommandStart(tick uint64, c command.Command) error {
	data := map[string]any{
		"tick": tick,
		"node": int(c.ID()),
		"kind": c.Kind().String(),
		"line": c.Line(),
	}
	if c.Label() != "" {
		data["label"] = c.Label()
	}
	return tw.Emit(EventCommandStart, data)
}

// EmitBranchSelect emits a branch_select event. branch is
// command.NoBranch when no branch runs.
func (tw *Writer) EmitBranchSelect(tick uint64, c command.Container, branch int) error {
	return tw.Emit(EventBranchSelect, map[string]any{
		"tick":   tick,
		"node":   int(c.ID()),
		"kind":   c.Kind().String(),
		"name":   c.Name(),
		"branch": branch,
	})
}

// EmitBranchExit emits a branch_exit event.
func (tw *Writer) EmitBranchExit(tick uint64, c command.Container, branch int) error {
	return tw.Emit(EventBranchExit, map[string]any{
		"tick":   tick,
		"node":   int(c.ID()),
		"name":   c.Name(),
		"branch": branch,
	})
}

// EmitSnapshot emits the state of a branch command after an Execute.
func (tw *Writer) EmitSnapshot(s command.Snapshot) error {
	data := map[string]any{
		"tick":           s.Tick,
		"node":           int(s.Node),
		"kind":           s.Kind.String(),
		"name":           s.Name,
		"active_branch":  s.ActiveBranch,
		"branch_running": s.BranchRunning,
		"running":        s.Running,
		"complete":       s.Complete,
	}
	if s.Conditions != nil {
		data["conditions"] = s.Conditions
	}
	return tw.Emit(EventSnapshot, data)
}

// EmitReport emits one line of Report output.
func (tw *Writer) EmitReport(tick uint64, text string) error {
	return tw.Emit(EventReport, map[string]any{
		"tick": tick,
		"text": text,
	})
}

// EmitRunComplete emits a run_complete event carrying the chain hash and,
// when a signing key is configured, its HMAC signature.
func (tw *Writer) EmitRunComplete(status string, ticks uint64, duration time.Duration, runErr error) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	data := map[string]any{
		"status":     status,
		"ticks":      ticks,
		"duration":   duration.String(),
		"chain_hash": tw.prevHash,
	}
	if runErr != nil {
		data["error"] = runErr.Error()
	}
	if key := os.Getenv(SigningKeyEnv); key != "" {
		data["signature"] = sign(key, tw.prevHash)
		keyID := os.Getenv(SigningKeyIDEnv)
		if keyID == "" {
			keyID = "default"
		}
		data["signing_key_id"] = keyID
	}
	return tw.emitLocked(EventRunComplete, data)
}

func sign(key, chainHash string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(chainHash))
	return hex.EncodeToString(mac.Sum(nil))
}
