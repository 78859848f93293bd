package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
)

// Frame is one branch command on the active path from the trunk cursor
// down to the innermost running child.
type Frame struct {
	Node   command.NodeID `json:"node"`
	Name   string         `json:"name"`
	Kind   string         `json:"kind"`
	Branch int            `json:"branch"`
	Cursor command.NodeID `json:"cursor"`
}

// State captures the engine state at a point in time.
type State struct {
	RunID   string         `json:"run_id"`
	Tick    uint64         `json:"tick"`
	Status  string         `json:"status"`
	Cursor  command.NodeID `json:"cursor"`
	Active  []Frame        `json:"active,omitempty"`
	Vars    map[string]any `json:"vars"`
	Outputs []string       `json:"outputs,omitempty"`
}

// State returns a snapshot of the run.
func (e *Engine) State() *State {
	st := &State{
		RunID:   e.cfg.RunID,
		Tick:    e.rt.Tick,
		Status:  StatusRunning,
		Cursor:  e.cursor,
		Vars:    copyVars(e.rt.Vars),
		Outputs: append([]string(nil), e.outputs...),
	}
	if e.result != nil {
		st.Status = e.result.Status
		return st
	}
	st.Active = e.ActivePath()
	return st
}

// ActivePath follows the running branches from the trunk cursor inward.
func (e *Engine) ActivePath() []Frame {
	var frames []Frame
	id := e.cursor
	for id != command.NoNode {
		c, ok := e.seq.Node(id).(command.Container)
		if !ok || !c.Running() || !c.BranchRunning() {
			break
		}
		frames = append(frames, Frame{
			Node:   c.ID(),
			Name:   c.Name(),
			Kind:   c.Kind().String(),
			Branch: c.ActiveBranch(),
			Cursor: c.Cursor(),
		})
		id = c.Cursor()
	}
	return frames
}

// Running reports whether id is on the active path or is the trunk cursor.
func (e *Engine) Running(id command.NodeID) bool {
	if e.result != nil {
		return false
	}
	if id == e.cursor {
		return true
	}
	for _, f := range e.ActivePath() {
		if f.Cursor == id {
			return true
		}
	}
	return false
}

// ErrInvalidRunID rejects run IDs that would name a path outside the state
// directory.
var ErrInvalidRunID = errors.New("invalid run id")

func checkRunID(runID string) error {
	if runID == "" || runID == "." || runID == ".." || strings.ContainsAny(runID, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}
	return nil
}

// SaveState writes st to dir/<run_id>/state.json.
func SaveState(dir string, st *State) (string, error) {
	if err := checkRunID(st.RunID); err != nil {
		return "", err
	}
	runDir := filepath.Join(dir, st.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}

	path := filepath.Join(runDir, "state.json")
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write state: %w", err)
	}
	return path, nil
}

// LoadState reads a state saved by SaveState.
func LoadState(dir, runID string) (*State, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, runID, "state.json"))
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &st, nil
}
