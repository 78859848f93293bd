package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

const orbitMission = `apiVersion: mission/v0
meta:
  name: orbit
  vars:
    alt: 300
    fuel: 40
sequence: |
  While 'raise' alt < 400 & fuel > 0
     Set alt = alt + 50
     Set fuel = fuel - 10
  EndWhile
  Report 'alt' alt
`

func writeMission(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orbit.mission.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want TextContent", result.Content[0])
	}
	return result, text.Text
}

func TestHandleValidate_MissingPath(t *testing.T) {
	result, _ := call(t, HandleValidate, map[string]any{})
	if !result.IsError {
		t.Error("expected error for missing path")
	}
}

func TestHandleValidate_Valid(t *testing.T) {
	result, text := call(t, HandleValidate, map[string]any{"path": writeMission(t, orbitMission)})
	if result.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "orbit is valid") {
		t.Errorf("text = %q", text)
	}
}

func TestHandleValidate_CompileError(t *testing.T) {
	bad := strings.Replace(orbitMission, "  EndWhile\n", "", 1)
	result, text := call(t, HandleValidate, map[string]any{"path": writeMission(t, bad)})
	if !result.IsError {
		t.Fatalf("expected error, got %q", text)
	}
	if !strings.Contains(text, "[compile]") {
		t.Errorf("text = %q, want a compile finding", text)
	}
}

func TestHandleSchema(t *testing.T) {
	result, text := call(t, HandleSchema, map[string]any{})
	if result.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "mission/v0") {
		t.Error("expected the mission api version in the schema")
	}
}

func TestHandleRun(t *testing.T) {
	path := writeMission(t, orbitMission)
	result, text := call(t, HandleRun, map[string]any{
		"path": path,
		"vars": map[string]any{"fuel": 10},
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", text)
	}

	var got struct {
		Status  string         `json:"status"`
		Reports []string       `json:"reports"`
		Vars    map[string]any `json:"vars"`
	}
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, text)
	}
	if got.Status != "completed" {
		t.Errorf("status = %q", got.Status)
	}
	if len(got.Reports) != 1 || got.Reports[0] != "alt: 350" {
		t.Errorf("reports = %v, want [alt: 350]", got.Reports)
	}
}

func TestHandleRun_TickLimit(t *testing.T) {
	path := writeMission(t, orbitMission)
	result, text := call(t, HandleRun, map[string]any{"path": path, "max_ticks": float64(3)})
	if !result.IsError {
		t.Fatalf("expected tick limit error, got %s", text)
	}
	if !strings.Contains(text, "tick limit") {
		t.Errorf("text = %q", text)
	}
}

func TestHandleShow(t *testing.T) {
	path := writeMission(t, orbitMission)
	_, text := call(t, HandleShow, map[string]any{"path": path})
	if !strings.HasPrefix(text, "flowchart TD") {
		t.Errorf("mermaid output = %q", text)
	}

	_, tree := call(t, HandleShow, map[string]any{"path": path, "format": "tree"})
	if !strings.Contains(tree, "raise") {
		t.Errorf("tree output = %q", tree)
	}

	result, _ := call(t, HandleShow, map[string]any{"path": path, "format": "svg"})
	if !result.IsError {
		t.Error("expected error for unknown format")
	}
}

func TestHandleTest_NoScenarios(t *testing.T) {
	path := writeMission(t, orbitMission)
	result, text := call(t, HandleTest, map[string]any{"path": path})
	if result.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, `"total": 0`) {
		t.Errorf("text = %q", text)
	}
}
