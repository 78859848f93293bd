package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ormasoftchile/missionseq/pkg/kernel/schema"
)

func boolPtr(b bool) *bool { return &b }

func TestResolve_Precedence(t *testing.T) {
	project := Settings{MaxTicks: 500, MaxLoopIterations: 50, AllowElseIf: boolPtr(true), TraceDir: "traces"}
	m := &schema.Mission{Options: schema.Options{MaxTicks: 200, AllowElseIf: boolPtr(false)}}
	flags := Settings{MaxTicks: 10, LogLevel: "debug"}

	got := Resolve(project, m, flags)
	want := Settings{
		MaxTicks:          10,
		MaxLoopIterations: 50,
		AllowElseIf:       boolPtr(false),
		TraceDir:          "traces",
		LogLevel:          "debug",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
	if got.ElseIfAllowed() {
		t.Error("mission option should disable ElseIf")
	}
}

func TestResolve_Defaults(t *testing.T) {
	got := Resolve(Settings{}, nil, Settings{})
	if diff := cmp.Diff(Defaults(), got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_DoesNotAlias(t *testing.T) {
	src := Settings{AllowElseIf: boolPtr(true)}
	merged := Defaults().Merge(src)
	*src.AllowElseIf = false
	if !merged.ElseIfAllowed() {
		t.Error("merged settings changed with their source")
	}
}

func TestDiscoverProject(t *testing.T) {
	root := t.TempDir()
	manifest := "name: demo\nscenarios: tests\nsettings:\n  max_ticks: 42\n  allow_else_if: true\n"
	if err := os.WriteFile(filepath.Join(root, ManifestName), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "missions", "leo")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	mission := filepath.Join(sub, "raise.mission.yaml")
	if err := os.WriteFile(mission, []byte("apiVersion: mission/v0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	proj, err := DiscoverProject(mission)
	if err != nil {
		t.Fatal(err)
	}
	if proj == nil {
		t.Fatal("expected a project")
	}
	if proj.Name != "demo" || proj.Settings.MaxTicks != 42 || !proj.Settings.ElseIfAllowed() {
		t.Errorf("project = %+v", proj)
	}
	if got, want := proj.ScenariosDir(), filepath.Join(root, "tests"); got != want {
		t.Errorf("ScenariosDir = %q, want %q", got, want)
	}
}

func TestProjectFor_Fallback(t *testing.T) {
	dir := t.TempDir()
	proj, err := ProjectFor(dir)
	if err != nil {
		t.Fatal(err)
	}
	if proj.Root == "" || proj.Name != filepath.Base(proj.Root) {
		t.Errorf("fallback project = %+v", proj)
	}
	if got, want := proj.ScenariosDir(), filepath.Join(proj.Root, "scenarios"); got != want {
		t.Errorf("ScenariosDir = %q, want %q", got, want)
	}
}

func TestLoadProjectFile_RequiresName(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestName)
	if err := os.WriteFile(path, []byte("settings:\n  max_ticks: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProjectFile(path); err == nil || !strings.Contains(err.Error(), "name is required") {
		t.Errorf("err = %v, want name is required", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "info")
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("shown", "tick", 3)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") || !strings.Contains(out, "tick=3") {
		t.Errorf("log output = %q", out)
	}
	if _, err := NewLogger(&buf, "loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
