package testing

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const orbitMission = `apiVersion: mission/v0
meta:
  name: orbit-raise
  vars:
    alt: 300
    target: 420
    fuel: 40
sequence: |
  While alt < target & fuel > 0
     Set alt = alt + 50
     Set fuel = fuel - 10
     Wait 'burn' 2
  EndWhile
  If alt >= target
     Report 'reached' alt, fuel
  Else
     Report 'short' alt
  EndIf
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// setupProject lays out a project with one mission and its scenarios.
func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "missionseq.yaml"), "name: demo\n")
	writeFile(t, filepath.Join(root, "orbit.mission.yaml"), orbitMission)

	writeFile(t, filepath.Join(root, "scenarios", "orbit", "nominal", "test.yaml"), `
expected_status: completed
must_reach: [burn, reached]
must_not_reach: [short]
expected_outputs:
  alt: "450"
  fuel: "10"
expected_reports:
  - "reached: 450 10"
`)
	writeFile(t, filepath.Join(root, "scenarios", "orbit", "low-fuel", "test.yaml"), `
vars:
  fuel: "10"
expected_status: completed
must_reach: [short]
expected_reports:
  - "short: 350"
`)
	writeFile(t, filepath.Join(root, "scenarios", "orbit", "wrong", "test.yaml"), `
expected_status: stopped
`)
	// No test.yaml: not a scenario.
	if err := os.MkdirAll(filepath.Join(root, "scenarios", "orbit", "notes"), 0o755); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestDiscoverScenarios(t *testing.T) {
	root := setupProject(t)
	r := &Runner{}
	proj, _, err := r.load(filepath.Join(root, "orbit.mission.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	scenarios, err := DiscoverScenarios(proj, filepath.Join(root, "orbit.mission.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(scenarios) != 3 {
		t.Fatalf("expected 3 scenarios, got %d: %+v", len(scenarios), scenarios)
	}
}

func TestRunAll(t *testing.T) {
	root := setupProject(t)
	r := &Runner{Timeout: 10 * time.Second}

	out, err := r.RunAll(filepath.Join(root, "orbit.mission.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Mission != "orbit-raise" {
		t.Errorf("mission = %q", out.Mission)
	}
	if out.Summary.Total != 3 || out.Summary.Passed != 2 || out.Summary.Failed != 1 {
		t.Errorf("summary = %+v", out.Summary)
	}
	for _, sc := range out.Scenarios {
		want := "passed"
		if sc.ScenarioName == "wrong" {
			want = "failed"
		}
		if sc.Status != want {
			t.Errorf("%s: status = %q, want %q (%+v)", sc.ScenarioName, sc.Status, want, sc.Assertions)
		}
	}
}

func TestRunAll_FailFast(t *testing.T) {
	root := setupProject(t)
	writeFile(t, filepath.Join(root, "scenarios", "orbit", "a-first", "test.yaml"), "expected_status: error\n")
	r := &Runner{FailFast: true}

	out, err := r.RunAll(filepath.Join(root, "orbit.mission.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Summary.Total != 1 || out.Summary.Failed != 1 {
		t.Errorf("summary = %+v, want a stop after the first failure", out.Summary)
	}
}

func TestRunScenario_TickLimit(t *testing.T) {
	root := setupProject(t)
	writeFile(t, filepath.Join(root, "scenarios", "orbit", "short-budget", "test.yaml"), `
max_ticks: 5
expected_status: error
`)
	r := &Runner{}

	res, err := r.RunScenario(filepath.Join(root, "orbit.mission.yaml"), "short-budget")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != "passed" || res.Ticks != 5 {
		t.Errorf("status = %q ticks = %d (%+v)", res.Status, res.Ticks, res.Assertions)
	}
}

func TestRunScenario_UnknownVar(t *testing.T) {
	root := setupProject(t)
	writeFile(t, filepath.Join(root, "scenarios", "orbit", "typo", "test.yaml"), "vars:\n  fule: \"1\"\n")
	r := &Runner{}

	res, err := r.RunScenario(filepath.Join(root, "orbit.mission.yaml"), "typo")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != "error" {
		t.Errorf("status = %q, want error", res.Status)
	}
}

func TestRunAll_InvalidMission(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bad.mission.yaml"), "apiVersion: mission/v0\nmeta:\n  name: bad\nsequence: |\n  If x == 1\n")
	r := &Runner{}

	if _, err := r.RunAll(filepath.Join(root, "bad.mission.yaml")); err == nil {
		t.Error("expected validation error for an unclosed If")
	}
}

func TestMissionBase(t *testing.T) {
	tests := map[string]string{
		"missions/orbit.mission.yaml": "orbit",
		"orbit.mission.yml":           "orbit",
		"orbit.yaml":                  "orbit",
		"orbit.txt":                   "orbit",
	}
	for in, want := range tests {
		if got := MissionBase(in); got != want {
			t.Errorf("MissionBase(%q) = %q, want %q", in, got, want)
		}
	}
}
