package recorder

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ormasoftchile/missionseq/pkg/kernel/engine"
	"github.com/ormasoftchile/missionseq/pkg/kernel/script"
	ktesting "github.com/ormasoftchile/missionseq/pkg/kernel/testing"
)

func run(t *testing.T, src string, vars map[string]any) *engine.RunResult {
	t.Helper()
	seq, err := script.Compile(src, script.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return engine.New(seq, engine.RunConfig{Vars: vars, Stdout: io.Discard}).Run(context.Background())
}

func TestCapture(t *testing.T) {
	res := run(t, "While 'loop' n < 2\n   Set n = n + 1\nEndWhile\nReport 'done' n, Sat.Key\n",
		map[string]any{"n": 0, "Sat": map[string]any{"Key": "s3cr3t", "Alt": 400}, "list": []any{1}})

	r := New()
	spec := r.Capture(map[string]string{"n": "0"}, res)

	if spec.ExpectedStatus != "completed" {
		t.Errorf("status = %q", spec.ExpectedStatus)
	}
	if diff := cmp.Diff(map[string]string{"n": "0"}, spec.Vars); diff != "" {
		t.Errorf("vars mismatch (-want +got):\n%s", diff)
	}
	wantOutputs := map[string]string{"n": "2", "Sat.Alt": "400", "Sat.Key": "s3cr3t"}
	if diff := cmp.Diff(wantOutputs, spec.ExpectedOutputs); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"done: 2 s3cr3t"}, spec.ExpectedReports); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}

	seen := map[string]int{}
	for _, name := range spec.MustReach {
		seen[name]++
	}
	for _, name := range []string{"loop", "Set@2", "done"} {
		if seen[name] != 1 {
			t.Errorf("must_reach %v: want %q exactly once", spec.MustReach, name)
		}
	}
}

func TestCapture_RedactsSecrets(t *testing.T) {
	t.Setenv("TEST_RECORDER_SECRET", "s3cr3t")
	res := run(t, "Report 'key' key\n", map[string]any{"key": "s3cr3t"})

	r := New()
	r.SetSecrets([]string{"TEST_RECORDER_SECRET"})
	spec := r.Capture(map[string]string{"key": "s3cr3t"}, res)

	if spec.ExpectedReports[0] != "key: <REDACTED>" {
		t.Errorf("report = %q", spec.ExpectedReports[0])
	}
	if spec.ExpectedOutputs["key"] != "<REDACTED>" || spec.Vars["key"] != "<REDACTED>" {
		t.Errorf("outputs = %v, vars = %v", spec.ExpectedOutputs, spec.Vars)
	}
}

func TestSaveReplaysAsScenario(t *testing.T) {
	res := run(t, "Stop\n", nil)
	spec := New().Capture(nil, res)

	path, err := Save(filepath.Join(t.TempDir(), "stopped"), spec)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := ktesting.LoadTestSpec(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(spec, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if loaded.ExpectedStatus != "stopped" {
		t.Errorf("status = %q", loaded.ExpectedStatus)
	}
}
