package serve

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	ktesting "github.com/ormasoftchile/missionseq/pkg/kernel/testing"
)

const orbitMission = `apiVersion: mission/v0
meta:
  name: orbit
  vars:
    alt: 300
sequence: |
  While 'raise' alt < 400
     Set alt = alt + 50
  EndWhile
  Report 'alt' alt
`

func writeMission(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orbit.mission.yaml")
	if err := os.WriteFile(path, []byte(orbitMission), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// session feeds requests to a server and returns every message it wrote.
func session(t *testing.T, requests ...string) []Message {
	t.Helper()
	var out bytes.Buffer
	s := New(strings.NewReader(strings.Join(requests, "\n")+"\n"), &out)
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	var msgs []Message
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var m Message
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad output line %q: %v", line, err)
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func request(t *testing.T, id int, method string, params any) string {
	t.Helper()
	msg := map[string]any{"jsonrpc": "2.0", "id": id, "method": method}
	if params != nil {
		msg["params"] = params
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// response finds the reply to request id.
func response(t *testing.T, msgs []Message, id int) Message {
	t.Helper()
	for _, m := range msgs {
		if m.ID != nil && *m.ID == id {
			return m
		}
	}
	t.Fatalf("no response to request %d", id)
	return Message{}
}

func events(msgs []Message, method string) []map[string]any {
	var out []map[string]any
	for _, m := range msgs {
		if m.ID == nil && m.Method == method {
			var p map[string]any
			json.Unmarshal(m.Params, &p)
			out = append(out, p)
		}
	}
	return out
}

func TestServe_StartStepContinue(t *testing.T) {
	path := writeMission(t)
	msgs := session(t,
		request(t, 1, "exec/start", map[string]any{"mission": path}),
		request(t, 2, "exec/step", map[string]any{"count": 2}),
		request(t, 3, "exec/continue", nil),
		request(t, 4, "exec/getVariables", nil),
	)

	start := response(t, msgs, 1)
	if start.Error != nil {
		t.Fatalf("start: %v", start.Error.Message)
	}
	var started struct {
		Mission  string           `json:"mission"`
		Commands []map[string]any `json:"commands"`
	}
	json.Unmarshal(start.Result, &started)
	if started.Mission != "orbit" || len(started.Commands) != 3 {
		t.Errorf("start result = %s", start.Result)
	}

	var stepped struct {
		Tick   uint64 `json:"tick"`
		Status string `json:"status"`
	}
	json.Unmarshal(response(t, msgs, 2).Result, &stepped)
	if stepped.Tick != 2 || stepped.Status != "running" {
		t.Errorf("after step: %s", response(t, msgs, 2).Result)
	}

	var final struct {
		Status  string   `json:"status"`
		Outputs []string `json:"outputs"`
	}
	json.Unmarshal(response(t, msgs, 3).Result, &final)
	if final.Status != "completed" {
		t.Errorf("status = %q", final.Status)
	}
	if diff := cmp.Diff([]string{"alt: 400"}, final.Outputs); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}

	reports := events(msgs, "event/report")
	if len(reports) != 1 || reports[0]["text"] != "alt: 400" {
		t.Errorf("report events = %v", reports)
	}
	if len(events(msgs, "event/complete")) != 1 {
		t.Error("expected one event/complete")
	}
	if len(events(msgs, "event/branchSelect")) == 0 {
		t.Error("expected branch select events")
	}

	var vars struct {
		Vars map[string]any `json:"vars"`
	}
	json.Unmarshal(response(t, msgs, 4).Result, &vars)
	if vars.Vars["alt"] != float64(400) {
		t.Errorf("vars = %v", vars.Vars)
	}
}

func TestServe_Errors(t *testing.T) {
	msgs := session(t,
		"{not json",
		request(t, 1, "exec/step", nil),
		request(t, 2, "exec/start", map[string]any{}),
		request(t, 3, "exec/bogus", nil),
	)
	if msgs[0].Error == nil || msgs[0].Error.Code != codeParse {
		t.Errorf("first message = %+v, want parse error", msgs[0])
	}
	cases := map[int]int{1: codeNoRun, 2: codeInvalidParams, 3: codeUnknownMethod}
	for id, code := range cases {
		m := response(t, msgs, id)
		if m.Error == nil || m.Error.Code != code {
			t.Errorf("request %d: error = %+v, want code %d", id, m.Error, code)
		}
	}
}

func TestServe_ValidationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mission.yaml")
	bad := strings.Replace(orbitMission, "  EndWhile\n", "", 1)
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	msgs := session(t, request(t, 1, "exec/start", map[string]any{"mission": path}))
	m := response(t, msgs, 1)
	if m.Error == nil || m.Error.Code != codeValidation {
		t.Fatalf("error = %+v, want validation error", m.Error)
	}
	if !strings.Contains(m.Error.Message, "[compile]") {
		t.Errorf("message = %q", m.Error.Message)
	}
}

func TestServe_SaveScenario(t *testing.T) {
	path := writeMission(t)
	dir := filepath.Join(t.TempDir(), "scenario")
	msgs := session(t,
		request(t, 1, "exec/start", map[string]any{"mission": path, "vars": map[string]string{"alt": "380"}}),
		request(t, 2, "exec/saveScenario", map[string]any{"outputDir": dir}),
		request(t, 3, "exec/continue", nil),
		request(t, 4, "exec/saveScenario", map[string]any{"outputDir": dir}),
		request(t, 5, "shutdown", nil),
		request(t, 6, "exec/getState", nil),
	)

	if m := response(t, msgs, 2); m.Error == nil || m.Error.Code != codeRunNotFinished {
		t.Errorf("save before finish: %+v", m.Error)
	}
	if m := response(t, msgs, 4); m.Error != nil {
		t.Fatalf("save: %v", m.Error.Message)
	}
	for _, m := range msgs {
		if m.ID != nil && *m.ID == 6 {
			t.Error("requests after shutdown must not be handled")
		}
	}

	spec, err := ktesting.LoadTestSpec(filepath.Join(dir, "test.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]string{"alt": "380"}, spec.Vars); diff != "" {
		t.Errorf("vars mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"alt: 430"}, spec.ExpectedReports); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}
}
