package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolveVars(t *testing.T) {
	declared := map[string]any{
		"mode":  "idle",
		"limit": 3,
		"Sat":   map[string]any{"Altitude": 400},
	}
	got, err := ResolveVars(declared, map[string]string{
		"limit":        "10",
		"mode":         "burn",
		"Sat.Altitude": "420.5",
		"Sat.Armed":    "true",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"mode":  "burn",
		"limit": 10,
		"Sat":   map[string]any{"Altitude": 420.5, "Armed": true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("vars mismatch (-want +got):\n%s", diff)
	}
	if declared["Sat"].(map[string]any)["Altitude"] != 400 {
		t.Error("declared vars were mutated")
	}
}

func TestResolveVars_UnknownVar(t *testing.T) {
	_, err := ResolveVars(map[string]any{"x": 1}, map[string]string{"y": "2"})
	if !errors.Is(err, ErrUnknownVar) {
		t.Errorf("err = %v, want ErrUnknownVar", err)
	}
}

func TestResolveVars_NonScalar(t *testing.T) {
	if _, err := ResolveVars(map[string]any{"x": 1}, map[string]string{"x": "[1, 2]"}); err == nil {
		t.Error("expected error for a list value")
	}
}

func TestParseOverrides(t *testing.T) {
	got, err := ParseOverrides([]string{"a=1", "b = x=y", "c="})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"a": "1", "b": " x=y", "c": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("overrides mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseOverrides([]string{"novalue"}); err == nil {
		t.Error("expected error for a pair without =")
	}
}
