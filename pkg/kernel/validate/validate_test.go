package validate

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ormasoftchile/missionseq/pkg/config"
)

func testdataPath(name string) string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata", name)
}

func TestValidateFile_Valid(t *testing.T) {
	res := ValidateFile(testdataPath("valid.mission.yaml"), Options{})
	for _, e := range res.Errors {
		t.Errorf("unexpected finding: %s", e)
	}
	if res.Mission == nil || res.Mission.Meta.Name != "orbit-raise" {
		t.Fatalf("mission = %+v", res.Mission)
	}
	if res.Sequence == nil {
		t.Fatal("expected a compiled sequence")
	}
	if res.Settings.MaxTicks != config.Defaults().MaxTicks {
		t.Errorf("MaxTicks = %d, want default", res.Settings.MaxTicks)
	}
}

func TestValidateFile_UnknownField(t *testing.T) {
	res := ValidateFile(testdataPath("unknown_field.mission.yaml"), Options{})
	errors := filterErrors(res.Errors)
	if len(errors) != 1 || errors[0].Phase != "structural" {
		t.Fatalf("errors = %v, want one structural error", errors)
	}
}

func TestValidateFile_MissingFields(t *testing.T) {
	res := ValidateFile(testdataPath("missing_fields.mission.yaml"), Options{})
	errors := filterErrors(res.Errors)
	for _, path := range []string{"apiVersion", "meta.name"} {
		if !containsPath(errors, path) {
			t.Errorf("expected a semantic error at %s, got %v", path, errors)
		}
	}
	if res.Sequence != nil {
		t.Error("sequence must not compile after semantic errors")
	}
}

func TestValidateFile_BadScript(t *testing.T) {
	res := ValidateFile(testdataPath("bad_script.mission.yaml"), Options{})
	errors := filterErrors(res.Errors)
	if len(errors) != 1 {
		t.Fatalf("errors = %v, want 1", errors)
	}
	e := errors[0]
	if e.Phase != "compile" || e.Path != "sequence:7" {
		t.Errorf("error = %s, want compile error at sequence:7", e)
	}
	if !strings.Contains(e.Message, "terminator has no open branch") {
		t.Errorf("message = %q", e.Message)
	}
}

func TestValidateFile_ElseIfGate(t *testing.T) {
	res := ValidateFile(testdataPath("elseif.mission.yaml"), Options{})
	if !containsMessage(filterErrors(res.Errors), "allow_else_if") {
		t.Errorf("expected ElseIf to be rejected, got %v", res.Errors)
	}

	yes := true
	res = ValidateFile(testdataPath("elseif.mission.yaml"), Options{Project: config.Settings{AllowElseIf: &yes}})
	if res.HasErrors() {
		t.Errorf("project setting should allow ElseIf: %v", res.Errors)
	}
}

func TestValidateFile_Warnings(t *testing.T) {
	res := ValidateFile(testdataPath("warnings.mission.yaml"), Options{})
	if res.HasErrors() {
		t.Fatalf("unexpected errors: %v", filterErrors(res.Errors))
	}
	warnings := filterWarnings(res.Errors)
	for _, want := range []string{
		"Wait 0 still takes one tick",
		`variable "unused" is never read`,
		`"ghost" is read before it is declared`,
		"NoOp is unreachable after Stop",
		"While body never assigns n",
	} {
		if !containsMessage(warnings, want) {
			t.Errorf("expected warning containing %q", want)
		}
	}
	if containsMessage(warnings, `"n" is read before`) {
		t.Error("declared variable reported as undeclared")
	}
}

func TestValidateFile_NotFound(t *testing.T) {
	res := ValidateFile(testdataPath("nonexistent.yaml"), Options{})
	if len(res.Errors) == 0 {
		t.Fatal("expected error for nonexistent file")
	}
	if res.Errors[0].Phase != "structural" {
		t.Errorf("expected structural error, got %q", res.Errors[0].Phase)
	}
}

// --- helpers ---

func filterErrors(errs []*ValidationError) []*ValidationError {
	return filterSeverity(errs, "error")
}

func filterWarnings(errs []*ValidationError) []*ValidationError {
	return filterSeverity(errs, "warning")
}

func filterSeverity(errs []*ValidationError, severity string) []*ValidationError {
	var out []*ValidationError
	for _, e := range errs {
		if e.Severity == severity {
			out = append(out, e)
		}
	}
	return out
}

func containsMessage(errs []*ValidationError, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func containsPath(errs []*ValidationError, path string) bool {
	for _, e := range errs {
		if e.Path == path {
			return true
		}
	}
	return false
}
