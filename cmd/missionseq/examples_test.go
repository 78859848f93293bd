package main

import (
	"path/filepath"
	"testing"

	ktesting "github.com/ormasoftchile/missionseq/pkg/kernel/testing"
)

func TestExampleScenariosPass(t *testing.T) {
	missions, err := filepath.Glob(filepath.Join("..", "..", "examples", "missions", "*.mission.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(missions) == 0 {
		t.Fatal("no example missions found")
	}

	runner := &ktesting.Runner{}
	for _, path := range missions {
		t.Run(filepath.Base(path), func(t *testing.T) {
			output, err := runner.RunAll(path)
			if err != nil {
				t.Fatal(err)
			}
			if output.Summary.Total == 0 {
				t.Fatal("no scenarios ran")
			}
			for _, s := range output.Scenarios {
				if s.Status == "passed" {
					continue
				}
				t.Errorf("scenario %s: %s %s", s.ScenarioName, s.Status, s.Error)
				for _, a := range s.Assertions {
					if !a.Passed {
						t.Errorf("  %s", a.Message)
					}
				}
			}
		})
	}
}
