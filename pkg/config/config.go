// Package config resolves run settings from the built-in defaults, the
// project manifest (missionseq.yaml), the mission's own options and CLI
// flags, in increasing order of precedence.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/missionseq/pkg/kernel/schema"
)

// ManifestName is the project manifest file name.
const ManifestName = "missionseq.yaml"

// Settings are the knobs a run can be configured with. Zero values mean
// "not set" so that layers can be merged.
type Settings struct {
	MaxTicks          int    `yaml:"max_ticks,omitempty"           json:"max_ticks,omitempty"`
	MaxLoopIterations int    `yaml:"max_loop_iterations,omitempty" json:"max_loop_iterations,omitempty"`
	AllowElseIf       *bool  `yaml:"allow_else_if,omitempty"       json:"allow_else_if,omitempty"`
	TraceDir          string `yaml:"trace_dir,omitempty"           json:"trace_dir,omitempty"`
	LogLevel          string `yaml:"log_level,omitempty"           json:"log_level,omitempty"`
}

// Defaults are the built-in settings.
func Defaults() Settings {
	no := false
	return Settings{
		MaxTicks:          100000,
		MaxLoopIterations: 10000,
		AllowElseIf:       &no,
		LogLevel:          "warn",
	}
}

// Merge returns s with every field that o sets overridden.
func (s Settings) Merge(o Settings) Settings {
	if o.MaxTicks != 0 {
		s.MaxTicks = o.MaxTicks
	}
	if o.MaxLoopIterations != 0 {
		s.MaxLoopIterations = o.MaxLoopIterations
	}
	if o.AllowElseIf != nil {
		v := *o.AllowElseIf
		s.AllowElseIf = &v
	}
	if o.TraceDir != "" {
		s.TraceDir = o.TraceDir
	}
	if o.LogLevel != "" {
		s.LogLevel = o.LogLevel
	}
	return s
}

// ElseIfAllowed reports whether ElseIf chains compile.
func (s Settings) ElseIfAllowed() bool {
	return s.AllowElseIf != nil && *s.AllowElseIf
}

// FromMission lifts a mission's options into a settings layer.
func FromMission(m *schema.Mission) Settings {
	if m == nil {
		return Settings{}
	}
	return Settings{
		MaxTicks:          m.Options.MaxTicks,
		MaxLoopIterations: m.Options.MaxLoopIterations,
		AllowElseIf:       m.Options.AllowElseIf,
	}
}

// Resolve layers defaults < project < mission < flags.
func Resolve(project Settings, m *schema.Mission, flags Settings) Settings {
	return Defaults().Merge(project).Merge(FromMission(m)).Merge(flags)
}

// ---------------------------------------------------------------------------
// Project manifest
// ---------------------------------------------------------------------------

// Project is a missionseq.yaml manifest.
type Project struct {
	Name      string   `yaml:"name"                json:"name"`
	Scenarios string   `yaml:"scenarios,omitempty" json:"scenarios,omitempty"`
	Settings  Settings `yaml:"settings,omitempty"  json:"settings,omitempty"`

	// Root is the absolute path to the directory containing the manifest.
	// Set after loading/discovery, not from YAML.
	Root string `yaml:"-" json:"-"`
}

// ScenariosDir returns the effective scenarios directory (default:
// "scenarios" under the project root).
func (p *Project) ScenariosDir() string {
	if p == nil {
		return "scenarios"
	}
	dir := p.Scenarios
	if dir == "" {
		dir = "scenarios"
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(p.Root, dir)
}

// LoadProjectFile loads a manifest from an explicit path.
func LoadProjectFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project manifest: %w", err)
	}

	var proj Project
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&proj); err != nil {
		return nil, fmt.Errorf("parse project manifest: %w", err)
	}
	if proj.Name == "" {
		return nil, fmt.Errorf("project manifest %s: name is required", path)
	}

	proj.Root = filepath.Dir(path)
	return &proj, nil
}

// DiscoverProject walks up from startPath to find the nearest
// missionseq.yaml. Returns nil (no error) if no manifest is found; the
// caller should use FallbackProject in that case.
func DiscoverProject(startPath string) (*Project, error) {
	abs, err := filepath.Abs(startPath)
	if err != nil {
		return nil, err
	}

	// If startPath is a file, start from its directory
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	dir := abs
	if !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return LoadProjectFile(candidate)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// FallbackProject creates a minimal project rooted at dir with default
// settings. Used when no manifest is found.
func FallbackProject(dir string) *Project {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return &Project{Name: filepath.Base(abs), Root: abs}
}

// ProjectFor discovers the project that owns path, falling back to a
// project rooted at path's directory.
func ProjectFor(path string) (*Project, error) {
	proj, err := DiscoverProject(path)
	if err != nil {
		return nil, err
	}
	if proj == nil {
		dir := path
		if info, statErr := os.Stat(path); statErr == nil && !info.IsDir() {
			dir = filepath.Dir(path)
		}
		proj = FallbackProject(dir)
	}
	return proj, nil
}
