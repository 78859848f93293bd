// Package schema defines the mission/v0 document: mission metadata, run
// options and the sequence script.
package schema

// API version constant for mission/v0.
const APIVersionMission = "mission/v0"

// ---------------------------------------------------------------------------
// Mission
// ---------------------------------------------------------------------------

// Mission is the top-level mission/v0 document.
type Mission struct {
	APIVersion string  `yaml:"apiVersion" json:"apiVersion" jsonschema:"enum=mission/v0"`
	Meta       Meta    `yaml:"meta"       json:"meta"`
	Options    Options `yaml:"options,omitempty"  json:"options,omitempty"`
	Sequence   string  `yaml:"sequence"   json:"sequence" jsonschema:"minLength=1"`

	// SequenceLine is the file line on which the first sequence line
	// sits; zero when the mission was not loaded from YAML.
	SequenceLine int `yaml:"-" json:"-"`
}

// ---------------------------------------------------------------------------
// Meta
// ---------------------------------------------------------------------------

// Meta contains mission metadata and the initial variables.
type Meta struct {
	Name        string         `yaml:"name"        json:"name" jsonschema:"minLength=1"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Vars        map[string]any `yaml:"vars,omitempty"        json:"vars,omitempty"`
	Tags        []string       `yaml:"tags,omitempty"        json:"tags,omitempty"`
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options are per-mission run settings. Unset fields fall back to the
// project configuration.
type Options struct {
	AllowElseIf       *bool `yaml:"allow_else_if,omitempty"       json:"allow_else_if,omitempty"`
	MaxTicks          int   `yaml:"max_ticks,omitempty"           json:"max_ticks,omitempty" jsonschema:"minimum=0"`
	MaxLoopIterations int   `yaml:"max_loop_iterations,omitempty" json:"max_loop_iterations,omitempty" jsonschema:"minimum=0"`
}

// SourceLine maps a 1-based sequence line to its line in the mission file.
func (m *Mission) SourceLine(seqLine int) int {
	if m.SequenceLine == 0 || seqLine == 0 {
		return seqLine
	}
	return m.SequenceLine + seqLine - 1
}
