package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateMissionJSONSchema produces a JSON Schema Draft 2020-12 document
// from the mission/v0 Go types.
func GenerateMissionJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	s := r.Reflect(&Mission{})
	s.ID = "https://github.com/ormasoftchile/missionseq/schemas/mission-v0.json"
	s.Title = "Mission sequence — mission/v0"
	s.Description = "Schema for mission/v0 YAML documents (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal mission schema: %w", err)
	}
	return data, nil
}
