package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownVar rejects an override for a variable the mission never
// declared.
var ErrUnknownVar = errors.New("variable not declared in meta.vars")

// ResolveVars builds the initial variables of a run from the mission's
// declared vars and host overrides (CLI --var, scenario vars, MCP
// arguments). Override values are parsed as YAML scalars, so "3" becomes
// an int and "true" a bool. A dotted name assigns into a nested map.
//
// All hosts call this; none reimplement the precedence.
func ResolveVars(declared map[string]any, overrides map[string]string) (map[string]any, error) {
	vars := copyVars(declared)

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := strings.Split(name, ".")
		if _, ok := declared[path[0]]; !ok {
			return nil, fmt.Errorf("--var %s: %w", name, ErrUnknownVar)
		}
		v, err := parseScalar(overrides[name])
		if err != nil {
			return nil, fmt.Errorf("--var %s: %w", name, err)
		}
		if err := assign(vars, path, v); err != nil {
			return nil, fmt.Errorf("--var %s: %w", name, err)
		}
	}
	return vars, nil
}

// ParseOverrides splits "name=value" pairs.
func ParseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: expected name=value", p)
		}
		out[name] = value
	}
	return out, nil
}

func parseScalar(s string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("parse value: %w", err)
	}
	switch v.(type) {
	case map[string]any, []any:
		return nil, fmt.Errorf("value %q is not a scalar", s)
	case nil:
		return s, nil
	}
	return v, nil
}

func assign(vars map[string]any, path []string, v any) error {
	for _, p := range path[:len(path)-1] {
		next, ok := vars[p].(map[string]any)
		if !ok {
			if _, exists := vars[p]; exists {
				return fmt.Errorf("%s is not a map", p)
			}
			next = map[string]any{}
			vars[p] = next
		}
		vars = next
	}
	vars[path[len(path)-1]] = v
	return nil
}
