package plugins

import (
	"fmt"
	"sort"
	"strings"
)

// BuilderDefinition describes a command-driven builder loaded from
// .dfx/builders. Command lines and paths are text/template strings
// rendered per canister; see templateData for the available fields.
//
//	id: rust
//	types: [rust]
//	build:
//	  - cargo build --target wasm32-unknown-unknown --release -p {{.Name}}
//	wasm: target/wasm32-unknown-unknown/release/{{.Name}}.wasm
//	candid: '{{extra "candid"}}'
type BuilderDefinition struct {
	ID          string            `json:"id" yaml:"id"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Types       []string          `json:"types" yaml:"types"`
	Build       []string          `json:"build,omitempty" yaml:"build,omitempty"`
	Wasm        string            `json:"wasm" yaml:"wasm"`
	Candid      string            `json:"candid" yaml:"candid"`
	Env         map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// Normalized returns a trimmed copy of the definition.
func (def BuilderDefinition) Normalized() BuilderDefinition {
	clone := BuilderDefinition{
		ID:          strings.TrimSpace(def.ID),
		Description: strings.TrimSpace(def.Description),
		Wasm:        strings.TrimSpace(def.Wasm),
		Candid:      strings.TrimSpace(def.Candid),
	}
	for _, typ := range def.Types {
		if trimmed := strings.TrimSpace(typ); trimmed != "" {
			clone.Types = append(clone.Types, trimmed)
		}
	}
	for _, line := range def.Build {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			clone.Build = append(clone.Build, trimmed)
		}
	}
	if len(def.Env) > 0 {
		clone.Env = make(map[string]string, len(def.Env))
		for key, value := range def.Env {
			trimmedKey := strings.TrimSpace(key)
			if trimmedKey == "" {
				continue
			}
			clone.Env[trimmedKey] = value
		}
	}
	return clone
}

// Validate ensures the definition is well-formed and its templates parse.
func (def BuilderDefinition) Validate() error {
	normalized := def.Normalized()
	if normalized.ID == "" {
		return fmt.Errorf("plugin: id is required")
	}
	if len(normalized.Types) == 0 {
		return fmt.Errorf("plugin %s: at least one canister type is required", normalized.ID)
	}
	if normalized.Wasm == "" {
		return fmt.Errorf("plugin %s: wasm is required", normalized.ID)
	}
	if normalized.Candid == "" {
		return fmt.Errorf("plugin %s: candid is required", normalized.ID)
	}
	if _, err := compile(normalized); err != nil {
		return fmt.Errorf("plugin %s: %w", normalized.ID, err)
	}
	return nil
}

// EnvPairs returns the static environment as sorted KEY=VALUE templates.
func (def BuilderDefinition) EnvPairs() []string {
	keys := make([]string, 0, len(def.Env))
	for key := range def.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+def.Env[key])
	}
	return pairs
}
