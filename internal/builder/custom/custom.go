// Package custom builds canisters whose wasm and candid files come from
// user supplied commands.
//
//	"svc": {
//	  "type": "custom",
//	  "build": ["cargo build --release", "ic-wasm target/svc.wasm -o svc.wasm shrink"],
//	  "wasm": "svc.wasm",
//	  "candid": "src/svc/svc.did"
//	}
package custom

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/dfxcore/internal/builder"
	"github.com/kingrea/dfxcore/internal/canister"
	"github.com/kingrea/dfxcore/internal/dfxerr"
	"github.com/kingrea/dfxcore/internal/principal"
)

// Type is the canister type handled here.
const Type = "custom"

// Builder runs the declared build commands.
type Builder struct{}

// New returns a custom builder.
func New() *Builder { return &Builder{} }

// Extras is the custom canister's view of dfx.json.
type Extras struct {
	Build  []string
	Wasm   string
	Candid string
}

// ReadExtras decodes and validates the custom keys of a canister.
func ReadExtras(info *canister.Info) (Extras, error) {
	var extras Extras
	wasm, ok, err := info.ExtraString("wasm")
	if err != nil {
		return extras, err
	}
	if !ok || wasm == "" {
		return extras, dfxerr.Config("canister '%s' of type custom requires a 'wasm' path", info.Name())
	}
	candid, ok, err := info.ExtraString("candid")
	if err != nil {
		return extras, err
	}
	if !ok || candid == "" {
		return extras, dfxerr.Config("canister '%s' of type custom requires a 'candid' path", info.Name())
	}
	var raw yaml.Node
	if ok, err := info.ExtraValue("build", &raw); err != nil {
		return extras, err
	} else if ok {
		commands, err := buildCommands(&raw)
		if err != nil {
			return extras, fmt.Errorf("canister '%s': %w", info.Name(), err)
		}
		extras.Build = commands
	}
	extras.Wasm = info.ResolvePath(wasm)
	extras.Candid = info.ResolvePath(candid)
	return extras, nil
}

// buildCommands accepts either one command string or a list of them.
func buildCommands(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!str" {
			return []string{node.Value}, nil
		}
	case yaml.SequenceNode:
		commands := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode || item.ShortTag() != "!!str" {
				return nil, dfxerr.Config("Field 'build' is of the wrong type")
			}
			commands = append(commands, item.Value)
		}
		return commands, nil
	}
	return nil, dfxerr.Config("Field 'build' is of the wrong type")
}

func (b *Builder) Supports(info *canister.Info) bool {
	return info.Type() == Type
}

func (b *Builder) GetDependencies(pool builder.Pool, info *canister.Info) ([]principal.ID, error) {
	return builder.DependencyIDs(pool, info)
}

// Build runs the build commands in the workspace root and checks that the
// declared artifacts exist afterwards.
func (b *Builder) Build(pool builder.Pool, info *canister.Info, cfg builder.Config) (builder.Output, error) {
	id, ok := info.CanisterID()
	if !ok {
		return builder.Output{}, dfxerr.NotFound("Could not find canister ID for '%s'.", info.Name())
	}
	extras, err := ReadExtras(info)
	if err != nil {
		return builder.Output{}, err
	}
	deps, err := builder.DependencyIDs(pool, info)
	if err != nil {
		return builder.Output{}, err
	}
	env := builder.EnvironmentVariables(pool, info, cfg, deps)
	if err := builder.RunShellCommands(pool.Logger(), info.WorkspaceRoot(), extras.Build, env); err != nil {
		return builder.Output{}, fmt.Errorf("failed to build custom canister '%s': %w", info.Name(), err)
	}
	for _, path := range []string{extras.Wasm, extras.Candid} {
		if _, err := os.Stat(path); err != nil {
			return builder.Output{}, fmt.Errorf("failed to build custom canister '%s': %w", info.Name(), err)
		}
	}
	return builder.Output{CanisterID: id, WasmPath: extras.Wasm, IDLPath: extras.Candid}, nil
}

func (b *Builder) Postbuild(builder.Pool, *canister.Info, builder.Config) error {
	return nil
}

func (b *Builder) GenerateIDL(pool builder.Pool, info *canister.Info, cfg builder.Config) (string, error) {
	extras, err := ReadExtras(info)
	if err != nil {
		return "", err
	}
	path, err := builder.CopyCandid(info, extras.Candid)
	if err != nil {
		return "", fmt.Errorf("failed to generate idl for canister '%s': %w", info.Name(), err)
	}
	return path, nil
}
