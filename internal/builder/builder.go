// Package builder defines the pipeline every canister type implements and
// the registry that picks the implementation for a canister.
package builder

import (
	"github.com/rs/zerolog"

	"github.com/kingrea/dfxcore/internal/canister"
	"github.com/kingrea/dfxcore/internal/config"
	"github.com/kingrea/dfxcore/internal/principal"
)

// Builder turns one canister declaration into build artifacts. The pool
// calls GetDependencies, Build, Postbuild and, when declarations are
// requested, GenerateIDL, in that order and one canister at a time.
type Builder interface {
	// Supports reports whether the builder handles the canister. Exactly
	// one registered builder may claim a canister.
	Supports(info *canister.Info) bool
	// GetDependencies resolves the declared dependency names to ids.
	GetDependencies(pool Pool, info *canister.Info) ([]principal.ID, error)
	// Build produces the wasm module and candid file.
	Build(pool Pool, info *canister.Info, cfg Config) (Output, error)
	// Postbuild runs side effects that need the build artifacts.
	Postbuild(pool Pool, info *canister.Info, cfg Config) error
	// GenerateIDL places the candid file where binding generators read it
	// and returns its path.
	GenerateIDL(pool Pool, info *canister.Info, cfg Config) (string, error)
}

// Pool is the orchestrator as seen by a builder.
type Pool interface {
	// Lookup resolves a canister name to its id and metadata.
	Lookup(name string) (principal.ID, *canister.Info, bool)
	// Canisters lists every canister in the pool.
	Canisters() []*canister.Info
	// BuildOutput returns the output of an already built canister.
	BuildOutput(name string) (Output, bool)
	Logger() *zerolog.Logger
}

// Config carries per-invocation build settings.
type Config struct {
	NetworkName string
	Profile     config.Profile
	// ToolVersion is exported to build commands as DFX_VERSION.
	ToolVersion string
	// FrontendCommand builds frontend assets; it runs in the workspace root.
	FrontendCommand []string
	// GenerateDeclarations asks the pool to run GenerateIDL after Postbuild.
	GenerateDeclarations bool
}

// Output describes what a build produced. The pool owns it.
type Output struct {
	CanisterID principal.ID
	WasmPath   string
	IDLPath    string
}
