// Package canister describes a single declared canister as the builders
// see it: its manifest entry plus the paths derived from the project and
// the active network.
package canister

import (
	"path/filepath"

	"github.com/kingrea/dfxcore/internal/config"
	"github.com/kingrea/dfxcore/internal/principal"
)

// DefaultType is used when a declaration has no type.
const DefaultType = "motoko"

var defaultBindings = []string{"js", "ts", "did"}

// Info is the metadata of one canister for one network.
type Info struct {
	name          string
	typ           string
	workspaceRoot string
	networkName   string
	buildRoot     string
	outputRoot    string
	declarations  config.Declarations
	canister      *config.Canister

	id    principal.ID
	hasID bool
}

// Option customizes Info during construction.
type Option func(*Info)

// WithCanisterID attaches the id the canister has on the network.
func WithCanisterID(id principal.ID) Option {
	return func(i *Info) {
		i.id = id
		i.hasID = true
	}
}

// NewInfo builds the metadata for name from the manifest.
func NewInfo(cfg *config.Config, name, networkName string, opts ...Option) (*Info, error) {
	can, err := cfg.Interface().Canister(name)
	if err != nil {
		return nil, err
	}
	root := cfg.ProjectRoot()
	buildRoot := filepath.Join(cfg.TempDir(), networkName, "canisters")

	typ := can.Type
	if typ == "" {
		typ = DefaultType
	}

	decl := can.Declarations
	if decl.Output == "" {
		decl.Output = filepath.Join("src", "declarations", name)
	}
	if !filepath.IsAbs(decl.Output) {
		decl.Output = filepath.Join(root, decl.Output)
	}
	if decl.Bindings == nil {
		decl.Bindings = append([]string(nil), defaultBindings...)
	}

	info := &Info{
		name:          name,
		typ:           typ,
		workspaceRoot: root,
		networkName:   networkName,
		buildRoot:     buildRoot,
		outputRoot:    filepath.Join(buildRoot, name),
		declarations:  decl,
		canister:      can,
	}
	for _, opt := range opts {
		opt(info)
	}
	return info, nil
}

func (i *Info) Name() string          { return i.name }
func (i *Info) Type() string          { return i.typ }
func (i *Info) WorkspaceRoot() string { return i.workspaceRoot }
func (i *Info) NetworkName() string   { return i.networkName }

// BuildRoot is .dfx/<network>/canisters.
func (i *Info) BuildRoot() string { return i.buildRoot }

// OutputRoot is .dfx/<network>/canisters/<name>.
func (i *Info) OutputRoot() string { return i.outputRoot }

// Declarations returns the declarations config with defaults applied and
// the output directory made absolute.
func (i *Info) Declarations() config.Declarations {
	out := i.declarations
	out.Bindings = append([]string(nil), i.declarations.Bindings...)
	return out
}

// CanisterID returns the id the canister has on the network, if known.
func (i *Info) CanisterID() (principal.ID, bool) {
	return i.id, i.hasID
}

// Remote returns the remote declaration, if any.
func (i *Info) Remote() *config.Remote {
	return i.canister.Remote
}

// ExtraValue decodes a builder-specific key; see config.Canister.ExtraValue.
func (i *Info) ExtraValue(key string, out any) (bool, error) {
	return i.canister.ExtraValue(key, out)
}

// ExtraString decodes a string-valued builder-specific key.
func (i *Info) ExtraString(key string) (string, bool, error) {
	return i.canister.ExtraString(key)
}

// ExtraStrings decodes a list-of-strings builder-specific key.
func (i *Info) ExtraStrings(key string) ([]string, bool, error) {
	return i.canister.ExtraStrings(key)
}

// Dependencies returns the names the canister depends on.
func (i *Info) Dependencies() ([]string, error) {
	return i.canister.Dependencies()
}

// ResolvePath makes a manifest-relative path absolute.
func (i *Info) ResolvePath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(i.workspaceRoot, p)
}
