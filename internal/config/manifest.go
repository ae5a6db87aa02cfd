// internal/config/manifest.go
//
// The project manifest (dfx.json) and its discovery. The manifest is JSON;
// it is decoded through yaml.v3 nodes so that canister and extension key
// order survives decoding and unknown keys can be decoded lazily.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/dfxcore/internal/dfxerr"
	"github.com/kingrea/dfxcore/internal/principal"
)

const (
	// ConfigFilename is the manifest file name searched for from the working directory upwards.
	ConfigFilename = "dfx.json"

	// DefaultLocalBind is the bind address of the implicit "local" network.
	DefaultLocalBind = "127.0.0.1:8000"
	// DefaultICGateway is the provider of the implicit "ic" network.
	DefaultICGateway = "https://ic0.app"
	// DefaultICGatewayTrailingSlash is the same gateway as written by some manifests.
	DefaultICGatewayTrailingSlash = "https://ic0.app/"
)

// Profile selects the build profile.
type Profile string

const (
	ProfileDebug   Profile = "Debug"
	ProfileRelease Profile = "Release"
)

// ConfigInterface is the decoded manifest.
type ConfigInterface struct {
	Profile       *Profile                 `yaml:"profile"`
	Version       *int                     `yaml:"version"`
	Dfx           string                   `yaml:"dfx"`
	Canisters     *Canisters               `yaml:"canisters"`
	Defaults      *Defaults                `yaml:"defaults"`
	Networks      map[string]ConfigNetwork `yaml:"networks"`
	OutputEnvFile string                   `yaml:"output_env_file"`
}

// Config is a manifest loaded from disk (or from memory, for tests).
type Config struct {
	path  string
	data  []byte
	iface *ConfigInterface
}

// ResolveConfigPath walks from dir towards the filesystem root and returns
// the first dfx.json found. The search starts from the canonical form of dir.
func ResolveConfigPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("config: resolve %s: %w", dir, err)
	}
	current, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("config: canonicalize %s: %w", abs, err)
	}
	for {
		candidate := filepath.Join(current, ConfigFilename)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("config: stat %s: %w", candidate, err)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", dfxerr.NotFound("Cannot find %s in %s or any parent directory.", ConfigFilename, abs)
		}
		current = parent
	}
}

// FromDir loads the manifest governing dir. A missing manifest is ErrNotFound.
func FromDir(dir string) (*Config, error) {
	path, err := ResolveConfigPath(dir)
	if err != nil {
		return nil, err
	}
	return FromFile(path)
}

// FromCurrentDir loads the manifest governing the process working directory.
func FromCurrentDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: working directory: %w", err)
	}
	return FromDir(wd)
}

// FromFile reads and decodes the manifest at path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return FromSlice(path, data)
}

// FromSlice decodes manifest bytes as if they had been read from path.
// The bytes must be JSON; YAML-only syntax is rejected before decoding.
func FromSlice(path string, data []byte) (*Config, error) {
	if !json.Valid(data) {
		return nil, dfxerr.Config("config: parse %s: not valid JSON", path)
	}
	var iface ConfigInterface
	if err := yaml.Unmarshal(data, &iface); err != nil {
		if errors.Is(err, dfxerr.ErrConfig) {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		return nil, dfxerr.Config("config: parse %s: %v", path, err)
	}
	if err := iface.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &Config{path: path, data: data, iface: &iface}, nil
}

// FromString decodes an in-memory manifest rooted at the current directory.
func FromString(content string) (*Config, error) {
	return FromSlice(ConfigFilename, []byte(content))
}

// Path returns the manifest location.
func (c *Config) Path() string { return c.path }

// ProjectRoot is the directory holding the manifest.
func (c *Config) ProjectRoot() string { return filepath.Dir(c.path) }

// TempDir is the per-project state directory (.dfx).
func (c *Config) TempDir() string { return filepath.Join(c.ProjectRoot(), ProjectDir) }

// Interface returns the decoded manifest.
func (c *Config) Interface() *ConfigInterface { return c.iface }

// Bytes returns the manifest as read.
func (c *Config) Bytes() []byte { return c.data }

// ManifestVersion returns the manifest schema version, 1 when unset.
func (ci *ConfigInterface) ManifestVersion() int {
	if ci == nil || ci.Version == nil {
		return 1
	}
	return *ci.Version
}

// BuildProfile returns the configured profile, Debug when unset.
func (ci *ConfigInterface) BuildProfile() Profile {
	if ci == nil || ci.Profile == nil {
		return ProfileDebug
	}
	return *ci.Profile
}

// CanisterNames lists declared canisters in manifest order.
func (ci *ConfigInterface) CanisterNames() []string {
	if ci == nil || ci.Canisters == nil {
		return nil
	}
	return ci.Canisters.Names()
}

// Canister returns the declaration for name. An absent canisters section is
// an ErrConfig, an unknown name is ErrNotFound.
func (ci *ConfigInterface) Canister(name string) (*Canister, error) {
	if ci == nil || ci.Canisters == nil {
		return nil, dfxerr.Config("No canisters in the configuration file.")
	}
	can, ok := ci.Canisters.Get(name)
	if !ok {
		return nil, dfxerr.NotFound("Cannot find canister '%s'.", name)
	}
	return can, nil
}

// RemoteCanisterID returns the id a canister has on network when it is
// declared remote there.
func (ci *ConfigInterface) RemoteCanisterID(canister, network string) (principal.ID, bool, error) {
	can, err := ci.Canister(canister)
	if err != nil {
		return principal.ID{}, false, err
	}
	if can.Remote == nil {
		return principal.ID{}, false, nil
	}
	text, ok := can.Remote.ID[network]
	if !ok {
		return principal.ID{}, false, nil
	}
	id, err := principal.FromText(text)
	if err != nil {
		return principal.ID{}, false, err
	}
	return id, true, nil
}

// IsRemoteCanister reports whether canister has a remote id on network.
func (ci *ConfigInterface) IsRemoteCanister(canister, network string) (bool, error) {
	_, ok, err := ci.RemoteCanisterID(canister, network)
	return ok, err
}

// ComputeAllocation reads initialization_values.compute_allocation.
func (ci *ConfigInterface) ComputeAllocation(canister string) (string, bool, error) {
	return ci.initializationValue(canister, "compute_allocation")
}

// MemoryAllocation reads initialization_values.memory_allocation.
func (ci *ConfigInterface) MemoryAllocation(canister string) (string, bool, error) {
	return ci.initializationValue(canister, "memory_allocation")
}

// FreezingThreshold reads initialization_values.freezing_threshold.
func (ci *ConfigInterface) FreezingThreshold(canister string) (string, bool, error) {
	return ci.initializationValue(canister, "freezing_threshold")
}

func (ci *ConfigInterface) initializationValue(canister, field string) (string, bool, error) {
	can, err := ci.Canister(canister)
	if err != nil {
		return "", false, err
	}
	values, ok := can.Extras.Get("initialization_values")
	if !ok || values.Kind != yaml.MappingNode {
		return "", false, nil
	}
	var node *yaml.Node
	for i := 0; i+1 < len(values.Content); i += 2 {
		if values.Content[i].Value == field {
			node = values.Content[i+1]
		}
	}
	if node == nil {
		return "", false, nil
	}
	var value string
	if err := decodeStrict(node, &value); err != nil {
		return "", false, dfxerr.Config("Field %s is of the wrong type", field)
	}
	return value, true, nil
}

// BuildDefaults returns defaults.build, empty when unset.
func (ci *ConfigInterface) BuildDefaults() DefaultsBuild {
	if ci == nil || ci.Defaults == nil || ci.Defaults.Build == nil {
		return DefaultsBuild{}
	}
	return *ci.Defaults.Build
}

// BootstrapDefaults returns defaults.bootstrap with unset fields filled in.
func (ci *ConfigInterface) BootstrapDefaults() DefaultsBootstrap {
	out := DefaultsBootstrap{}
	if ci != nil && ci.Defaults != nil && ci.Defaults.Bootstrap != nil {
		out = *ci.Defaults.Bootstrap
	}
	out.applyDefaults()
	return out
}

// BitcoinDefaults returns defaults.bitcoin with unset fields filled in.
func (ci *ConfigInterface) BitcoinDefaults() DefaultsBitcoin {
	out := DefaultsBitcoin{}
	if ci != nil && ci.Defaults != nil && ci.Defaults.Bitcoin != nil {
		out = *ci.Defaults.Bitcoin
	}
	if out.LogLevel == "" {
		out.LogLevel = "info"
	}
	return out
}

// CanisterHTTPDefaults returns defaults.canister_http.
func (ci *ConfigInterface) CanisterHTTPDefaults() DefaultsCanisterHTTP {
	if ci == nil || ci.Defaults == nil || ci.Defaults.CanisterHTTP == nil {
		return DefaultsCanisterHTTP{}
	}
	return *ci.Defaults.CanisterHTTP
}

// ReplicaDefaults returns defaults.replica.
func (ci *ConfigInterface) ReplicaDefaults() DefaultsReplica {
	if ci == nil || ci.Defaults == nil || ci.Defaults.Replica == nil {
		return DefaultsReplica{}
	}
	return *ci.Defaults.Replica
}

func (ci *ConfigInterface) validate() error {
	if ci.Version != nil && *ci.Version < 1 {
		return dfxerr.Config("version must be >= 1")
	}
	if ci.Profile != nil {
		switch *ci.Profile {
		case ProfileDebug, ProfileRelease:
		default:
			return dfxerr.Config("profile must be 'Debug' or 'Release', got %q", *ci.Profile)
		}
	}
	if ci.Defaults != nil && ci.Defaults.Replica != nil && ci.Defaults.Replica.SubnetType != nil {
		if err := ci.Defaults.Replica.SubnetType.validate(); err != nil {
			return err
		}
	}
	return nil
}
