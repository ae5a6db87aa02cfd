package config

import (
	"gopkg.in/yaml.v3"

	"github.com/kingrea/dfxcore/internal/dfxerr"
)

// NetworkType says whether ids for a network are kept with the project or
// in its temporary state directory.
type NetworkType string

const (
	NetworkTypeEphemeral  NetworkType = "ephemeral"
	NetworkTypePersistent NetworkType = "persistent"
)

// ConfigNetwork is one entry of the networks section. It is either
// provider-shaped (remote providers) or local-shaped (a bind address).
type ConfigNetwork struct {
	Providers []string
	Bind      string
	Type      NetworkType
	local     bool
}

// IsLocal reports whether the entry is local-shaped.
func (n ConfigNetwork) IsLocal() bool { return n.local }

// ProviderNetwork builds a provider-shaped entry.
func ProviderNetwork(providers []string, typ NetworkType) ConfigNetwork {
	return ConfigNetwork{Providers: append([]string(nil), providers...), Type: typ}
}

// LocalNetwork builds a local-shaped entry.
func LocalNetwork(bind string, typ NetworkType) ConfigNetwork {
	return ConfigNetwork{Bind: bind, Type: typ, local: true}
}

func (n *ConfigNetwork) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Providers *[]string `yaml:"providers"`
		Bind      *string   `yaml:"bind"`
		Type      *string   `yaml:"type"`
	}
	if err := node.Decode(&raw); err != nil {
		return dfxerr.Config("network is malformed: %v", err)
	}
	switch {
	case raw.Providers != nil:
		*n = ProviderNetwork(*raw.Providers, NetworkTypePersistent)
	case raw.Bind != nil:
		*n = LocalNetwork(*raw.Bind, NetworkTypeEphemeral)
	default:
		return dfxerr.Config("network must declare either providers or a bind address")
	}
	if raw.Type != nil {
		switch NetworkType(*raw.Type) {
		case NetworkTypeEphemeral, NetworkTypePersistent:
			n.Type = NetworkType(*raw.Type)
		default:
			return dfxerr.Config("network type must be 'ephemeral' or 'persistent', got %q", *raw.Type)
		}
	}
	return nil
}

// GetNetwork returns the manifest entry for name. "ic" is always the
// production gateway, whatever the manifest declares; "local" falls back
// to the built-in bind address when not declared.
func (ci *ConfigInterface) GetNetwork(name string) (ConfigNetwork, bool) {
	if name == "ic" {
		return ProviderNetwork([]string{DefaultICGateway}, NetworkTypePersistent), true
	}
	if ci != nil {
		if network, ok := ci.Networks[name]; ok {
			return network, true
		}
	}
	if name == "local" {
		return LocalNetwork(DefaultLocalBind, NetworkTypeEphemeral), true
	}
	return ConfigNetwork{}, false
}
