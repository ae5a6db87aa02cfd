package config

import "github.com/kingrea/dfxcore/internal/dfxerr"

// Defaults is the defaults section. Each part is plain data handed to the
// tools that need it.
type Defaults struct {
	Bitcoin      *DefaultsBitcoin      `yaml:"bitcoin"`
	Bootstrap    *DefaultsBootstrap    `yaml:"bootstrap"`
	Build        *DefaultsBuild        `yaml:"build"`
	CanisterHTTP *DefaultsCanisterHTTP `yaml:"canister_http"`
	Replica      *DefaultsReplica      `yaml:"replica"`
}

type DefaultsBitcoin struct {
	Enabled  bool     `yaml:"enabled"`
	Nodes    []string `yaml:"nodes"`
	LogLevel string   `yaml:"log_level"`
}

type DefaultsCanisterHTTP struct {
	Enabled bool `yaml:"enabled"`
}

type DefaultsBootstrap struct {
	IP      string `yaml:"ip"`
	Port    uint16 `yaml:"port"`
	Timeout uint64 `yaml:"timeout"`
}

func (b *DefaultsBootstrap) applyDefaults() {
	if b.IP == "" {
		b.IP = "127.0.0.1"
	}
	if b.Port == 0 {
		b.Port = 8081
	}
	if b.Timeout == 0 {
		b.Timeout = 30
	}
}

// DefaultsBuild configures the package tool. Empty strings mean unset.
type DefaultsBuild struct {
	Packtool string `yaml:"packtool"`
	Args     string `yaml:"args"`
}

// PacktoolCommand returns the package tool, if one is configured.
func (b DefaultsBuild) PacktoolCommand() (string, bool) {
	return b.Packtool, b.Packtool != ""
}

// PacktoolArgs returns extra compiler arguments, if any are configured.
func (b DefaultsBuild) PacktoolArgs() (string, bool) {
	return b.Args, b.Args != ""
}

type ReplicaSubnetType string

const (
	SubnetSystem              ReplicaSubnetType = "system"
	SubnetApplication         ReplicaSubnetType = "application"
	SubnetVerifiedApplication ReplicaSubnetType = "verifiedapplication"
)

func (s ReplicaSubnetType) validate() error {
	switch s {
	case SubnetSystem, SubnetApplication, SubnetVerifiedApplication:
		return nil
	}
	return dfxerr.Config("defaults.replica.subnet_type %q is not one of system, application, verifiedapplication", string(s))
}

// StarterString is the form the replica starter expects.
func (s ReplicaSubnetType) StarterString() string {
	if s == SubnetVerifiedApplication {
		return "verified_application"
	}
	return string(s)
}

type DefaultsReplica struct {
	Port       *uint16            `yaml:"port"`
	SubnetType *ReplicaSubnetType `yaml:"subnet_type"`
}
