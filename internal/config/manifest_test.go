package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/dfxcore/internal/dfxerr"
)

const sampleManifest = `{
  "version": 1,
  "dfx": "0.9.2",
  "canisters": {
    "zeta": {
      "type": "motoko",
      "main": "src/zeta/main.mo",
      "dependencies": ["alpha"],
      "initialization_values": {
        "compute_allocation": "50",
        "memory_allocation": 8
      }
    },
    "alpha": {
      "type": "assets",
      "source": ["dist/alpha", "src/alpha/assets"],
      "frontend": {"entrypoint": "src/alpha/index.html"},
      "remote": {"id": {"ic": "ryjl3-tyaaa-aaaaa-aaaba-cai"}},
      "declarations": {"output": "src/gen/alpha", "bindings": ["js"]}
    }
  },
  "defaults": {
    "build": {"packtool": "", "args": "--compacting-gc"},
    "replica": {"subnet_type": "verifiedapplication"}
  },
  "networks": {
    "staging": {"providers": ["https://staging.example"], "type": "ephemeral"},
    "mine": {"bind": "127.0.0.1:9000"}
  }
}`

func TestFromStringKeepsDeclarationOrder(t *testing.T) {
	cfg, err := FromString(sampleManifest)
	if err != nil {
		t.Fatalf("FromString returned error: %v", err)
	}
	ci := cfg.Interface()
	if got := ci.CanisterNames(); len(got) != 2 || got[0] != "zeta" || got[1] != "alpha" {
		t.Fatalf("expected manifest order [zeta alpha], got %v", got)
	}
	alpha, err := ci.Canister("alpha")
	require.NoError(t, err)
	assert.Equal(t, "assets", alpha.Type)
	assert.Equal(t, []string{"source", "frontend"}, alpha.Extras.Keys())
	assert.Equal(t, "src/gen/alpha", alpha.Declarations.Output)
	assert.Equal(t, 1, ci.ManifestVersion())
	assert.Equal(t, ProfileDebug, ci.BuildProfile())
}

func TestExtraValueShapes(t *testing.T) {
	cfg, err := FromString(sampleManifest)
	require.NoError(t, err)
	alpha, err := cfg.Interface().Canister("alpha")
	require.NoError(t, err)

	sources, ok, err := alpha.ExtraStrings("source")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"dist/alpha", "src/alpha/assets"}, sources)

	var frontend struct {
		Entrypoint string `yaml:"entrypoint"`
	}
	ok, err = alpha.ExtraValue("frontend", &frontend)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "src/alpha/index.html", frontend.Entrypoint)

	_, ok, err = alpha.ExtraStrings("dependencies")
	require.NoError(t, err)
	assert.False(t, ok, "absent key must report none")

	_, ok, err = alpha.ExtraString("source")
	assert.True(t, ok)
	assert.ErrorIs(t, err, dfxerr.ErrConfig)

	_, _, err = alpha.ExtraStrings("frontend")
	assert.ErrorIs(t, err, dfxerr.ErrConfig)
}

func TestNumericDependencyIsWrongType(t *testing.T) {
	cfg, err := FromString(`{"canisters": {"a": {"dependencies": [1]}}}`)
	require.NoError(t, err)
	a, err := cfg.Interface().Canister("a")
	require.NoError(t, err)
	_, err = a.Dependencies()
	assert.ErrorIs(t, err, dfxerr.ErrConfig)
}

func TestInitializationValues(t *testing.T) {
	cfg, err := FromString(sampleManifest)
	require.NoError(t, err)
	ci := cfg.Interface()

	value, ok, err := ci.ComputeAllocation("zeta")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "50", value)

	_, ok, err = ci.FreezingThreshold("zeta")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ci.MemoryAllocation("zeta")
	require.Error(t, err)
	assert.ErrorIs(t, err, dfxerr.ErrConfig)
	assert.Equal(t, "Field memory_allocation is of the wrong type", err.Error())

	_, _, err = ci.ComputeAllocation("missing")
	assert.ErrorIs(t, err, dfxerr.ErrNotFound)
}

func TestCanisterLookupWithoutCanistersSection(t *testing.T) {
	cfg, err := FromString(`{}`)
	require.NoError(t, err)
	_, err = cfg.Interface().Canister("a")
	assert.ErrorIs(t, err, dfxerr.ErrConfig)
	assert.Empty(t, cfg.Interface().CanisterNames())
}

func TestRemoteCanisterID(t *testing.T) {
	cfg, err := FromString(sampleManifest)
	require.NoError(t, err)
	ci := cfg.Interface()

	id, ok, err := ci.RemoteCanisterID("alpha", "ic")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ryjl3-tyaaa-aaaaa-aaaba-cai", id.String())

	remote, err := ci.IsRemoteCanister("alpha", "local")
	require.NoError(t, err)
	assert.False(t, remote)

	remote, err = ci.IsRemoteCanister("zeta", "ic")
	require.NoError(t, err)
	assert.False(t, remote)
}

func TestInvalidRemoteIDIsConfigError(t *testing.T) {
	_, err := FromString(`{"canisters": {"a": {"remote": {"id": {"ic": "nope"}}}}}`)
	assert.ErrorIs(t, err, dfxerr.ErrConfig)
}

func TestMalformedManifestIsConfigError(t *testing.T) {
	for _, content := range []string{
		`{"canisters": [1, 2]}`,
		`{"canisters": {"a": {"type": 3}}}`,
		`{"profile": "Fast"}`,
		`{"networks": {"x": {"type": "persistent"}}}`,
		`{"networks": {"x": {"bind": "1.2.3.4:1", "type": "forever"}}}`,
		`{"defaults": {"replica": {"subnet_type": "tiny"}}}`,
		`{"version": 0}`,
		`{`,
	} {
		_, err := FromString(content)
		if !errors.Is(err, dfxerr.ErrConfig) {
			t.Fatalf("expected config error for %s, got %v", content, err)
		}
	}
}

func TestManifestMustBeJSON(t *testing.T) {
	for _, content := range []string{
		"canisters:\n  a:\n    type: custom\n",
		"{canisters: {}}",
		"{\"canisters\": {}} # trailing comment",
		"{\"canisters\": {\"a\": {\"type\": 'custom'}}}",
		"",
	} {
		_, err := FromString(content)
		assert.ErrorIs(t, err, dfxerr.ErrConfig, "content %q", content)
	}
}

func TestDefaultsAccessors(t *testing.T) {
	cfg, err := FromString(sampleManifest)
	require.NoError(t, err)
	ci := cfg.Interface()

	_, ok := ci.BuildDefaults().PacktoolCommand()
	assert.False(t, ok, "empty packtool means unset")
	args, ok := ci.BuildDefaults().PacktoolArgs()
	assert.True(t, ok)
	assert.Equal(t, "--compacting-gc", args)

	bootstrap := ci.BootstrapDefaults()
	assert.Equal(t, "127.0.0.1", bootstrap.IP)
	assert.Equal(t, uint16(8081), bootstrap.Port)
	assert.Equal(t, uint64(30), bootstrap.Timeout)

	assert.Equal(t, "info", ci.BitcoinDefaults().LogLevel)
	assert.False(t, ci.CanisterHTTPDefaults().Enabled)
	require.NotNil(t, ci.ReplicaDefaults().SubnetType)
	assert.Equal(t, "verified_application", ci.ReplicaDefaults().SubnetType.StarterString())
}

func TestResolveConfigPathWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "frontend")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ConfigFilename), []byte(`{"canisters": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := ResolveConfigPath(nested)
	require.NoError(t, err)
	canonicalRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(canonicalRoot, ConfigFilename), path)

	cfg, err := FromDir(nested)
	require.NoError(t, err)
	assert.Equal(t, canonicalRoot, cfg.ProjectRoot())
	assert.Equal(t, filepath.Join(canonicalRoot, ProjectDir), cfg.TempDir())
}

func TestResolveConfigPathMissing(t *testing.T) {
	_, err := FromDir(t.TempDir())
	assert.ErrorIs(t, err, dfxerr.ErrNotFound)
}
