package canister

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/dfxcore/internal/config"
	"github.com/kingrea/dfxcore/internal/dfxerr"
	"github.com/kingrea/dfxcore/internal/principal"
)

func loadManifest(t *testing.T, root, content string) *config.Config {
	t.Helper()
	cfg, err := config.FromSlice(filepath.Join(root, config.ConfigFilename), []byte(content))
	require.NoError(t, err)
	return cfg
}

func TestInfoDerivesPaths(t *testing.T) {
	root := t.TempDir()
	cfg := loadManifest(t, root, `{"canisters": {
  "backend": {"main": "src/backend/main.mo"},
  "www": {"type": "assets", "source": ["dist"], "declarations": {"output": "gen/www", "bindings": ["js"]}}
}}`)

	backend, err := NewInfo(cfg, "backend", "local")
	require.NoError(t, err)
	assert.Equal(t, DefaultType, backend.Type())
	assert.Equal(t, filepath.Join(root, ".dfx", "local", "canisters", "backend"), backend.OutputRoot())
	assert.Equal(t, filepath.Join(root, "src", "declarations", "backend"), backend.Declarations().Output)
	assert.Equal(t, []string{"js", "ts", "did"}, backend.Declarations().Bindings)
	_, ok := backend.CanisterID()
	assert.False(t, ok)

	main, ok, err := backend.ExtraString("main")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "src/backend/main.mo", main)

	id := principal.MustFromText("rrkah-fqaaa-aaaaa-aaaaq-cai")
	www, err := NewInfo(cfg, "www", "ic", WithCanisterID(id))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "gen", "www"), www.Declarations().Output)
	got, ok := www.CanisterID()
	require.True(t, ok)
	assert.True(t, got.Equal(id))

	assets, err := www.AsAssets()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "dist")}, assets.SourcePaths())
	assert.Equal(t, filepath.Join(root, ".dfx", "ic", "canisters", "www", "assets"), assets.OutputAssetsPath())

	_, err = backend.AsAssets()
	assert.ErrorIs(t, err, dfxerr.ErrConfig)

	_, err = NewInfo(cfg, "ghost", "local")
	assert.ErrorIs(t, err, dfxerr.ErrNotFound)
}

func TestAssertSourcePaths(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dist"), 0o755))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linked")))

	cfg := loadManifest(t, root, `{"canisters": {
  "ok": {"type": "assets", "source": ["dist", "not-built-yet"]},
  "bad": {"type": "assets", "source": ["linked"]}
}}`)

	ok, err := NewInfo(cfg, "ok", "local")
	require.NoError(t, err)
	okAssets, err := ok.AsAssets()
	require.NoError(t, err)
	assert.NoError(t, okAssets.AssertSourcePaths())

	bad, err := NewInfo(cfg, "bad", "local")
	require.NoError(t, err)
	badAssets, err := bad.AsAssets()
	require.NoError(t, err)
	assert.ErrorIs(t, badAssets.AssertSourcePaths(), dfxerr.ErrPathSafety)
}
