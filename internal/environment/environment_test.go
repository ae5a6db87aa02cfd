package environment

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/dfxcore/internal/cache"
	"github.com/kingrea/dfxcore/internal/canisterid"
	"github.com/kingrea/dfxcore/internal/config"
	"github.com/kingrea/dfxcore/internal/dfxerr"
	"github.com/kingrea/dfxcore/internal/testutil"
)

var _ canisterid.Env = (*Environment)(nil)

func TestNewInsideProject(t *testing.T) {
	cfg := testutil.Project(t, `{"dfx": "0.9.2", "canisters": {"app": {"type": "assets", "source": ["dist"]}},
  "networks": {"staging": {"providers": ["https://staging.example"]}}}`)
	nested := filepath.Join(cfg.ProjectRoot(), "src", "app")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	var console bytes.Buffer
	env, err := New(Options{Dir: nested, Network: "staging", Version: "0.9.2", Console: &console, Cache: testutil.EmptyCache(t)})
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, cfg.ProjectRoot(), env.ProjectRoot())
	assert.Equal(t, "staging", env.NetworkDescriptor().Name)
	assert.False(t, env.NetworkDescriptor().IsEphemeral())
	assert.Equal(t, "0.9.2", env.Version())
	got, err := env.RequireConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg.Path(), got.Path())

	_, err = os.Stat(filepath.Join(cfg.ProjectRoot(), config.ProjectDir, "logs", "dfx.log"))
	assert.NoError(t, err)
}

func TestNewOutsideProject(t *testing.T) {
	dir := t.TempDir()
	env, err := New(Options{Dir: dir, Console: &bytes.Buffer{}, Cache: cache.New(dir, "0.9.2")})
	require.NoError(t, err)
	defer env.Close()

	assert.Nil(t, env.Config())
	assert.Equal(t, "local", env.NetworkDescriptor().Name)
	_, err = env.RequireConfig()
	assert.True(t, errors.Is(err, dfxerr.ErrNotFound))
	_, err = os.Stat(filepath.Join(dir, config.ProjectDir))
	assert.True(t, os.IsNotExist(err), "no state directory outside a project")
}

func TestNewUnknownNetwork(t *testing.T) {
	cfg := testutil.Project(t, `{"canisters": {}}`)
	_, err := New(Options{Dir: cfg.ProjectRoot(), Network: "nowhere", Console: &bytes.Buffer{}, Cache: testutil.EmptyCache(t)})
	assert.True(t, errors.Is(err, dfxerr.ErrNotFound))
}

func TestNewWarnsOnVersionMismatch(t *testing.T) {
	cfg := testutil.Project(t, `{"dfx": "0.8.0", "canisters": {}}`)
	var console bytes.Buffer
	env, err := New(Options{Dir: cfg.ProjectRoot(), Version: "0.9.2", Console: &console, Cache: testutil.EmptyCache(t)})
	require.NoError(t, err)
	defer env.Close()
	assert.Contains(t, console.String(), "tool version does not match")
}

func TestNewUsesSettingsNetwork(t *testing.T) {
	cfg := testutil.Project(t, `{"canisters": {}}`)
	require.NoError(t, config.InitProjectDir(cfg.ProjectRoot()))
	testutil.WriteFile(t, cfg.ProjectRoot(), ".dfx/settings.yaml", "version: 1\nnetwork: ic\n")

	env, err := New(Options{Dir: cfg.ProjectRoot(), Console: &bytes.Buffer{}, Cache: testutil.EmptyCache(t)})
	require.NoError(t, err)
	defer env.Close()
	assert.True(t, env.NetworkDescriptor().IsIC)
}
