package depgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/dfxcore/internal/config"
	"github.com/kingrea/dfxcore/internal/dfxerr"
)

func manifest(t *testing.T, content string) *config.ConfigInterface {
	t.Helper()
	cfg, err := config.FromString(content)
	require.NoError(t, err)
	return cfg.Interface()
}

func TestClosureFollowsDependencies(t *testing.T) {
	ci := manifest(t, `{"canisters": {
  "frontend": {"dependencies": ["backend", "ledger"]},
  "backend": {"dependencies": ["ledger"]},
  "ledger": {},
  "unrelated": {}
}}`)

	names, err := Closure(ci, "frontend")
	require.NoError(t, err)
	assert.Equal(t, []string{"frontend", "backend", "ledger"}, names)

	names, err = Closure(ci, "ledger")
	require.NoError(t, err)
	assert.Equal(t, []string{"ledger"}, names)
}

func TestClosureWithoutStartReturnsEveryCanister(t *testing.T) {
	ci := manifest(t, `{"canisters": {
  "b": {"dependencies": ["a"]},
  "a": {},
  "c": {}
}}`)
	names, err := Closure(ci, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, names)
	assert.Equal(t, []string{"b", "a", "c"}, names)
}

func TestClosureReportsCyclePath(t *testing.T) {
	ci := manifest(t, `{"canisters": {
  "A": {"dependencies": ["B"]},
  "B": {"dependencies": ["C"]},
  "C": {"dependencies": ["A"]}
}}`)
	_, err := Closure(ci, "A")
	require.Error(t, err)
	assert.ErrorIs(t, err, dfxerr.ErrDependency)
	assert.Contains(t, err.Error(), "Found circular dependency: A -> B -> C -> A")
}

func TestClosureSelfDependency(t *testing.T) {
	ci := manifest(t, `{"canisters": {"solo": {"dependencies": ["solo"]}}}`)
	_, err := Closure(ci, "solo")
	assert.ErrorIs(t, err, dfxerr.ErrDependency)
	assert.Contains(t, err.Error(), "solo -> solo")
}

func TestClosureAllowsDiamonds(t *testing.T) {
	ci := manifest(t, `{"canisters": {
  "top": {"dependencies": ["left", "right"]},
  "left": {"dependencies": ["base"]},
  "right": {"dependencies": ["base"]},
  "base": {}
}}`)
	names, err := Closure(ci, "top")
	require.NoError(t, err)
	assert.Equal(t, []string{"top", "left", "base", "right"}, names)
}

func TestClosureFailureModes(t *testing.T) {
	_, err := Closure(manifest(t, `{}`), "")
	assert.ErrorIs(t, err, dfxerr.ErrConfig)

	_, err = Closure(manifest(t, `{"canisters": {"a": {"dependencies": ["ghost"]}}}`), "a")
	assert.ErrorIs(t, err, dfxerr.ErrNotFound)
	assert.Contains(t, err.Error(), "Cannot find canister 'ghost'.")

	_, err = Closure(manifest(t, `{"canisters": {"a": {"dependencies": "b"}, "b": {}}}`), "a")
	assert.ErrorIs(t, err, dfxerr.ErrConfig)

	_, err = Closure(manifest(t, `{"canisters": {"a": {}}}`), "missing")
	assert.True(t, errors.Is(err, dfxerr.ErrNotFound))
}

func TestBuildOrderPutsDependenciesFirst(t *testing.T) {
	ci := manifest(t, `{"canisters": {
  "frontend": {"dependencies": ["backend", "ledger"]},
  "backend": {"dependencies": ["ledger"]},
  "ledger": {}
}}`)
	order, err := BuildOrder(ci, []string{"frontend", "backend", "ledger"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ledger", "backend", "frontend"}, order)

	cyclic := manifest(t, `{"canisters": {"a": {"dependencies": ["b"]}, "b": {"dependencies": ["a"]}}}`)
	_, err = BuildOrder(cyclic, []string{"a"})
	assert.ErrorIs(t, err, dfxerr.ErrDependency)
}
