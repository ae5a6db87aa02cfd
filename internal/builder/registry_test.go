package builder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/dfxcore/internal/builder"
	"github.com/kingrea/dfxcore/internal/canister"
	"github.com/kingrea/dfxcore/internal/dfxerr"
	"github.com/kingrea/dfxcore/internal/principal"
	"github.com/kingrea/dfxcore/internal/testutil"
)

type typeBuilder struct{ typ string }

func (b typeBuilder) Supports(info *canister.Info) bool { return info.Type() == b.typ }

func (typeBuilder) GetDependencies(builder.Pool, *canister.Info) ([]principal.ID, error) {
	return nil, nil
}

func (typeBuilder) Build(builder.Pool, *canister.Info, builder.Config) (builder.Output, error) {
	return builder.Output{}, nil
}

func (typeBuilder) Postbuild(builder.Pool, *canister.Info, builder.Config) error { return nil }

func (typeBuilder) GenerateIDL(builder.Pool, *canister.Info, builder.Config) (string, error) {
	return "", nil
}

func TestRegistrySelect(t *testing.T) {
	cfg := testutil.Project(t, `{"canisters": {
  "www": {"type": "assets"},
  "svc": {"type": "custom"},
  "mo": {}
}}`)
	reg := builder.NewRegistry()
	reg.MustRegister("assets", typeBuilder{typ: "assets"})
	reg.MustRegister("custom", typeBuilder{typ: "custom"})
	assert.Equal(t, []string{"assets", "custom"}, reg.IDs())

	b, err := reg.Select(testutil.Info(t, cfg, "www", "local", ""))
	require.NoError(t, err)
	assert.Equal(t, typeBuilder{typ: "assets"}, b)

	_, err = reg.Select(testutil.Info(t, cfg, "mo", "local", ""))
	assert.ErrorIs(t, err, dfxerr.ErrConfig)
	assert.Contains(t, err.Error(), "Cannot find builder for canister 'mo' of type 'motoko'.")

	reg.MustRegister("shadow", typeBuilder{typ: "custom"})
	_, err = reg.Select(testutil.Info(t, cfg, "svc", "local", ""))
	assert.ErrorIs(t, err, dfxerr.ErrConfig)
	assert.Contains(t, err.Error(), "custom, shadow")
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := builder.NewRegistry()
	require.NoError(t, reg.Register("assets", typeBuilder{typ: "assets"}))
	assert.Error(t, reg.Register("assets", typeBuilder{typ: "assets"}))
	assert.Error(t, reg.Register("", typeBuilder{}))
	assert.Error(t, reg.Register("nil", nil))
	_, ok := reg.Get("assets")
	assert.True(t, ok)
}
