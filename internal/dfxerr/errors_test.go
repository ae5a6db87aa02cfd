package dfxerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindHelpersKeepMessageAndKind(t *testing.T) {
	err := Dependency("Found circular dependency: %s", "a -> a")
	assert.Equal(t, "Found circular dependency: a -> a", err.Error())
	assert.ErrorIs(t, err, ErrDependency)
	assert.NotErrorIs(t, err, ErrConfig)

	wrapped := fmt.Errorf("resolve: %w", err)
	assert.ErrorIs(t, wrapped, ErrDependency)
}

func TestCommandErrorIncludesOutput(t *testing.T) {
	var err error = &CommandError{Command: "npm run build", ExitCode: 2, Stdout: "building\n", Stderr: "boom\n"}
	wrapped := fmt.Errorf("build frontend: %w", err)

	var cmdErr *CommandError
	require.True(t, errors.As(wrapped, &cmdErr))
	assert.Equal(t, 2, cmdErr.ExitCode)
	assert.Contains(t, err.Error(), "exit status 2")
	assert.Contains(t, err.Error(), "stdout:\nbuilding")
	assert.Contains(t, err.Error(), "stderr:\nboom")
}
