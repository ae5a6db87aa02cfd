package builder_test

import (
	"bytes"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/dfxcore/internal/builder"
	"github.com/kingrea/dfxcore/internal/dfxerr"
)

func TestRunCapturesFailure(t *testing.T) {
	logger := zerolog.Nop()
	_, err := builder.Run(&logger, exec.Command("sh", "-c", "echo out; echo err >&2; exit 3"))
	require.Error(t, err)

	var cmdErr *dfxerr.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "out\n", cmdErr.Stdout)
	assert.Equal(t, "err\n", cmdErr.Stderr)
	assert.Contains(t, cmdErr.Command, "sh -c")
}

func TestRunWarnsOnStderr(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	out, err := builder.Run(&logger, exec.Command("sh", "-c", "echo done; echo careful >&2"))
	require.NoError(t, err)
	assert.Equal(t, "done\n", out)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "careful")
}

func TestRunShellCommands(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.Nop()
	err := builder.RunShellCommands(&logger, dir, []string{
		`sh -c 'printf "%s" "$GREETING" > out.txt'`,
		"",
	}, []string{"GREETING=hello world"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out.txt"))

	err = builder.RunShellCommands(&logger, dir, []string{"sh -c 'exit 1'"}, nil)
	var cmdErr *dfxerr.CommandError
	assert.True(t, errors.As(err, &cmdErr))

	err = builder.RunShellCommands(&logger, dir, []string{`echo "unterminated`}, nil)
	assert.ErrorIs(t, err, dfxerr.ErrConfig)
}
