package builder

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/rs/zerolog"

	"github.com/kingrea/dfxcore/internal/dfxerr"
)

// Run executes cmd with captured output. A non-zero exit becomes a
// *dfxerr.CommandError; stderr from a successful run is logged as a warning.
func Run(logger *zerolog.Logger, cmd *exec.Cmd) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug().Str("command", cmd.String()).Str("dir", cmd.Dir).Msg("running command")
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &dfxerr.CommandError{
				Command:  cmd.String(),
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}
		}
		return stdout.String(), fmt.Errorf("failed to run %s: %w", cmd.String(), err)
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		logger.Warn().Str("command", cmd.String()).Msg(msg)
	}
	return stdout.String(), nil
}

// RunShellCommands runs each command line in dir. Lines are split with
// shell quoting rules but not passed to a shell. env is appended to the
// process environment.
func RunShellCommands(logger *zerolog.Logger, dir string, commands []string, env []string) error {
	for _, line := range commands {
		args, err := shellwords.Parse(line)
		if err != nil {
			return dfxerr.Config("cannot parse command %q: %v", line, err)
		}
		if len(args) == 0 {
			continue
		}
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), env...)
		if _, err := Run(logger, cmd); err != nil {
			return err
		}
	}
	return nil
}
