// Package dfxerr defines the error kinds shared by the build core.
//
// Callers classify failures with errors.Is against the sentinels below. The
// helpers build errors whose message is exactly the formatted text while
// still unwrapping to the kind.
package dfxerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig marks a malformed manifest or a value of the wrong shape.
	ErrConfig = errors.New("configuration error")
	// ErrNotFound marks a missing network, canister, id, manifest or address.
	ErrNotFound = errors.New("not found")
	// ErrDependency marks a circular or otherwise unresolvable dependency graph.
	ErrDependency = errors.New("dependency error")
	// ErrPathSafety marks a path that escapes the workspace root.
	ErrPathSafety = errors.New("path outside workspace root")
	// ErrIO marks an I/O failure that does not come from the os package,
	// such as a name resolution failure.
	ErrIO = errors.New("i/o error")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Config returns an ErrConfig with the formatted message.
func Config(format string, args ...any) error { return newKind(ErrConfig, format, args...) }

// NotFound returns an ErrNotFound with the formatted message.
func NotFound(format string, args ...any) error { return newKind(ErrNotFound, format, args...) }

// Dependency returns an ErrDependency with the formatted message.
func Dependency(format string, args ...any) error { return newKind(ErrDependency, format, args...) }

// PathSafety returns an ErrPathSafety with the formatted message.
func PathSafety(format string, args ...any) error { return newKind(ErrPathSafety, format, args...) }

// IO returns an ErrIO with the formatted message.
func IO(format string, args ...any) error { return newKind(ErrIO, format, args...) }

// CommandError reports an external command that exited unsuccessfully.
type CommandError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "command %q failed with exit status %d", e.Command, e.ExitCode)
	if out := strings.TrimSpace(e.Stdout); out != "" {
		fmt.Fprintf(&b, "\nstdout:\n%s", out)
	}
	if out := strings.TrimSpace(e.Stderr); out != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s", out)
	}
	return b.String()
}
