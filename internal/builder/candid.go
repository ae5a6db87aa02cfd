package builder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kingrea/dfxcore/internal/canister"
	"github.com/kingrea/dfxcore/internal/dfxerr"
)

// CopyCandid copies a built candid file into the declarations output
// directory as <name>.did and returns the new path.
func CopyCandid(info *canister.Info, src string) (string, error) {
	output := info.Declarations().Output
	if output == "" {
		return "", dfxerr.Config("`declarations.output` must not be None")
	}
	if err := os.MkdirAll(output, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", output, err)
	}
	dst := filepath.Join(output, info.Name()+".did")
	if err := CopyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// CopyFile copies src to dst keeping the permission bits.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()
	stat, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, stat.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
