package canister

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kingrea/dfxcore/internal/dfxerr"
	"github.com/kingrea/dfxcore/internal/safepath"
)

// AssetsType is the type of canisters that serve static assets.
const AssetsType = "assets"

// AssetsInfo adds the asset canister view to Info.
type AssetsInfo struct {
	*Info
	sourcePaths      []string
	outputAssetsPath string
}

// AsAssets reads the "source" list of an assets canister.
func (i *Info) AsAssets() (*AssetsInfo, error) {
	if i.typ != AssetsType {
		return nil, dfxerr.Config("canister '%s' has type '%s', not '%s'", i.name, i.typ, AssetsType)
	}
	sources, _, err := i.ExtraStrings("source")
	if err != nil {
		return nil, fmt.Errorf("canister %s: %w", i.name, err)
	}
	paths := make([]string, 0, len(sources))
	for _, source := range sources {
		paths = append(paths, i.ResolvePath(source))
	}
	return &AssetsInfo{
		Info:             i,
		sourcePaths:      paths,
		outputAssetsPath: filepath.Join(i.outputRoot, "assets"),
	}, nil
}

// SourcePaths returns the declared asset directories, absolute.
func (a *AssetsInfo) SourcePaths() []string {
	return append([]string(nil), a.sourcePaths...)
}

// OutputAssetsPath is <output root>/assets.
func (a *AssetsInfo) OutputAssetsPath() string { return a.outputAssetsPath }

// AssertSourcePaths fails with ErrPathSafety when an existing source path
// resolves outside the workspace root. Missing sources are left for the
// copy step to warn about.
func (a *AssetsInfo) AssertSourcePaths() error {
	for _, source := range a.sourcePaths {
		if _, err := os.Stat(source); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("canister %s: source %s: %w", a.name, source, err)
		}
		if _, err := safepath.Within(source, a.workspaceRoot); err != nil {
			return fmt.Errorf("canister %s: %w", a.name, err)
		}
	}
	return nil
}
