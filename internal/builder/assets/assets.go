// Package assets builds asset canisters: a prebuilt asset storage program
// plus the project's static files.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kingrea/dfxcore/internal/builder"
	"github.com/kingrea/dfxcore/internal/cache"
	"github.com/kingrea/dfxcore/internal/canister"
	"github.com/kingrea/dfxcore/internal/dfxerr"
	"github.com/kingrea/dfxcore/internal/network"
	"github.com/kingrea/dfxcore/internal/principal"
	"github.com/kingrea/dfxcore/internal/safepath"
)

const (
	wasmFile = "assetstorage.wasm"
	didFile  = "assetstorage.did"
)

var defaultFrontendCommand = []string{"npm", "run", "build"}

// Builder is the builder for canisters of type "assets".
type Builder struct {
	cache cache.Cache
}

// New returns an assets builder reading the asset storage image from c.
func New(c cache.Cache) *Builder {
	return &Builder{cache: c}
}

func (b *Builder) Supports(info *canister.Info) bool {
	return info.Type() == canister.AssetsType
}

func (b *Builder) GetDependencies(pool builder.Pool, info *canister.Info) ([]principal.ID, error) {
	ids, err := builder.DependencyIDs(pool, info)
	if err != nil {
		return nil, fmt.Errorf("failed to get dependencies for canister '%s': %w", info.Name(), err)
	}
	return ids, nil
}

// Build unpacks the asset storage program into the output root and clears
// stale copied assets.
func (b *Builder) Build(pool builder.Pool, info *canister.Info, cfg builder.Config) (builder.Output, error) {
	id, ok := info.CanisterID()
	if !ok {
		return builder.Output{}, dfxerr.NotFound("Could not find canister ID for '%s'.", info.Name())
	}
	if err := b.unpack(info.OutputRoot()); err != nil {
		return builder.Output{}, fmt.Errorf("failed to build asset canister '%s': %w", info.Name(), err)
	}
	assetsInfo, err := info.AsAssets()
	if err != nil {
		return builder.Output{}, fmt.Errorf("failed to build asset canister '%s': %w", info.Name(), err)
	}
	if err := deleteOutputDirectory(assetsInfo); err != nil {
		return builder.Output{}, fmt.Errorf("failed to build asset canister '%s': %w", info.Name(), err)
	}
	return builder.Output{
		CanisterID: id,
		WasmPath:   filepath.Join(info.OutputRoot(), wasmFile),
		IDLPath:    filepath.Join(info.OutputRoot(), didFile),
	}, nil
}

// Postbuild builds the frontend, if there is one, and copies the source
// asset trees into the output directory.
func (b *Builder) Postbuild(pool builder.Pool, info *canister.Info, cfg builder.Config) error {
	deps, err := builder.DependencyIDs(pool, info)
	if err != nil {
		return err
	}
	vars := builder.EnvironmentVariables(pool, info, cfg, deps)
	if err := buildFrontend(pool.Logger(), info.WorkspaceRoot(), cfg, vars); err != nil {
		return err
	}

	assetsInfo, err := info.AsAssets()
	if err != nil {
		return err
	}
	if err := assetsInfo.AssertSourcePaths(); err != nil {
		return err
	}
	if err := copyAssets(pool.Logger(), assetsInfo); err != nil {
		return fmt.Errorf("failed to copy assets for canister '%s': %w", info.Name(), err)
	}
	return nil
}

// GenerateIDL unpacks the asset storage interface into the declarations
// directory as <name>.did. Only the declarations directory is touched.
func (b *Builder) GenerateIDL(pool builder.Pool, info *canister.Info, cfg builder.Config) (string, error) {
	output := info.Declarations().Output
	if output == "" {
		return "", dfxerr.Config("`declarations.output` must not be None")
	}
	if err := b.unpack(output); err != nil {
		return "", fmt.Errorf("failed to generate idl for canister '%s': %w", info.Name(), err)
	}
	// The copied assets under the output root belong to the build and are
	// left alone; declarations may be generated right after Postbuild.
	wasmPath := filepath.Join(output, wasmFile)
	if err := os.Remove(wasmPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to remove %s: %w", wasmPath, err)
	}
	idlPath := filepath.Join(output, didFile)
	renamed := filepath.Join(output, info.Name()+".did")
	if _, err := os.Stat(idlPath); err == nil {
		if err := os.Rename(idlPath, renamed); err != nil {
			return "", fmt.Errorf("failed to rename %s: %w", idlPath, err)
		}
	}
	return renamed, nil
}

func (b *Builder) unpack(dir string) error {
	image, err := b.cache.AssetArchive()
	if err != nil {
		return fmt.Errorf("failed to get asset canister archive: %w", err)
	}
	if err := image.Unpack(dir); err != nil {
		return fmt.Errorf("failed to unpack archive to %s: %w", dir, err)
	}
	return nil
}

// deleteOutputDirectory removes <output root>/assets, refusing to touch a
// directory that resolves outside the workspace.
func deleteOutputDirectory(info *canister.AssetsInfo) error {
	path := info.OutputAssetsPath()
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	canonical, err := safepath.Within(path, info.WorkspaceRoot())
	if err != nil {
		return fmt.Errorf("failed to delete output directory for canister '%s': %w", info.Name(), err)
	}
	if err := os.RemoveAll(canonical); err != nil {
		return fmt.Errorf("failed to remove %s: %w", canonical, err)
	}
	return nil
}

func copyAssets(logger *zerolog.Logger, info *canister.AssetsInfo) error {
	output := info.OutputAssetsPath()
	for _, source := range info.SourcePaths() {
		if _, err := os.Stat(source); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn().Msgf("Source path %q does not exist.", source)
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", source, err)
		}

		err := filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("failed to read an input asset entry in %s: %w", source, err)
			}
			if path != source && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			rel, err := filepath.Rel(source, path)
			if err != nil {
				return err
			}
			destination := filepath.Join(output, rel)
			if _, err := os.Lstat(destination); err == nil {
				return nil
			}
			if d.IsDir() {
				if err := os.Mkdir(destination, 0o755); err != nil {
					return fmt.Errorf("failed to create %s: %w", destination, err)
				}
				return nil
			}
			return builder.CopyFile(path, destination)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// buildFrontend runs the frontend build in the project root when the
// project has a package.json.
func buildFrontend(logger *zerolog.Logger, projectRoot string, cfg builder.Config, vars []string) error {
	if _, err := os.Stat(filepath.Join(projectRoot, "package.json")); err != nil {
		return nil
	}
	command := cfg.FrontendCommand
	if len(command) == 0 {
		command = defaultFrontendCommand
	}
	logger.Info().Msg("Building frontend...")

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = projectRoot
	cmd.Env = os.Environ()
	if network.IsIC(cfg.NetworkName, nil) {
		cmd.Env = append(cmd.Env, "NODE_ENV=production")
	}
	cmd.Env = append(cmd.Env, vars...)
	if _, err := builder.Run(logger, cmd); err != nil {
		return fmt.Errorf("failed to build frontend for network '%s': %w", cfg.NetworkName, err)
	}
	return nil
}
