package pool

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/kingrea/dfxcore/internal/builder"
	"github.com/kingrea/dfxcore/internal/dfxerr"
	"github.com/kingrea/dfxcore/internal/safepath"
)

// EnvFileVariables returns the variables written to output_env_file.
func (p *Pool) EnvFileVariables(cfg builder.Config) map[string]string {
	vars := map[string]string{"DFX_NETWORK": cfg.NetworkName}
	if cfg.ToolVersion != "" {
		vars["DFX_VERSION"] = cfg.ToolVersion
	}
	for _, info := range p.Canisters() {
		id, ok := info.CanisterID()
		if !ok {
			continue
		}
		vars["CANISTER_ID_"+builder.EnvName(info.Name())] = id.String()
	}
	return vars
}

// writeEnvFile merges the canister variables into output_env_file when the
// manifest names one. Unrelated keys already in the file are kept.
func (p *Pool) writeEnvFile(cfg builder.Config) error {
	rel := p.config.Interface().OutputEnvFile
	if rel == "" {
		return nil
	}
	root := p.config.ProjectRoot()
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	if !safepath.HasPrefix(filepath.Clean(path), root) {
		return fmt.Errorf("output_env_file: %w", dfxerr.PathSafety("File at '%s' is outside the workspace root.", path))
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		vars = map[string]string{}
	}
	for key, value := range p.EnvFileVariables(cfg) {
		vars[key] = value
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := godotenv.Write(vars, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	p.logger.Debug().Str("path", path).Int("variables", len(vars)).Msg("wrote env file")
	return nil
}
