package plugins

import (
	"fmt"
	"path/filepath"

	"github.com/kingrea/dfxcore/internal/builder"
	"github.com/kingrea/dfxcore/internal/config"
)

// BuildersDir is where project builder plugins live, relative to the project root.
var BuildersDir = filepath.Join(config.ProjectDir, "builders")

// RegisterBuilderPlugins discovers YAML, JSON and Go builder definitions
// under <projectRoot>/.dfx/builders and registers them after the built-in
// builders. Ids and canister types are unique across all plugin files.
func RegisterBuilderPlugins(reg *builder.Registry, projectRoot string) error {
	if reg == nil || projectRoot == "" {
		return nil
	}
	defs, err := loadAllDefinitionFiles(filepath.Join(projectRoot, BuildersDir))
	if err != nil {
		return err
	}
	for _, file := range defs {
		b, err := NewCommandBuilder(file.Definition)
		if err != nil {
			return fmt.Errorf("plugin: %s: %w", file.Path, err)
		}
		if err := reg.Register(file.Definition.ID, b); err != nil {
			return fmt.Errorf("plugin: register %s from %s: %w", file.Definition.ID, file.Path, err)
		}
	}
	return nil
}

// loadAllDefinitionFiles reads definition files first, then Go plugins,
// into one claim set.
func loadAllDefinitionFiles(dir string) ([]DefinitionFile, error) {
	set := newDefinitionSet()
	if err := loadDefinitionFilesInto(set, dir); err != nil {
		return nil, err
	}
	if err := loadGoDefinitionsInto(set, dir); err != nil {
		return nil, err
	}
	return set.definitions(), nil
}
