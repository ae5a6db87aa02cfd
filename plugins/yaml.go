package plugins

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/dfxcore/internal/dfxerr"
)

// DefinitionFile pairs a parsed builder definition with the file (and, for
// Go plugins, the entry) it came from.
type DefinitionFile struct {
	Definition BuilderDefinition
	Path       string
}

// ParseDefinitionYAML decodes and validates one builder definition. JSON is
// accepted as well. Unknown keys are rejected so a misspelt "wasm" or
// "candid" does not silently fall back to an empty path.
func ParseDefinitionYAML(data []byte) (BuilderDefinition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return BuilderDefinition{}, dfxerr.Config("plugin: definition payload is empty")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var def BuilderDefinition
	if err := dec.Decode(&def); err != nil {
		return BuilderDefinition{}, dfxerr.Config("plugin: decode builder definition: %v", err)
	}
	if err := def.Validate(); err != nil {
		return BuilderDefinition{}, dfxerr.Config("%v", err)
	}
	return def.Normalized(), nil
}

// LoadDefinitionFile reads one definition file from disk.
func LoadDefinitionFile(path string) (DefinitionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	def, err := ParseDefinitionYAML(data)
	if err != nil {
		return DefinitionFile{}, dfxerr.Config("%s: %v", path, err)
	}
	return DefinitionFile{Definition: def, Path: filepath.Clean(path)}, nil
}

// LoadDefinitionDir reads every .yaml, .yml and .json builder in dir. Two
// files defining the same id, or claiming the same canister type, are a
// configuration error naming both files. A missing directory means no
// plugins.
func LoadDefinitionDir(dir string) ([]DefinitionFile, error) {
	set := newDefinitionSet()
	if err := loadDefinitionFilesInto(set, dir); err != nil {
		return nil, err
	}
	return set.definitions(), nil
}

func loadDefinitionFilesInto(set *definitionSet, dir string) error {
	paths, err := pluginFiles(dir, isDefinitionFile)
	if err != nil {
		return err
	}
	for _, path := range paths {
		file, err := LoadDefinitionFile(path)
		if err != nil {
			return err
		}
		if err := set.add(file); err != nil {
			return err
		}
	}
	return nil
}

// pluginFiles lists regular, non-hidden files in dir accepted by keep,
// sorted by name.
func pluginFiles(dir string, keep func(name string) bool) ([]string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !keep(name) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

func isDefinitionFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// definitionSet accumulates the builders of one directory. Ids and
// canister types are claimed first come, first served, in file order.
type definitionSet struct {
	files []DefinitionFile
	ids   map[string]string
	types map[string]string
}

func newDefinitionSet() *definitionSet {
	return &definitionSet{ids: map[string]string{}, types: map[string]string{}}
}

func (s *definitionSet) add(file DefinitionFile) error {
	def := file.Definition
	if prev, ok := s.ids[def.ID]; ok {
		return dfxerr.Config("plugin: duplicate builder id %s in %s (already defined in %s)", def.ID, file.Path, prev)
	}
	for _, typ := range def.Types {
		if prev, ok := s.types[typ]; ok {
			return dfxerr.Config("plugin: canister type %s in %s is already claimed by %s", typ, file.Path, prev)
		}
	}
	s.ids[def.ID] = file.Path
	for _, typ := range def.Types {
		s.types[typ] = file.Path
	}
	s.files = append(s.files, file)
	return nil
}

func (s *definitionSet) definitions() []DefinitionFile {
	if len(s.files) == 0 {
		return nil
	}
	return append([]DefinitionFile(nil), s.files...)
}
