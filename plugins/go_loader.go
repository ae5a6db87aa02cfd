package plugins

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/dfxcore/internal/dfxerr"
)

// builderFuncName is the function a Go plugin must declare:
//
//	func BuilderDefinitions() ([]map[string]any, error)
//
// The error result is optional. Each map has the same keys as a YAML
// definition.
const builderFuncName = "BuilderDefinitions"

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// LoadGoDefinitionDir interprets every .go file in dir (tests excluded) and
// collects the builders each one returns. Ids and canister types must be
// unique across the directory.
func LoadGoDefinitionDir(dir string) ([]DefinitionFile, error) {
	set := newDefinitionSet()
	if err := loadGoDefinitionsInto(set, dir); err != nil {
		return nil, err
	}
	return set.definitions(), nil
}

func loadGoDefinitionsInto(set *definitionSet, dir string) error {
	paths, err := pluginFiles(dir, isGoPluginFile)
	if err != nil {
		return err
	}
	for _, path := range paths {
		files, err := interpretBuilderFile(path)
		if err != nil {
			return err
		}
		for _, file := range files {
			if err := set.add(file); err != nil {
				return err
			}
		}
	}
	return nil
}

func isGoPluginFile(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
}

func interpretBuilderFile(path string) ([]DefinitionFile, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	if strings.TrimSpace(string(code)) == "" {
		return nil, dfxerr.Config("plugin: %s is empty", path)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("plugin: load interpreter symbols: %w", err)
	}
	if _, err := i.Eval(string(code)); err != nil {
		return nil, dfxerr.Config("plugin: interpret %s: %v", path, err)
	}
	fn, err := i.Eval(builderFuncName)
	if err != nil {
		return nil, dfxerr.Config("plugin: %s must declare %s() ([]map[string]any, error)", path, builderFuncName)
	}
	raw, err := callBuilderFunc(fn)
	if err != nil {
		return nil, dfxerr.Config("plugin: %s: %v", path, err)
	}

	files := make([]DefinitionFile, 0, len(raw))
	for idx, entry := range raw {
		source := fmt.Sprintf("%s#%d", path, idx+1)
		payload, err := yaml.Marshal(entry)
		if err != nil {
			return nil, dfxerr.Config("plugin: %s: encode definition: %v", source, err)
		}
		def, err := ParseDefinitionYAML(payload)
		if err != nil {
			return nil, dfxerr.Config("%s: %v", source, err)
		}
		files = append(files, DefinitionFile{Definition: def, Path: source})
	}
	return files, nil
}

// callBuilderFunc checks the plugin function's signature before calling
// it, so a wrong signature is reported instead of panicking in reflect.
func callBuilderFunc(fn reflect.Value) ([]map[string]any, error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", builderFuncName)
	}
	typ := fn.Type()
	if typ.NumIn() != 0 {
		return nil, fmt.Errorf("%s must not take arguments", builderFuncName)
	}
	switch {
	case typ.NumOut() == 1:
	case typ.NumOut() == 2 && typ.Out(1).Implements(errorType):
	default:
		return nil, fmt.Errorf("%s must return ([]map[string]any[, error])", builderFuncName)
	}
	if typ.Out(0).Kind() != reflect.Slice {
		return nil, fmt.Errorf("%s must return a slice of definitions", builderFuncName)
	}

	out := fn.Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	list := out[0]
	defs := make([]map[string]any, 0, list.Len())
	for idx := 0; idx < list.Len(); idx++ {
		entry, ok := list.Index(idx).Interface().(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s()[%d] is %T, want map[string]any", builderFuncName, idx, list.Index(idx).Interface())
		}
		defs = append(defs, entry)
	}
	return defs, nil
}
