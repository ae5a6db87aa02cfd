package plugins

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/kingrea/dfxcore/internal/builder"
	"github.com/kingrea/dfxcore/internal/canister"
	"github.com/kingrea/dfxcore/internal/dfxerr"
	"github.com/kingrea/dfxcore/internal/principal"
)

// templateData is what definition templates see.
type templateData struct {
	Name          string
	Type          string
	Network       string
	Profile       string
	WorkspaceRoot string
	OutputRoot    string
}

type compiled struct {
	build  []*template.Template
	env    []*template.Template
	wasm   *template.Template
	candid *template.Template
}

// compile parses every template of def. The extra function is bound per
// render; at parse time it only has to exist.
func compile(def BuilderDefinition) (compiled, error) {
	var out compiled
	parse := func(name, text string) (*template.Template, error) {
		tpl, err := template.New(name).Funcs(extraFuncs(nil)).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		return tpl, nil
	}
	var err error
	for idx, line := range def.Build {
		tpl, perr := parse(fmt.Sprintf("build[%d]", idx), line)
		if perr != nil {
			return out, perr
		}
		out.build = append(out.build, tpl)
	}
	for _, pair := range def.EnvPairs() {
		tpl, perr := parse("env", pair)
		if perr != nil {
			return out, perr
		}
		out.env = append(out.env, tpl)
	}
	if out.wasm, err = parse("wasm", def.Wasm); err != nil {
		return out, err
	}
	if out.candid, err = parse("candid", def.Candid); err != nil {
		return out, err
	}
	return out, nil
}

func extraFuncs(info *canister.Info) template.FuncMap {
	return template.FuncMap{
		"extra": func(key string) (string, error) {
			if info == nil {
				return "", nil
			}
			value, ok, err := info.ExtraString(key)
			if err != nil {
				return "", err
			}
			if !ok {
				return "", dfxerr.Config("canister '%s' has no '%s' field", info.Name(), key)
			}
			return value, nil
		},
	}
}

// CommandBuilder builds canisters of the definition's types by running its
// templated commands.
type CommandBuilder struct {
	def       BuilderDefinition
	templates compiled
}

// NewCommandBuilder validates def and returns a builder for it.
func NewCommandBuilder(def BuilderDefinition) (*CommandBuilder, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	normalized := def.Normalized()
	templates, err := compile(normalized)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", normalized.ID, err)
	}
	return &CommandBuilder{def: normalized, templates: templates}, nil
}

// Definition returns the definition the builder was made from.
func (b *CommandBuilder) Definition() BuilderDefinition { return b.def }

func (b *CommandBuilder) Supports(info *canister.Info) bool {
	for _, typ := range b.def.Types {
		if typ == info.Type() {
			return true
		}
	}
	return false
}

func (b *CommandBuilder) GetDependencies(pool builder.Pool, info *canister.Info) ([]principal.ID, error) {
	return builder.DependencyIDs(pool, info)
}

func (b *CommandBuilder) Build(pool builder.Pool, info *canister.Info, cfg builder.Config) (builder.Output, error) {
	id, ok := info.CanisterID()
	if !ok {
		return builder.Output{}, dfxerr.NotFound("Could not find canister ID for '%s'.", info.Name())
	}
	data := b.data(info, cfg)
	commands, err := b.renderAll(b.templates.build, info, data)
	if err != nil {
		return builder.Output{}, err
	}
	env, err := b.renderAll(b.templates.env, info, data)
	if err != nil {
		return builder.Output{}, err
	}
	deps, err := builder.DependencyIDs(pool, info)
	if err != nil {
		return builder.Output{}, err
	}
	env = append(builder.EnvironmentVariables(pool, info, cfg, deps), env...)

	pool.Logger().Info().Str("canister", info.Name()).Str("builder", b.def.ID).Msg("running plugin build")
	if err := builder.RunShellCommands(pool.Logger(), info.WorkspaceRoot(), commands, env); err != nil {
		return builder.Output{}, fmt.Errorf("plugin %s: failed to build canister '%s': %w", b.def.ID, info.Name(), err)
	}
	wasm, candid, err := b.artifacts(info, data)
	if err != nil {
		return builder.Output{}, err
	}
	for _, path := range []string{wasm, candid} {
		if _, err := os.Stat(path); err != nil {
			return builder.Output{}, fmt.Errorf("plugin %s: failed to build canister '%s': %w", b.def.ID, info.Name(), err)
		}
	}
	return builder.Output{CanisterID: id, WasmPath: wasm, IDLPath: candid}, nil
}

func (b *CommandBuilder) Postbuild(builder.Pool, *canister.Info, builder.Config) error {
	return nil
}

func (b *CommandBuilder) GenerateIDL(pool builder.Pool, info *canister.Info, cfg builder.Config) (string, error) {
	_, candid, err := b.artifacts(info, b.data(info, cfg))
	if err != nil {
		return "", err
	}
	path, err := builder.CopyCandid(info, candid)
	if err != nil {
		return "", fmt.Errorf("failed to generate idl for canister '%s': %w", info.Name(), err)
	}
	return path, nil
}

func (b *CommandBuilder) data(info *canister.Info, cfg builder.Config) templateData {
	return templateData{
		Name:          info.Name(),
		Type:          info.Type(),
		Network:       info.NetworkName(),
		Profile:       string(cfg.Profile),
		WorkspaceRoot: info.WorkspaceRoot(),
		OutputRoot:    info.OutputRoot(),
	}
}

func (b *CommandBuilder) artifacts(info *canister.Info, data templateData) (string, string, error) {
	wasm, err := render(b.templates.wasm, info, data)
	if err != nil {
		return "", "", fmt.Errorf("plugin %s: %w", b.def.ID, err)
	}
	candid, err := render(b.templates.candid, info, data)
	if err != nil {
		return "", "", fmt.Errorf("plugin %s: %w", b.def.ID, err)
	}
	return info.ResolvePath(wasm), info.ResolvePath(candid), nil
}

func (b *CommandBuilder) renderAll(tpls []*template.Template, info *canister.Info, data templateData) ([]string, error) {
	out := make([]string, 0, len(tpls))
	for _, tpl := range tpls {
		text, err := render(tpl, info, data)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", b.def.ID, err)
		}
		out = append(out, text)
	}
	return out, nil
}

func render(tpl *template.Template, info *canister.Info, data templateData) (string, error) {
	clone, err := tpl.Clone()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := clone.Funcs(extraFuncs(info)).Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tpl.Name(), err)
	}
	return buf.String(), nil
}
