// Package pool loads the canisters of one build invocation and runs each
// through its builder in dependency order.
package pool

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/kingrea/dfxcore/internal/builder"
	"github.com/kingrea/dfxcore/internal/canister"
	"github.com/kingrea/dfxcore/internal/canisterid"
	"github.com/kingrea/dfxcore/internal/config"
	"github.com/kingrea/dfxcore/internal/depgraph"
	"github.com/kingrea/dfxcore/internal/dfxerr"
	"github.com/kingrea/dfxcore/internal/principal"
)

// Env is the slice of the environment the pool needs.
type Env interface {
	canisterid.Env
	Logger() *zerolog.Logger
}

// Pool owns canister metadata and build outputs for one invocation.
// It is not safe for concurrent use.
type Pool struct {
	config    *config.Config
	network   string
	order     []string
	canisters map[string]*canister.Info
	builders  map[string]builder.Builder
	remote    map[string]bool
	outputs   map[string]builder.Output
	logger    *zerolog.Logger
	observer  Observer
	clock     func() time.Time
}

// Option customizes the pool.
type Option func(*Pool)

// WithObserver receives an Event for every stage change.
func WithObserver(observer Observer) Option {
	return func(p *Pool) {
		p.observer = observer
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(p *Pool) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// Load prepares the named canisters and everything they depend on. An
// empty names list loads every canister in the manifest. Each canister
// needs an id on the selected network and exactly one builder.
func Load(env Env, reg *builder.Registry, names []string, opts ...Option) (*Pool, error) {
	cfg := env.Config()
	if cfg == nil {
		return nil, dfxerr.NotFound("Cannot find %s in %s or any parent directory.", config.ConfigFilename, env.ProjectRoot())
	}
	if reg == nil {
		return nil, fmt.Errorf("pool: builder registry is required")
	}
	iface := cfg.Interface()
	wanted, err := collect(iface, names)
	if err != nil {
		return nil, err
	}
	store, err := canisterid.ForEnv(env)
	if err != nil {
		return nil, err
	}

	desc := env.NetworkDescriptor()
	p := &Pool{
		config:    cfg,
		network:   desc.Name,
		canisters: map[string]*canister.Info{},
		builders:  map[string]builder.Builder{},
		remote:    map[string]bool{},
		outputs:   map[string]builder.Output{},
		logger:    env.Logger(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, name := range wanted {
		id, err := store.Get(name)
		if err != nil {
			return nil, err
		}
		info, err := canister.NewInfo(cfg, name, desc.Name, canister.WithCanisterID(id))
		if err != nil {
			return nil, err
		}
		remote, err := iface.IsRemoteCanister(name, desc.Name)
		if err != nil {
			return nil, err
		}
		p.order = append(p.order, name)
		p.canisters[name] = info
		if remote {
			p.remote[name] = true
			continue
		}
		b, err := reg.Select(info)
		if err != nil {
			return nil, err
		}
		p.builders[name] = b
	}
	return p, nil
}

// collect expands names to their dependency closures, keeping first-seen order.
func collect(cfg *config.ConfigInterface, names []string) ([]string, error) {
	if len(names) == 0 {
		return depgraph.Closure(cfg, "")
	}
	seen := map[string]bool{}
	var out []string
	for _, name := range names {
		closure, err := depgraph.Closure(cfg, name)
		if err != nil {
			return nil, err
		}
		for _, dep := range closure {
			if !seen[dep] {
				seen[dep] = true
				out = append(out, dep)
			}
		}
	}
	return out, nil
}

// Lookup resolves a canister name to its id and metadata.
func (p *Pool) Lookup(name string) (principal.ID, *canister.Info, bool) {
	info, ok := p.canisters[name]
	if !ok {
		return principal.ID{}, nil, false
	}
	id, ok := info.CanisterID()
	return id, info, ok
}

// Canisters returns the loaded canisters in load order.
func (p *Pool) Canisters() []*canister.Info {
	out := make([]*canister.Info, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.canisters[name])
	}
	return out
}

// Names returns the loaded canister names in load order.
func (p *Pool) Names() []string {
	return append([]string(nil), p.order...)
}

// BuildOutput returns the output of a canister built by this pool.
func (p *Pool) BuildOutput(name string) (builder.Output, bool) {
	out, ok := p.outputs[name]
	return out, ok
}

func (p *Pool) Logger() *zerolog.Logger { return p.logger }

// Build runs every non-remote canister through its builder, dependencies
// first. A failing canister stops only itself and the canisters that depend
// on it; the failures are combined in the returned error.
func (p *Pool) Build(cfg builder.Config) error {
	iface := p.config.Interface()
	order, err := depgraph.BuildOrder(iface, p.order)
	if err != nil {
		return err
	}
	if cfg.NetworkName == "" {
		cfg.NetworkName = p.network
	}
	if cfg.Profile == "" {
		cfg.Profile = iface.BuildProfile()
	}

	failed := map[string]bool{}
	var errs []error
	for _, name := range order {
		info := p.canisters[name]
		if p.remote[name] {
			p.logger.Info().Str("canister", name).Str("network", p.network).Msg("skipping remote canister")
			p.emit(Event{Canister: name, Stage: StageSkipped, Reason: "remote"})
			continue
		}
		if dep, ok := p.failedDependency(info, failed); ok {
			failed[name] = true
			p.logger.Warn().Str("canister", name).Str("dependency", dep).Msg("skipping canister, a dependency failed to build")
			p.emit(Event{Canister: name, Stage: StageSkipped, Reason: fmt.Sprintf("dependency %s failed", dep)})
			continue
		}
		if err := p.buildOne(info, cfg); err != nil {
			failed[name] = true
			err = fmt.Errorf("failed to build canister '%s': %w", name, err)
			p.logger.Error().Err(err).Str("canister", name).Msg("build failed")
			p.emit(Event{Canister: name, Stage: StageFailed, Err: err})
			errs = append(errs, err)
			continue
		}
		p.emit(Event{Canister: name, Stage: StageDone, Output: p.outputs[name]})
	}

	if len(errs) == 0 {
		if err := p.writeEnvFile(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

func (p *Pool) buildOne(info *canister.Info, cfg builder.Config) error {
	name := info.Name()
	b := p.builders[name]

	p.emit(Event{Canister: name, Stage: StageDependencies})
	if _, err := b.GetDependencies(p, info); err != nil {
		return err
	}

	p.emit(Event{Canister: name, Stage: StageBuild})
	p.logger.Info().Str("canister", name).Str("type", info.Type()).Msg("building canister")
	out, err := b.Build(p, info, cfg)
	if err != nil {
		return err
	}
	p.outputs[name] = out

	p.emit(Event{Canister: name, Stage: StagePostbuild})
	if err := b.Postbuild(p, info, cfg); err != nil {
		return err
	}

	if cfg.GenerateDeclarations {
		p.emit(Event{Canister: name, Stage: StageGenerate})
		path, err := b.GenerateIDL(p, info, cfg)
		if err != nil {
			return err
		}
		p.logger.Debug().Str("canister", name).Str("path", path).Msg("declarations generated")
	}
	return nil
}

func (p *Pool) failedDependency(info *canister.Info, failed map[string]bool) (string, bool) {
	deps, err := info.Dependencies()
	if err != nil {
		return "", false
	}
	for _, dep := range deps {
		if failed[dep] {
			return dep, true
		}
	}
	return "", false
}

func (p *Pool) emit(ev Event) {
	if p.observer == nil {
		return
	}
	ev.At = p.clock()
	p.observer(ev)
}
