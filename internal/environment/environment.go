// Package environment gathers everything a command needs to know about the
// project it runs in: the manifest, the selected network, the tool cache
// and the logger.
package environment

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/kingrea/dfxcore/internal/cache"
	"github.com/kingrea/dfxcore/internal/config"
	"github.com/kingrea/dfxcore/internal/dfxerr"
	"github.com/kingrea/dfxcore/internal/logging"
	"github.com/kingrea/dfxcore/internal/network"
)

// Options configure New. Zero values pick the defaults.
type Options struct {
	// Dir is where the manifest search starts; defaults to the working directory.
	Dir string
	// Network overrides the settings' default network.
	Network string
	// Version is the running tool version.
	Version string
	// LogLevel overrides the settings' log level.
	LogLevel string
	// Console receives log output; nil means stderr.
	Console io.Writer
	// Cache overrides the per-version cache on disk.
	Cache cache.Cache
}

// Environment is the resolved project context.
type Environment struct {
	cwd      string
	config   *config.Config
	settings config.Settings
	cache    cache.Cache
	network  network.Descriptor
	logger   *logging.Logger
	version  string
}

// New resolves the environment. A missing manifest is not an error; commands
// that need one call RequireConfig.
func New(opts Options) (*Environment, error) {
	cwd := opts.Dir
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("environment: working directory: %w", err)
		}
		cwd = wd
	}
	cwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, fmt.Errorf("environment: resolve %s: %w", cwd, err)
	}

	cfg, err := config.FromDir(cwd)
	if err != nil {
		if !errors.Is(err, dfxerr.ErrNotFound) {
			return nil, err
		}
		cfg = nil
	}
	env := &Environment{cwd: cwd, config: cfg, version: opts.Version}

	env.settings, err = config.LoadSettings(env.ProjectRoot())
	if err != nil {
		return nil, err
	}

	level := opts.LogLevel
	if level == "" {
		level = env.settings.Log.Level
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	env.logger, err = logging.New(env.ProjectRoot(), logging.Options{
		Level:   level,
		Console: console,
		File:    cfg != nil && env.settings.LogToFile(),
	})
	if err != nil {
		return nil, err
	}

	name := opts.Network
	if name == "" {
		name = env.settings.Network
	}
	var iface *config.ConfigInterface
	if cfg != nil {
		iface = cfg.Interface()
	}
	env.network, err = network.Resolve(iface, name)
	if err != nil {
		env.logger.Close()
		return nil, err
	}

	env.cache = opts.Cache
	if env.cache == nil {
		root, err := cache.DefaultRoot(opts.Version)
		if err != nil {
			env.logger.Close()
			return nil, err
		}
		env.cache = cache.New(root, opts.Version)
	}

	if cfg != nil && opts.Version != "" {
		if err := iface.CheckToolVersion(opts.Version); err != nil {
			env.logger.Warn().Err(err).Msg("tool version does not match dfx.json")
		}
	}
	env.logger.Debug().
		Str("project", env.ProjectRoot()).
		Str("network", env.network.Name).
		Str("cache", env.cache.Root()).
		Msg("environment ready")
	return env, nil
}

// Cwd is the directory the environment was resolved from.
func (e *Environment) Cwd() string { return e.cwd }

// Config returns the manifest, nil outside a project.
func (e *Environment) Config() *config.Config { return e.config }

// RequireConfig returns the manifest or an ErrNotFound when there is none.
func (e *Environment) RequireConfig() (*config.Config, error) {
	if e.config == nil {
		return nil, dfxerr.NotFound("Cannot find %s in %s or any parent directory.", config.ConfigFilename, e.cwd)
	}
	return e.config, nil
}

// ProjectRoot is the manifest directory, or the working directory outside a project.
func (e *Environment) ProjectRoot() string {
	if e.config != nil {
		return e.config.ProjectRoot()
	}
	return e.cwd
}

// Settings returns the project settings.
func (e *Environment) Settings() config.Settings { return e.settings }

// NetworkDescriptor returns the selected network.
func (e *Environment) NetworkDescriptor() network.Descriptor { return e.network }

// Cache returns the tool cache.
func (e *Environment) Cache() cache.Cache { return e.cache }

// Version returns the running tool version.
func (e *Environment) Version() string { return e.version }

// Logger returns the environment logger.
func (e *Environment) Logger() *zerolog.Logger { return e.logger.Zerolog() }

// Close flushes and closes the log file.
func (e *Environment) Close() error {
	return e.logger.Close()
}
