// cmd/dfxcore/main.go
//
// Command line entry point. Each sub-command resolves the environment from
// the working directory, does one thing and exits non-zero with the full
// error chain on failure.
//
//	dfxcore build [--network N] [--declarations] [canister...]
//	dfxcore deps <canister>
//	dfxcore network [name]
//	dfxcore id [--network N] [--set ID | --clear] <canister>

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/kingrea/dfxcore/internal/builder"
	"github.com/kingrea/dfxcore/internal/builder/assets"
	"github.com/kingrea/dfxcore/internal/builder/custom"
	"github.com/kingrea/dfxcore/internal/canister"
	"github.com/kingrea/dfxcore/internal/canisterid"
	"github.com/kingrea/dfxcore/internal/config"
	"github.com/kingrea/dfxcore/internal/depgraph"
	"github.com/kingrea/dfxcore/internal/environment"
	"github.com/kingrea/dfxcore/internal/pool"
	"github.com/kingrea/dfxcore/internal/tui"
	"github.com/kingrea/dfxcore/plugins"
)

// version is overridden at link time.
var version = "0.9.2"

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(args)
	case "deps":
		err = runDeps(args)
	case "network":
		err = runNetwork(args)
	case "id":
		err = runID(args)
	case "version", "--version":
		fmt.Println(version)
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		usage(os.Stderr)
		die("unknown command %q", os.Args[1])
	}
	if err != nil {
		die("Error: %v", err)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: dfxcore <build|deps|network|id|version> [flags] [args]")
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

type commonFlags struct {
	network  string
	logLevel string
}

func newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	common := &commonFlags{}
	fs.StringVar(&common.network, "network", "", "network to target (defaults to settings, then local)")
	fs.StringVar(&common.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	return fs, common
}

func openEnv(common *commonFlags) (*environment.Environment, error) {
	return openEnvWithConsole(common, nil)
}

func openEnvWithConsole(common *commonFlags, console io.Writer) (*environment.Environment, error) {
	return environment.New(environment.Options{
		Network:  common.network,
		Version:  version,
		LogLevel: common.logLevel,
		Console:  console,
	})
}

func newRegistry(env *environment.Environment) (*builder.Registry, error) {
	reg := builder.NewRegistry()
	reg.MustRegister(canister.AssetsType, assets.New(env.Cache()))
	reg.MustRegister(custom.Type, custom.New())
	if err := plugins.RegisterBuilderPlugins(reg, env.ProjectRoot()); err != nil {
		return nil, fmt.Errorf("load builder plugins: %w", err)
	}
	return reg, nil
}

func runBuild(args []string) error {
	fs, common := newFlagSet("build")
	declarations := fs.Bool("declarations", false, "copy candid files into declarations output")
	plain := fs.Bool("plain", false, "log progress instead of the interactive view")
	if err := fs.Parse(args); err != nil {
		return err
	}
	// the progress view owns the terminal; logs still reach .dfx/logs
	interactive := !*plain && isatty.IsTerminal(os.Stdout.Fd())
	var console io.Writer
	if interactive {
		console = io.Discard
	}
	env, err := openEnvWithConsole(common, console)
	if err != nil {
		return err
	}
	defer env.Close()
	if _, err := env.RequireConfig(); err != nil {
		return err
	}
	if err := config.InitProjectDir(env.ProjectRoot()); err != nil {
		return err
	}
	reg, err := newRegistry(env)
	if err != nil {
		return err
	}

	network := env.NetworkDescriptor().Name
	cfg := builder.Config{
		NetworkName:          network,
		ToolVersion:          version,
		FrontendCommand:      env.Settings().Frontend.Command,
		GenerateDeclarations: *declarations,
	}
	build := func(observer pool.Observer) error {
		p, err := pool.Load(env, reg, fs.Args(), pool.WithObserver(observer))
		if err != nil {
			return err
		}
		return p.Build(cfg)
	}

	if interactive {
		names, err := buildNames(env, fs.Args())
		if err != nil {
			return err
		}
		return tui.Run(network, names, build)
	}
	logger := env.Logger()
	return build(func(ev pool.Event) {
		if !ev.Stage.Terminal() {
			logger.Debug().Str("canister", ev.Canister).Str("stage", string(ev.Stage)).Msg("build progress")
			return
		}
		logger.Info().Str("canister", ev.Canister).Str("stage", string(ev.Stage)).Str("reason", ev.Reason).Msg("canister finished")
	})
}

// buildNames lists the canisters a build will touch, for the progress view.
func buildNames(env *environment.Environment, names []string) ([]string, error) {
	iface := env.Config().Interface()
	if len(names) == 0 {
		return depgraph.Closure(iface, "")
	}
	return depgraph.BuildOrder(iface, names)
}

func runDeps(args []string) error {
	fs, common := newFlagSet("deps")
	if err := fs.Parse(args); err != nil {
		return err
	}
	env, err := openEnv(common)
	if err != nil {
		return err
	}
	defer env.Close()
	cfg, err := env.RequireConfig()
	if err != nil {
		return err
	}
	start := ""
	if fs.NArg() > 0 {
		start = fs.Arg(0)
	}
	names, err := depgraph.Closure(cfg.Interface(), start)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runNetwork(args []string) error {
	fs, common := newFlagSet("network")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		common.network = fs.Arg(0)
	}
	env, err := openEnv(common)
	if err != nil {
		return err
	}
	defer env.Close()
	desc := env.NetworkDescriptor()
	fmt.Printf("name:      %s\n", desc.Name)
	fmt.Printf("providers: %s\n", strings.Join(desc.Providers, ", "))
	fmt.Printf("type:      %s\n", desc.Type)
	fmt.Printf("ic:        %t\n", desc.IsIC)
	fmt.Printf("ids:       %s\n", canisterid.Path(desc, env.ProjectRoot()))
	return nil
}

func runID(args []string) error {
	fs, common := newFlagSet("id")
	set := fs.String("set", "", "record this id for the canister")
	clearID := fs.Bool("clear", false, "forget the locally recorded id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("id: exactly one canister name is required")
	}
	if *set != "" && *clearID {
		return fmt.Errorf("id: --set and --clear are mutually exclusive")
	}
	name := fs.Arg(0)
	env, err := openEnv(common)
	if err != nil {
		return err
	}
	defer env.Close()
	if _, err := env.RequireConfig(); err != nil {
		return err
	}
	store, err := canisterid.ForEnv(env)
	if err != nil {
		return err
	}
	switch {
	case *set != "":
		return store.Add(name, *set)
	case *clearID:
		return store.Remove(name)
	}
	id, err := store.Get(name)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}
