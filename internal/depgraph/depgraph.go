// Package depgraph computes canister dependency closures and build orders.
package depgraph

import (
	"fmt"
	"strings"

	"github.com/kingrea/dfxcore/internal/config"
	"github.com/kingrea/dfxcore/internal/dfxerr"
)

// Closure returns start plus every canister it transitively depends on, in
// the order the depth-first walk first reaches them. An empty start walks
// every declared canister in manifest order, which validates the whole
// graph and yields every declared name.
func Closure(cfg *config.ConfigInterface, start string) ([]string, error) {
	if cfg == nil || cfg.Canisters == nil {
		return nil, dfxerr.Config("No canisters in the configuration file.")
	}
	roots := cfg.CanisterNames()
	if start != "" {
		roots = []string{start}
	}
	w := newWalker(cfg)
	for _, name := range roots {
		if err := w.visit(name); err != nil {
			return nil, wrap(start, err)
		}
	}
	return w.preorder, nil
}

// BuildOrder returns names and their dependencies ordered so every canister
// follows all of its dependencies. Ties keep the order names were given in.
func BuildOrder(cfg *config.ConfigInterface, names []string) ([]string, error) {
	if cfg == nil || cfg.Canisters == nil {
		return nil, dfxerr.Config("No canisters in the configuration file.")
	}
	w := newWalker(cfg)
	for _, name := range names {
		if err := w.visit(name); err != nil {
			return nil, fmt.Errorf("failed to order canisters for build: %w", err)
		}
	}
	return w.postorder, nil
}

// Dependencies returns the direct dependencies declared by name.
func Dependencies(cfg *config.ConfigInterface, name string) ([]string, error) {
	can, err := cfg.Canister(name)
	if err != nil {
		return nil, err
	}
	return can.Dependencies()
}

type walker struct {
	cfg       *config.ConfigInterface
	visited   map[string]bool
	path      []string
	preorder  []string
	postorder []string
}

func newWalker(cfg *config.ConfigInterface) *walker {
	return &walker{cfg: cfg, visited: map[string]bool{}}
}

func (w *walker) visit(name string) error {
	if w.visited[name] {
		if w.onPath(name) {
			cycle := append(append([]string(nil), w.path...), name)
			return dfxerr.Dependency("Found circular dependency: %s", strings.Join(cycle, " -> "))
		}
		return nil
	}
	w.visited[name] = true
	w.preorder = append(w.preorder, name)

	deps, err := Dependencies(w.cfg, name)
	if err != nil {
		return err
	}

	w.path = append(w.path, name)
	for _, dep := range deps {
		if err := w.visit(dep); err != nil {
			return err
		}
	}
	w.path = w.path[:len(w.path)-1]
	w.postorder = append(w.postorder, name)
	return nil
}

func (w *walker) onPath(name string) bool {
	for _, entry := range w.path {
		if entry == name {
			return true
		}
	}
	return false
}

func wrap(start string, err error) error {
	if start == "" {
		return fmt.Errorf("failed to resolve canister dependencies: %w", err)
	}
	return fmt.Errorf("failed to resolve dependencies of canister '%s': %w", start, err)
}
