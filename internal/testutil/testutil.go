// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kingrea/dfxcore/internal/archive"
	"github.com/kingrea/dfxcore/internal/builder"
	"github.com/kingrea/dfxcore/internal/cache"
	"github.com/kingrea/dfxcore/internal/canister"
	"github.com/kingrea/dfxcore/internal/config"
	"github.com/kingrea/dfxcore/internal/principal"
)

// Project writes manifest as dfx.json in a fresh directory and loads it.
func Project(t *testing.T, manifest string) *config.Config {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, config.ConfigFilename)
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.FromFile(path)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	return cfg
}

// WriteFile writes content below root, creating parents.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Info builds canister metadata, attaching id when it is not empty.
func Info(t *testing.T, cfg *config.Config, name, network, id string) *canister.Info {
	t.Helper()
	var opts []canister.Option
	if id != "" {
		opts = append(opts, canister.WithCanisterID(principal.MustFromText(id)))
	}
	info, err := canister.NewInfo(cfg, name, network, opts...)
	if err != nil {
		t.Fatalf("canister info %s: %v", name, err)
	}
	return info
}

// AssetArchiveEntries is a stand-in asset canister image.
func AssetArchiveEntries() []archive.Entry {
	return []archive.Entry{
		{Path: "assetstorage.wasm", Data: []byte("\x00asm\x01\x00\x00\x00")},
		{Path: "assetstorage.did", Data: []byte("service : {}\n")},
	}
}

// AssetCache returns a cache with the stand-in asset image installed.
func AssetCache(t *testing.T) *cache.DiskCache {
	t.Helper()
	c := cache.New(filepath.Join(t.TempDir(), "cache"), "0.9.2")
	if err := c.InstallAssetArchive(AssetArchiveEntries()); err != nil {
		t.Fatal(err)
	}
	return c
}

// Pool is a fixed builder.Pool.
type Pool struct {
	infos   []*canister.Info
	outputs map[string]builder.Output
	logger  zerolog.Logger
}

// NewPool wraps infos; the logger discards output.
func NewPool(infos ...*canister.Info) *Pool {
	return &Pool{infos: infos, outputs: map[string]builder.Output{}, logger: zerolog.Nop()}
}

// WithLogger replaces the logger.
func (p *Pool) WithLogger(logger zerolog.Logger) *Pool {
	p.logger = logger
	return p
}

// SetOutput records a build output for name.
func (p *Pool) SetOutput(name string, out builder.Output) {
	p.outputs[name] = out
}

func (p *Pool) Lookup(name string) (principal.ID, *canister.Info, bool) {
	for _, info := range p.infos {
		if info.Name() == name {
			id, _ := info.CanisterID()
			return id, info, true
		}
	}
	return principal.ID{}, nil, false
}

func (p *Pool) Canisters() []*canister.Info {
	return append([]*canister.Info(nil), p.infos...)
}

func (p *Pool) BuildOutput(name string) (builder.Output, bool) {
	out, ok := p.outputs[name]
	return out, ok
}

func (p *Pool) Logger() *zerolog.Logger {
	return &p.logger
}

// EmptyCache returns a cache with nothing installed.
func EmptyCache(t *testing.T) *cache.DiskCache {
	t.Helper()
	return cache.New(filepath.Join(t.TempDir(), "cache"), "0.9.2")
}
