// Package cache locates the per-version tool cache and the program images
// installed in it.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/kingrea/dfxcore/internal/archive"
	"github.com/kingrea/dfxcore/internal/dfxerr"
)

// AssetArchiveName is the asset canister image inside a cache version dir.
const AssetArchiveName = "assetstorage.tar.gz"

// Cache hands out bundled program images.
type Cache interface {
	Root() string
	Version() string
	AssetArchive() (*archive.Archive, error)
}

// DiskCache is a cache version directory on disk. Images are read once.
type DiskCache struct {
	root    string
	version string

	mu     sync.Mutex
	assets *archive.Archive
}

// New returns the cache rooted at root for version.
func New(root, version string) *DiskCache {
	return &DiskCache{root: root, version: version}
}

// DefaultRoot returns $DFX_CACHE_ROOT/.cache/dfinity/versions/<version>,
// falling back to the user's home directory.
func DefaultRoot(version string) (string, error) {
	base := os.Getenv("DFX_CACHE_ROOT")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cache: home directory: %w", err)
		}
		base = home
	}
	return filepath.Join(base, ".cache", "dfinity", "versions", version), nil
}

func (c *DiskCache) Root() string    { return c.root }
func (c *DiskCache) Version() string { return c.version }

// AssetArchive returns the asset canister image.
func (c *DiskCache) AssetArchive() (*archive.Archive, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.assets != nil {
		return c.assets, nil
	}
	path := filepath.Join(c.root, AssetArchiveName)
	a, err := archive.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, dfxerr.NotFound("asset canister image not found at %s; install it into the cache", path)
		}
		return nil, fmt.Errorf("cache: %w", err)
	}
	c.assets = a
	return a, nil
}

// InstallAssetArchive writes entries as the asset canister image.
func (c *DiskCache) InstallAssetArchive(entries []archive.Entry) error {
	var buf bytes.Buffer
	if err := archive.WriteTarGz(&buf, entries); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return fmt.Errorf("cache: create %s: %w", c.root, err)
	}
	path := filepath.Join(c.root, AssetArchiveName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("cache: write %s: %w", path, err)
	}
	c.mu.Lock()
	c.assets = nil
	c.mu.Unlock()
	return nil
}
