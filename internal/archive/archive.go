// Package archive reads the bundled program images shipped in the cache.
// Images are gzip-compressed tar streams.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/kingrea/dfxcore/internal/dfxerr"
)

// Entry is one member of an archive.
type Entry struct {
	Path string
	Dir  bool
	Mode fs.FileMode
	Data []byte
}

// Archive is a fully read image.
type Archive struct {
	entries []Entry
}

// New wraps entries as an archive.
func New(entries []Entry) *Archive {
	return &Archive{entries: append([]Entry(nil), entries...)}
}

// Open reads a .tar.gz file.
func Open(file string) (*Archive, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", file, err)
	}
	defer f.Close()
	a, err := ReadTarGz(f)
	if err != nil {
		return nil, fmt.Errorf("archive: %s: %w", file, err)
	}
	return a, nil
}

// ReadTarGz reads every entry of a gzip-compressed tar stream.
func ReadTarGz(r io.Reader) (*Archive, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("archive: gzip: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	var entries []Entry
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("archive: tar: %w", err)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			entries = append(entries, Entry{Path: hdr.Name, Dir: true, Mode: fs.FileMode(hdr.Mode).Perm()})
		case tar.TypeReg:
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("archive: read %s: %w", hdr.Name, err)
			}
			entries = append(entries, Entry{Path: hdr.Name, Mode: fs.FileMode(hdr.Mode).Perm(), Data: data})
		}
	}
	return &Archive{entries: entries}, nil
}

// WriteTarGz writes entries as a gzip-compressed tar stream.
func WriteTarGz(w io.Writer, entries []Entry) error {
	zw := gzip.NewWriter(w)
	tw := tar.NewWriter(zw)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.Path, Mode: int64(e.mode())}
		if e.Dir {
			hdr.Typeflag = tar.TypeDir
		} else {
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.Data))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("archive: header %s: %w", e.Path, err)
		}
		if !e.Dir {
			if _, err := tw.Write(e.Data); err != nil {
				return fmt.Errorf("archive: write %s: %w", e.Path, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("archive: tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("archive: gzip: %w", err)
	}
	return nil
}

// Entries returns the archive members in stream order.
func (a *Archive) Entries() []Entry {
	return append([]Entry(nil), a.entries...)
}

// Unpack writes every file entry below dir, creating dir and any parent
// directories. Directory entries are implied by the files they hold.
// Entries that would land outside dir are refused.
func (a *Archive) Unpack(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("archive: create %s: %w", dir, err)
	}
	for _, e := range a.entries {
		if e.Dir {
			continue
		}
		rel, err := cleanEntryPath(e.Path)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("archive: create %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, e.Data, e.mode()); err != nil {
			return fmt.Errorf("archive: unpack %s: %w", target, err)
		}
	}
	return nil
}

func (e Entry) mode() fs.FileMode {
	if e.Mode != 0 {
		return e.Mode
	}
	if e.Dir {
		return 0o755
	}
	return 0o644
}

func cleanEntryPath(name string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(name, "./"))
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") || cleaned == "." {
		return "", dfxerr.PathSafety("archive entry %q escapes the unpack directory", name)
	}
	return cleaned, nil
}
