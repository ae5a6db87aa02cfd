package plugins

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/dfxcore/internal/dfxerr"
)

func TestLoadDefinitionDirSortsAndFilters(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.yml":     "id: beta\ntypes: [b]\nwasm: b.wasm\ncandid: b.did\n",
		"a.yaml":    "id: alpha\ntypes: [a]\nwasm: a.wasm\ncandid: a.did\n",
		"notes.txt": "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.yaml"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	defs, err := LoadDefinitionDir(dir)
	if err != nil {
		t.Fatalf("load defs: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	if defs[0].Definition.ID != "alpha" || defs[1].Definition.ID != "beta" {
		t.Fatalf("unexpected order: %s, %s", defs[0].Definition.ID, defs[1].Definition.ID)
	}
}

func TestLoadDefinitionDirInvalidFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: bad\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadDefinitionDir(dir); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadDefinitionFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rust.yaml")
	payload := `{"id": "rust", "types": ["rust"], "wasm": "{{.Name}}.wasm", "candid": "{{.Name}}.did"}`
	if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	file, err := LoadDefinitionFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if file.Definition.Wasm != "{{.Name}}.wasm" {
		t.Fatalf("unexpected wasm template %q", file.Definition.Wasm)
	}
}

func TestLoadDefinitionDirTypeClaimedTwice(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.yaml": "id: alpha\ntypes: [rust]\nwasm: a.wasm\ncandid: a.did\n",
		"b.json": `{"id": "beta", "types": ["motoko", "rust"], "wasm": "b.wasm", "candid": "b.did"}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	_, err := LoadDefinitionDir(dir)
	if !errors.Is(err, dfxerr.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "canister type rust") || !strings.Contains(msg, "b.json") || !strings.Contains(msg, "a.yaml") {
		t.Fatalf("expected both files named, got %q", msg)
	}
}

func TestLoadDefinitionDirSkipsHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".draft.yaml"), []byte("id: draft\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	defs, err := LoadDefinitionDir(dir)
	if err != nil || len(defs) != 0 {
		t.Fatalf("expected hidden file skipped, got %v, %v", defs, err)
	}
}

func TestParseDefinitionYAMLErrorsAreConfigErrors(t *testing.T) {
	cases := map[string]string{
		"empty":         "  \n",
		"malformed":     "id: [unterminated\n",
		"unknown field": "id: x\ntypes: [x]\nwasm: x.wasm\ncandid: x.did\nwsam: typo.wasm\n",
		"missing wasm":  "id: x\ntypes: [x]\ncandid: x.did\n",
	}
	for name, payload := range cases {
		if _, err := ParseDefinitionYAML([]byte(payload)); !errors.Is(err, dfxerr.ErrConfig) {
			t.Fatalf("%s: expected config error, got %v", name, err)
		}
	}
}

func TestLoadDefinitionFileReadError(t *testing.T) {
	_, err := LoadDefinitionFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
