package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSettingsDefaultsWhenMissing(t *testing.T) {
	s, err := LoadSettings(t.TempDir())
	if err != nil {
		t.Fatalf("LoadSettings returned error: %v", err)
	}
	if s.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", s.Version)
	}
	if s.Network != "local" {
		t.Fatalf("expected default network local, got %q", s.Network)
	}
	if strings.Join(s.Frontend.Command, " ") != "npm run build" {
		t.Fatalf("unexpected frontend command %v", s.Frontend.Command)
	}
	if !s.LogToFile() {
		t.Fatalf("file logging should default to on")
	}
}

func TestInitProjectDirWritesLoadableSettings(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitProjectDir(projectDir); err != nil {
		t.Fatalf("InitProjectDir returned error: %v", err)
	}
	for _, dir := range []string{"logs", "builders"} {
		if info, err := os.Stat(filepath.Join(projectDir, ProjectDir, dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory, err=%v", dir, err)
		}
	}
	s, err := LoadSettings(projectDir)
	if err != nil {
		t.Fatalf("LoadSettings returned error: %v", err)
	}
	if s.Log.Level != "info" {
		t.Fatalf("unexpected log level %q", s.Log.Level)
	}

	if err := os.WriteFile(SettingsPath(projectDir), []byte("network: staging\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := InitProjectDir(projectDir); err != nil {
		t.Fatalf("second InitProjectDir returned error: %v", err)
	}
	s, err = LoadSettings(projectDir)
	if err != nil {
		t.Fatalf("LoadSettings returned error: %v", err)
	}
	if s.Network != "staging" {
		t.Fatalf("existing settings must not be overwritten, got network %q", s.Network)
	}
}

func TestLoadSettingsValidation(t *testing.T) {
	projectDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(projectDir, ProjectDir), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "log:\n  level: loud\n  file: false\n"
	if err := os.WriteFile(SettingsPath(projectDir), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(projectDir); err == nil {
		t.Fatalf("expected invalid log level to be rejected")
	}
}
