// internal/config/settings.go
//
// Per-project tool settings. Every project gets a .dfx/ folder; the optional
// settings.yaml inside it tunes logging, the frontend build and the default
// network without touching dfx.json.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	// ProjectDir is the name of the state directory we create in each project
	ProjectDir = ".dfx"

	settingsFile = "settings.yaml"

	defaultNetwork = "local"
)

const defaultSettingsYAML = `# dfxcore project settings
version: 1

log:
  # trace, debug, info, warn or error
  level: info
  # append structured logs to .dfx/logs/dfx.log
  file: true

# Command run in the project root to build frontend assets when package.json exists.
frontend:
  command: [npm, run, build]

# Network used when --network is not given.
network: local
`

// LogSettings controls the logger.
type LogSettings struct {
	Level string `yaml:"level"`
	File  *bool  `yaml:"file"`
}

// FrontendSettings controls the asset canister frontend build.
type FrontendSettings struct {
	Command []string `yaml:"command"`
}

// Settings models .dfx/settings.yaml.
type Settings struct {
	Version  int              `yaml:"version"`
	Log      LogSettings      `yaml:"log"`
	Frontend FrontendSettings `yaml:"frontend"`
	Network  string           `yaml:"network"`
}

// InitProjectDir creates the .dfx directory structure in the given project directory.
//
// Structure created:
// .dfx/
// ├── logs/          <- dfx.log
// ├── builders/      <- builder plugins (yaml or Go)
// └── settings.yaml
func InitProjectDir(projectDir string) error {
	root := filepath.Join(projectDir, ProjectDir)
	dirs := []string{
		filepath.Join(root, "logs"),
		filepath.Join(root, "builders"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return ensureSettings(filepath.Join(root, settingsFile))
}

// SettingsPath returns the on-disk location of the settings file.
func SettingsPath(projectDir string) string {
	return filepath.Join(projectDir, ProjectDir, settingsFile)
}

// LoadSettings reads .dfx/settings.yaml, returning defaults when it is missing.
func LoadSettings(projectDir string) (Settings, error) {
	path := SettingsPath(projectDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed Settings
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return Settings{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return parsed, nil
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	s := Settings{}
	s.applyDefaults()
	return s
}

// LogToFile reports whether the file log is enabled.
func (s Settings) LogToFile() bool {
	return s.Log.File == nil || *s.Log.File
}

func (s *Settings) applyDefaults() {
	if s.Version == 0 {
		s.Version = 1
	}
	if s.Log.Level == "" {
		s.Log.Level = zerolog.InfoLevel.String()
	}
	if len(s.Frontend.Command) == 0 {
		s.Frontend.Command = []string{"npm", "run", "build"}
	}
	if s.Network == "" {
		s.Network = defaultNetwork
	}
}

func (s *Settings) normalize() {
	s.Log.Level = strings.ToLower(strings.TrimSpace(s.Log.Level))
	s.Network = strings.TrimSpace(s.Network)
	command := s.Frontend.Command[:0]
	for _, part := range s.Frontend.Command {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			command = append(command, trimmed)
		}
	}
	s.Frontend.Command = command
}

func (s *Settings) validate() error {
	if s.Version < 1 {
		return fmt.Errorf("settings version must be >= 1")
	}
	if _, err := zerolog.ParseLevel(s.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if len(s.Frontend.Command) == 0 {
		return fmt.Errorf("frontend.command must not be empty")
	}
	if s.Network == "" {
		return fmt.Errorf("network is required")
	}
	return nil
}

func ensureSettings(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultSettingsYAML), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
