// Package canisterid keeps the name -> network -> id mapping for a project.
//
// Ids come from two places. Remote ids are declared in dfx.json and are
// read-only; local ids are created by the tool and persisted to a JSON file
// whose location depends on the network's durability. Remote ids shadow
// local ones.
package canisterid

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/kingrea/dfxcore/internal/config"
	"github.com/kingrea/dfxcore/internal/dfxerr"
	"github.com/kingrea/dfxcore/internal/network"
	"github.com/kingrea/dfxcore/internal/principal"
)

// FileName is the local id file name.
const FileName = "canister_ids.json"

// CanisterIDs maps canister name -> network name -> textual id.
type CanisterIDs map[string]map[string]string

// Env is the slice of the environment the store needs.
type Env interface {
	NetworkDescriptor() network.Descriptor
	Config() *config.Config
	ProjectRoot() string
}

// Store is the id table for one network.
type Store struct {
	network   network.Descriptor
	path      string
	ids       CanisterIDs
	remoteIDs CanisterIDs
}

// ForEnv opens the store for the environment's network.
func ForEnv(env Env) (*Store, error) {
	return ForNetwork(env.NetworkDescriptor(), env.Config(), env.ProjectRoot())
}

// ForNetwork opens the store for desc. cfg may be nil when there is no
// manifest, in which case there are no remote ids.
func ForNetwork(desc network.Descriptor, cfg *config.Config, projectRoot string) (*Store, error) {
	path := Path(desc, projectRoot)
	ids, err := load(path)
	if err != nil {
		return nil, err
	}
	var remote CanisterIDs
	if cfg != nil {
		remote = RemoteIDs(cfg.Interface())
	}
	return &Store{network: desc, path: path, ids: ids, remoteIDs: remote}, nil
}

// Path returns where local ids for desc are kept: next to the manifest for
// persistent networks, under .dfx/<network> for ephemeral ones.
func Path(desc network.Descriptor, projectRoot string) string {
	if desc.IsEphemeral() {
		return filepath.Join(projectRoot, config.ProjectDir, desc.Name, FileName)
	}
	return filepath.Join(projectRoot, FileName)
}

// RemoteIDs collects every remote id declared in the manifest. It returns
// nil, not an empty table, when no canister declares any.
func RemoteIDs(cfg *config.ConfigInterface) CanisterIDs {
	var remote CanisterIDs
	for _, name := range cfg.CanisterNames() {
		can, _ := cfg.Canisters.Get(name)
		if can == nil || can.Remote == nil {
			continue
		}
		for networkName, id := range can.Remote.ID {
			if remote == nil {
				remote = CanisterIDs{}
			}
			if remote[name] == nil {
				remote[name] = map[string]string{}
			}
			remote[name][networkName] = id
		}
	}
	return remote
}

// Path returns the local id file location.
func (s *Store) Path() string { return s.path }

// Network returns the descriptor the store was opened for.
func (s *Store) Network() network.Descriptor { return s.network }

// Find returns the id for name on this network. Remote ids win. Stored
// values that are not valid principals are treated as absent.
func (s *Store) Find(name string) (principal.ID, bool) {
	if text, ok := lookup(s.remoteIDs, name, s.network.Name); ok {
		if id, err := principal.FromText(text); err == nil {
			return id, true
		}
	}
	if text, ok := lookup(s.ids, name, s.network.Name); ok {
		if id, err := principal.FromText(text); err == nil {
			return id, true
		}
	}
	return principal.ID{}, false
}

// NameFor is the reverse lookup. When several canisters carry the same id
// the alphabetically first name wins; remote ids are checked first.
func (s *Store) NameFor(id string) (string, bool) {
	for _, table := range []CanisterIDs{s.remoteIDs, s.ids} {
		names := make([]string, 0, len(table))
		for name := range table {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if table[name][s.network.Name] == id {
				return name, true
			}
		}
	}
	return "", false
}

// Get is Find that fails with the command needed to create the canister.
func (s *Store) Get(name string) (principal.ID, error) {
	if id, ok := s.Find(name); ok {
		return id, nil
	}
	networkFlag := ""
	if s.network.Name != network.Local {
		networkFlag = fmt.Sprintf("--network %s ", s.network.Name)
	}
	return principal.ID{}, dfxerr.NotFound("Cannot find canister id. Please issue 'dfx canister %screate %s'.", networkFlag, name)
}

// Add records a locally created id and persists the table.
func (s *Store) Add(name, id string) error {
	if _, err := principal.FromText(id); err != nil {
		return fmt.Errorf("canisterid: add %s: %w", name, err)
	}
	if s.ids[name] == nil {
		s.ids[name] = map[string]string{}
	}
	s.ids[name][s.network.Name] = id
	return s.save()
}

// Remove forgets the local id for name on this network and persists the table.
func (s *Store) Remove(name string) error {
	if entry, ok := s.ids[name]; ok {
		delete(entry, s.network.Name)
	}
	return s.save()
}

// IDs returns a copy of the local table.
func (s *Store) IDs() CanisterIDs {
	out := make(CanisterIDs, len(s.ids))
	for name, byNetwork := range s.ids {
		inner := make(map[string]string, len(byNetwork))
		for k, v := range byNetwork {
			inner[k] = v
		}
		out[name] = inner
	}
	return out
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("canisterid: create %s: %w", filepath.Dir(s.path), err)
	}
	data, err := json.MarshalIndent(s.ids, "", "  ")
	if err != nil {
		return fmt.Errorf("canisterid: encode %s: %w", s.path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("canisterid: write %s: %w", s.path, err)
	}
	return nil
}

func load(path string) (CanisterIDs, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return CanisterIDs{}, nil
		}
		return nil, fmt.Errorf("canisterid: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, dfxerr.Config("canisterid: %s is a directory, expected an id file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("canisterid: read %s: %w", path, err)
	}
	ids := CanisterIDs{}
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, dfxerr.Config("canisterid: parse %s: %v", path, err)
	}
	if ids == nil {
		ids = CanisterIDs{}
	}
	for name, byNetwork := range ids {
		if byNetwork == nil {
			ids[name] = map[string]string{}
		}
	}
	return ids, nil
}

func lookup(table CanisterIDs, name, networkName string) (string, bool) {
	if table == nil {
		return "", false
	}
	id, ok := table[name][networkName]
	return id, ok
}
