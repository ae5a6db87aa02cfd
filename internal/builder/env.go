package builder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kingrea/dfxcore/internal/canister"
	"github.com/kingrea/dfxcore/internal/dfxerr"
	"github.com/kingrea/dfxcore/internal/principal"
)

// DependencyIDs resolves the canister's "dependencies" list to ids.
func DependencyIDs(pool Pool, info *canister.Info) ([]principal.ID, error) {
	names, err := info.Dependencies()
	if err != nil {
		return nil, fmt.Errorf("failed to collect dependencies (canister ids) of canister %s: %w", info.Name(), err)
	}
	ids := make([]principal.ID, 0, len(names))
	for _, name := range names {
		id, _, ok := pool.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("failed to collect dependencies (canister ids) of canister %s: %w", info.Name(),
				dfxerr.NotFound("A canister with the name '%s' was not found in the current project.", name))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// EnvironmentVariables returns KEY=VALUE pairs for build commands: the
// network, every pool canister's id, and the candid path of each built
// dependency.
func EnvironmentVariables(pool Pool, info *canister.Info, cfg Config, deps []principal.ID) []string {
	vars := []string{"DFX_NETWORK=" + cfg.NetworkName}
	if cfg.ToolVersion != "" {
		vars = append(vars, "DFX_VERSION="+cfg.ToolVersion)
	}

	canisters := pool.Canisters()
	sort.Slice(canisters, func(i, j int) bool { return canisters[i].Name() < canisters[j].Name() })
	for _, c := range canisters {
		id, ok := c.CanisterID()
		if !ok {
			continue
		}
		key := EnvName(c.Name())
		vars = append(vars,
			fmt.Sprintf("CANISTER_ID_%s=%s", key, id),
			fmt.Sprintf("%s_CANISTER_ID=%s", key, id),
		)
	}

	for _, dep := range deps {
		for _, c := range canisters {
			id, ok := c.CanisterID()
			if !ok || !id.Equal(dep) {
				continue
			}
			if out, ok := pool.BuildOutput(c.Name()); ok && out.IDLPath != "" {
				vars = append(vars, fmt.Sprintf("CANISTER_CANDID_PATH_%s=%s", EnvName(c.Name()), out.IDLPath))
			}
		}
	}
	return vars
}

// EnvName turns a canister name into an environment variable fragment.
func EnvName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
