package config

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/kingrea/dfxcore/internal/dfxerr"
)

// CheckToolVersion compares the manifest's dfx pin with the running tool.
// The pin may be an exact version or a constraint such as ">=0.9, <0.10".
// A nil error means no pin or a satisfied pin.
func (ci *ConfigInterface) CheckToolVersion(running string) error {
	if ci == nil || ci.Dfx == "" {
		return nil
	}
	current, err := semver.NewVersion(running)
	if err != nil {
		return fmt.Errorf("config: tool version %q: %w", running, err)
	}
	if pinned, err := semver.StrictNewVersion(ci.Dfx); err == nil {
		if !current.Equal(pinned) {
			return fmt.Errorf("config: project pins dfx %s but the running version is %s", pinned, current)
		}
		return nil
	}
	constraint, err := semver.NewConstraint(ci.Dfx)
	if err != nil {
		return dfxerr.Config("dfx version %q is neither a version nor a constraint", ci.Dfx)
	}
	if ok, errs := constraint.Validate(current); !ok {
		return fmt.Errorf("config: running dfx %s does not satisfy %q: %v", current, ci.Dfx, errs)
	}
	return nil
}
