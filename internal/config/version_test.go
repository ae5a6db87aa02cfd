package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kingrea/dfxcore/internal/dfxerr"
)

func TestCheckToolVersion(t *testing.T) {
	cases := []struct {
		pin     string
		running string
		ok      bool
	}{
		{"", "0.9.2", true},
		{"0.9.2", "0.9.2", true},
		{"0.9.2", "0.9.3", false},
		{">=0.9, <0.10", "0.9.3", true},
		{">=0.9, <0.10", "0.10.0", false},
	}
	for _, tc := range cases {
		ci := &ConfigInterface{Dfx: tc.pin}
		err := ci.CheckToolVersion(tc.running)
		if tc.ok {
			assert.NoError(t, err, "%s vs %s", tc.pin, tc.running)
		} else {
			assert.Error(t, err, "%s vs %s", tc.pin, tc.running)
		}
	}

	ci := &ConfigInterface{Dfx: "not a version"}
	assert.ErrorIs(t, ci.CheckToolVersion("0.9.2"), dfxerr.ErrConfig)
}
