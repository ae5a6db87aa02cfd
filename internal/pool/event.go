package pool

import (
	"time"

	"github.com/kingrea/dfxcore/internal/builder"
)

// Stage enumerates the steps a canister passes through during Build.
type Stage string

const (
	StageDependencies Stage = "dependencies"
	StageBuild        Stage = "build"
	StagePostbuild    Stage = "postbuild"
	StageGenerate     Stage = "generate"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
	StageSkipped      Stage = "skipped"
)

// Terminal reports whether no further events follow for the canister.
func (s Stage) Terminal() bool {
	switch s {
	case StageDone, StageFailed, StageSkipped:
		return true
	}
	return false
}

// Event reports progress for one canister.
type Event struct {
	Canister string
	Stage    Stage
	// Reason explains a skip.
	Reason string
	Err    error
	Output builder.Output
	At     time.Time
}

// Observer receives events synchronously from Build.
type Observer func(Event)
