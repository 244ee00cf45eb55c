// Package fault implements the Fault Decider (spec §4.5): given a
// resolved Snapshot, it decides which fault behaviors fire for this
// request and computes their parameters.
package fault

import (
	"math/rand/v2"
	"time"

	"github.com/CSroseX/lowdown/internal/settings"
)

// Decision is the set of fault behaviors chosen for a single request.
// Before/after refer to whether the behavior applies before or after
// the request would otherwise be forwarded upstream.
type Decision struct {
	DelayBefore time.Duration
	DelayAfter  time.Duration

	FailBefore     bool
	FailBeforeCode int

	FailAfter     bool
	FailAfterCode int

	Duplicate bool
}

// Decide draws independent activation rolls for each fault dimension
// in snap and returns the resulting Decision. Each percentage p is
// interpreted per spec §4.5: draw is uniform over [0, 99], and the
// behavior fires iff p > draw, so p=0 never fires and p=100 always
// fires.
//
// math/rand/v2's package-level functions are safe for concurrent use
// without an explicit mutex (unlike math/rand's default Source in Go
// versions before 1.22), so unlike a mutex-guarded *rand.Rand this
// decider carries no lock of its own.
func Decide(snap settings.Snapshot) Decision {
	var d Decision

	if activates(snap.Int(settings.DelayBeforePercentage)) {
		d.DelayBefore = time.Duration(snap.Int(settings.DelayBeforeMs)) * time.Millisecond
	}
	if activates(snap.Int(settings.DelayAfterPercentage)) {
		d.DelayAfter = time.Duration(snap.Int(settings.DelayAfterMs)) * time.Millisecond
	}
	if activates(snap.Int(settings.FailBeforePercentage)) {
		d.FailBefore = true
		d.FailBeforeCode = snap.Int(settings.FailBeforeCode)
	}
	if activates(snap.Int(settings.FailAfterPercentage)) {
		d.FailAfter = true
		d.FailAfterCode = snap.Int(settings.FailAfterCode)
	}
	if activates(snap.Int(settings.DuplicatePercentage)) {
		d.Duplicate = true
	}

	return d
}

func activates(percentage int) bool {
	if percentage <= 0 {
		return false
	}
	if percentage >= 100 {
		return true
	}
	draw := rand.IntN(100) // uniform over [0, 99]
	return percentage > draw
}
