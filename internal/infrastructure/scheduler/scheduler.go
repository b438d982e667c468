// Package scheduler provides the delayed-callback primitives used by the
// switch transition: a wall-clock scheduler and a manually advanced one.
package scheduler

import (
	"time"

	"github.com/dualfolio/dualfolio/internal/application/ports"
)

// Ensure interface compliance
var (
	_ ports.Scheduler = Real{}
	_ ports.Clock     = Real{}
)

// Real schedules callbacks on the runtime timer heap.
type Real struct{}

// AfterFunc runs f in its own goroutine after d.
func (Real) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, f)
}

// Now returns the wall clock time.
func (Real) Now() time.Time {
	return time.Now()
}
