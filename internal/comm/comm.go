// Package comm defines the process-group interfaces consumed by control
// objects and the test harness, plus two reference runtimes: a single-rank
// runtime for serial runs and an in-process rank group that emulates a
// distributed job with one goroutine per rank.
package comm

import (
	"context"
	"errors"
	"fmt"
)

// ErrAborted matches any *AbortError.
var ErrAborted = errors.New("comm: process group aborted")

// AbortError is returned from collective calls interrupted by a group abort.
type AbortError struct {
	Code int
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("comm: process group aborted with code %d", e.Code)
}

func (e *AbortError) Is(target error) bool { return target == ErrAborted }

// ExitCode is the status every rank of an aborted group terminates with.
func (e *AbortError) ExitCode() int { return e.Code }

// Communicator is one rank's view of a process group.
type Communicator interface {
	Rank() int
	NumRanks() int

	// Barrier blocks until every rank has entered it or the group aborts.
	Barrier(ctx context.Context) error
}

// Runtime is the distributed runtime beneath communicators.
type Runtime interface {
	Available() bool

	// Abort terminates every rank sharing c with code. It does not wait
	// for acknowledgement.
	Abort(c Communicator, code int)
}

type single struct{}

// Single returns the communicator of a one-rank job.
func Single() Communicator { return single{} }

func (single) Rank() int                         { return 0 }
func (single) NumRanks() int                     { return 1 }
func (single) Barrier(ctx context.Context) error { return ctx.Err() }

type unavailable struct{}

// Unavailable is the runtime of a build without distributed support.
func Unavailable() Runtime { return unavailable{} }

func (unavailable) Available() bool         { return false }
func (unavailable) Abort(Communicator, int) {}
