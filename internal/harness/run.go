package harness

import (
	"context"
	"errors"
	"fmt"
)

// ExitCoder is an error carrying its own exit status.
type ExitCoder interface {
	ExitCode() int
}

// StatusOf maps an error to an exit status: 0 for nil, the code of an
// ExitCoder, 1 otherwise.
func StatusOf(err error) int {
	if err == nil {
		return 0
	}
	var ec ExitCoder
	if errors.As(err, &ec) && ec.ExitCode() != 0 {
		return ec.ExitCode()
	}
	return 1
}

// Run executes body as the whole session: a returned error or a panic
// fails it, Finish and Close run regardless, and the exit status is
// returned.
func (s *Session) Run(ctx context.Context, body func(ctx context.Context) error) (status int) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("uncaught panic", "rank", s.comm.Rank(), "panic", fmt.Sprint(r))
			status = 1
		}
		s.Finish(status)
		s.Close()
	}()

	err := body(ctx)
	if err != nil {
		s.logger.Error("session body failed", "rank", s.comm.Rank(), "err", err)
	}
	return StatusOf(err)
}
