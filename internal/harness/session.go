// Package harness holds the process-wide test session: markers, the quiet
// output counter, teardown actions, and escalation of a failed rank into a
// group-wide abort.
package harness

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/san-kum/dynbind/internal/comm"
	"github.com/san-kum/dynbind/internal/ctxlog"
)

const (
	MarkerSerial     = "serial"
	MarkerValidation = "validation"
)

// Session lives from session start to Close. One session exists per
// process (per rank in an in-process group).
type Session struct {
	logger  *slog.Logger
	runtime comm.Runtime
	comm    comm.Communicator

	mu       sync.Mutex
	markers  map[string]string
	quiet    int
	teardown []func()
	abort    func()
	closed   bool
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithRuntime binds the session to a distributed runtime and the
// communicator shared with peer ranks.
func WithRuntime(rt comm.Runtime, c comm.Communicator) Option {
	return func(s *Session) {
		s.runtime = rt
		s.comm = c
	}
}

func NewSession(opts ...Option) *Session {
	s := &Session{
		logger:  ctxlog.FromContext(context.Background()),
		runtime: comm.Unavailable(),
		comm:    comm.Single(),
		markers: map[string]string{
			MarkerSerial:     "tests that run only with a single rank",
			MarkerValidation: "long running tests that validate physics",
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Logger() *slog.Logger    { return s.logger }
func (s *Session) Comm() comm.Communicator { return s.comm }
func (s *Session) Runtime() comm.Runtime   { return s.runtime }
func (s *Session) NumRanks() int           { return s.comm.NumRanks() }

// RegisterMarker adds or redescribes a marker.
func (s *Session) RegisterMarker(name, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[name] = description
}

func (s *Session) Marker(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.markers[name]
	return d, ok
}

// Markers returns the registered marker names, sorted.
func (s *Session) Markers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.markers))
	for name := range s.markers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Quiet suppresses notices until a matching Unquiet. Calls nest.
func (s *Session) Quiet() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quiet++
}

func (s *Session) Unquiet() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quiet > 0 {
		s.quiet--
	}
}

func (s *Session) IsQuiet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiet > 0
}

// Notice logs at info level unless the session is quiet.
func (s *Session) Notice(msg string, args ...any) {
	if !s.IsQuiet() {
		s.logger.Info(msg, args...)
	}
}

// AddTeardown registers fn to run at Close. Actions run in reverse order.
func (s *Session) AddTeardown(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown = append(s.teardown, fn)
}

// Finish records the session's exit status. A non-zero status under an
// available runtime schedules an abort of every rank sharing the
// communicator, passing status as the abort code. The abort runs at Close
// after all other teardown.
func (s *Session) Finish(status int) {
	if status == 0 || !s.runtime.Available() {
		return
	}
	s.logger.Error("session failed, aborting process group",
		"rank", s.comm.Rank(), "ranks", s.comm.NumRanks(), "status", status)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.abort = func() { s.runtime.Abort(s.comm, status) }
}

// Close runs teardown actions last-in first-out, then the scheduled
// abort if any. Only the first call has an effect.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	teardown := s.teardown
	abort := s.abort
	s.teardown = nil
	s.mu.Unlock()

	for i := len(teardown) - 1; i >= 0; i-- {
		teardown[i]()
	}
	if abort != nil {
		abort()
	}
}
