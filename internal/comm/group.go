package comm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Group is an in-process process group: every rank runs on its own
// goroutine and shares collective state with its peers. It stands in for a
// distributed job in tests and in the CLI's group command.
type Group struct {
	size int

	mu      sync.Mutex
	arrived int
	release chan struct{}

	aborted   chan struct{}
	abortOnce sync.Once
	code      int
}

func NewGroup(size int) (*Group, error) {
	if size < 1 {
		return nil, fmt.Errorf("comm: group size must be positive, got %d", size)
	}
	return &Group{
		size:    size,
		release: make(chan struct{}),
		aborted: make(chan struct{}),
	}, nil
}

func (g *Group) Size() int { return g.size }

// Comm returns the communicator of rank.
func (g *Group) Comm(rank int) Communicator {
	if rank < 0 || rank >= g.size {
		panic(fmt.Sprintf("comm: rank %d out of range [0, %d)", rank, g.size))
	}
	return &member{group: g, rank: rank}
}

// Runtime returns the distributed runtime driving this group.
func (g *Group) Runtime() Runtime { return groupRuntime{group: g} }

// Aborted is closed once the group has been aborted.
func (g *Group) Aborted() <-chan struct{} { return g.aborted }

// AbortCode returns the code passed to the first abort.
func (g *Group) AbortCode() (int, bool) {
	select {
	case <-g.aborted:
		return g.code, true
	default:
		return 0, false
	}
}

func (g *Group) abort(code int) {
	g.abortOnce.Do(func() {
		g.code = code
		close(g.aborted)
	})
}

func (g *Group) barrier(ctx context.Context) error {
	g.mu.Lock()
	select {
	case <-g.aborted:
		g.mu.Unlock()
		return &AbortError{Code: g.code}
	default:
	}
	release := g.release
	g.arrived++
	if g.arrived == g.size {
		g.arrived = 0
		close(g.release)
		g.release = make(chan struct{})
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	select {
	case <-release:
		return nil
	case <-g.aborted:
		return &AbortError{Code: g.code}
	case <-ctx.Done():
		select {
		case <-g.aborted:
			return &AbortError{Code: g.code}
		default:
			return ctx.Err()
		}
	}
}

// RankFunc is the body of one rank. It returns the rank's exit status.
type RankFunc func(ctx context.Context, c Communicator) int

// Run starts every rank and waits for all of them. The context handed to
// ranks is cancelled when the group aborts; once aborted, every rank
// reports the abort code as its exit status, as a real runtime would when
// it kills the job.
func (g *Group) Run(ctx context.Context, fn RankFunc) []int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-g.aborted:
			cancel()
		case <-ctx.Done():
		}
	}()

	status := make([]int, g.size)
	var eg errgroup.Group
	for rank := 0; rank < g.size; rank++ {
		eg.Go(func() error {
			status[rank] = fn(ctx, g.Comm(rank))
			return nil
		})
	}
	_ = eg.Wait()

	if code, ok := g.AbortCode(); ok {
		for i := range status {
			status[i] = code
		}
	}
	return status
}

type member struct {
	group *Group
	rank  int
}

func (m *member) Rank() int                         { return m.rank }
func (m *member) NumRanks() int                     { return m.group.size }
func (m *member) Barrier(ctx context.Context) error { return m.group.barrier(ctx) }

type groupRuntime struct {
	group *Group
}

func (r groupRuntime) Available() bool { return true }

func (r groupRuntime) Abort(c Communicator, code int) {
	if m, ok := c.(*member); ok && m.group != r.group {
		m.group.abort(code)
		return
	}
	r.group.abort(code)
}
