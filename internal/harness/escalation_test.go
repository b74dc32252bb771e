package harness_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynbind/internal/comm"
	"github.com/san-kum/dynbind/internal/dynamo"
	"github.com/san-kum/dynbind/internal/harness"
	"github.com/san-kum/dynbind/internal/md"
	"github.com/san-kum/dynbind/internal/physics"
	"github.com/san-kum/dynbind/internal/sim"
)

// simulate attaches an integrator on this rank and runs a few steps.
// Attaching is collective across the group.
func simulate(ctx context.Context, c comm.Communicator) error {
	sc, err := sim.NewContext(&sim.StateDef{
		Model: physics.NewSpringChain(2),
		X:     dynamo.State{0.1, 0, 0, 0.5},
	}, nil, c)
	if err != nil {
		return err
	}
	integ, err := md.NewIntegrator(0.005, md.NewNVE())
	if err != nil {
		return err
	}
	s := sim.New(sc)
	if err := s.SetIntegrator(integ); err != nil {
		return err
	}
	return s.Run(ctx, 10)
}

var _ = Describe("Four-rank group", func() {
	var g *comm.Group

	BeforeEach(func() {
		var err error
		g, err = comm.NewGroup(4)
		Expect(err).NotTo(HaveOccurred())
	})

	run := func(body func(ctx context.Context, c comm.Communicator) error) []int {
		done := make(chan []int, 1)
		go func() {
			defer GinkgoRecover()
			done <- g.Run(context.Background(), func(ctx context.Context, c comm.Communicator) int {
				s := harness.NewSession(harness.WithRuntime(g.Runtime(), c))
				return s.Run(ctx, func(ctx context.Context) error { return body(ctx, c) })
			})
		}()

		var status []int
		Eventually(done, 5*time.Second).Should(Receive(&status), "a rank hung")
		return status
	}

	It("skips serial tests on every rank", func() {
		skipped := make(chan bool, 4)
		status := run(func(ctx context.Context, c comm.Communicator) error {
			skip, _ := harness.SkipSerial([]string{harness.MarkerSerial}, c.NumRanks())
			skipped <- skip
			return nil
		})

		Expect(status).To(Equal([]int{0, 0, 0, 0}))
		for i := 0; i < 4; i++ {
			Expect(<-skipped).To(BeTrue())
		}
	})

	It("completes when every rank succeeds", func() {
		status := run(simulate)
		Expect(status).To(Equal([]int{0, 0, 0, 0}))
		_, aborted := g.AbortCode()
		Expect(aborted).To(BeFalse())
	})

	It("terminates every rank with the failing status when rank 2 fails", func() {
		failure := &rankFailure{code: 3}
		status := run(func(ctx context.Context, c comm.Communicator) error {
			if c.Rank() == 2 {
				return failure
			}
			return simulate(ctx, c)
		})

		Expect(status).To(Equal([]int{3, 3, 3, 3}))
		code, aborted := g.AbortCode()
		Expect(aborted).To(BeTrue())
		Expect(code).To(Equal(3))
	})

	It("reports the abort to peers blocked in attach", func() {
		errs := make(chan error, 3)
		run(func(ctx context.Context, c comm.Communicator) error {
			if c.Rank() == 2 {
				return errors.New("assertion failed")
			}
			err := simulate(ctx, c)
			errs <- err
			return err
		})

		for i := 0; i < 3; i++ {
			var err error
			Eventually(errs).Should(Receive(&err))
			Expect(err).To(MatchError(comm.ErrAborted))
			Expect(harness.StatusOf(err)).To(Equal(1))
		}
	})
})

type rankFailure struct{ code int }

func (f *rankFailure) Error() string { return "rank failed" }
func (f *rankFailure) ExitCode() int { return f.code }
