package comm_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynbind/internal/comm"
)

var _ = Describe("Single", func() {
	It("is a one-rank group without a distributed runtime", func() {
		c := comm.Single()
		Expect(c.Rank()).To(Equal(0))
		Expect(c.NumRanks()).To(Equal(1))
		Expect(c.Barrier(context.Background())).To(Succeed())
		Expect(comm.Unavailable().Available()).To(BeFalse())
	})
})

var _ = Describe("Group", func() {
	It("rejects empty groups", func() {
		_, err := comm.NewGroup(0)
		Expect(err).To(HaveOccurred())
	})

	It("releases a barrier once every rank arrives", func() {
		g, err := comm.NewGroup(4)
		Expect(err).NotTo(HaveOccurred())

		status := g.Run(context.Background(), func(ctx context.Context, c comm.Communicator) int {
			defer GinkgoRecover()
			Expect(c.NumRanks()).To(Equal(4))
			for i := 0; i < 3; i++ {
				if err := c.Barrier(ctx); err != nil {
					return 1
				}
			}
			return 0
		})

		Expect(status).To(Equal([]int{0, 0, 0, 0}))
		_, aborted := g.AbortCode()
		Expect(aborted).To(BeFalse())
	})

	It("unblocks peers waiting in a collective when one rank aborts", func() {
		g, err := comm.NewGroup(4)
		Expect(err).NotTo(HaveOccurred())

		done := make(chan []int)
		go func() {
			defer GinkgoRecover()
			done <- g.Run(context.Background(), func(ctx context.Context, c comm.Communicator) int {
				defer GinkgoRecover()
				if c.Rank() == 2 {
					g.Runtime().Abort(c, 3)
					return 3
				}
				err := c.Barrier(ctx)
				Expect(errors.Is(err, comm.ErrAborted)).To(BeTrue())
				return 0
			})
		}()

		var status []int
		Eventually(done, 2*time.Second).Should(Receive(&status))
		Expect(status).To(Equal([]int{3, 3, 3, 3}))

		code, aborted := g.AbortCode()
		Expect(aborted).To(BeTrue())
		Expect(code).To(Equal(3))
	})

	It("keeps the first abort code", func() {
		g, err := comm.NewGroup(2)
		Expect(err).NotTo(HaveOccurred())

		rt := g.Runtime()
		Expect(rt.Available()).To(BeTrue())
		rt.Abort(g.Comm(0), 5)
		rt.Abort(g.Comm(1), 9)

		code, _ := g.AbortCode()
		Expect(code).To(Equal(5))
		Eventually(g.Aborted()).Should(BeClosed())
		Expect(g.Comm(1).Barrier(context.Background())).To(MatchError(comm.ErrAborted))
	})

	It("cancels the rank context on abort", func() {
		g, err := comm.NewGroup(2)
		Expect(err).NotTo(HaveOccurred())

		status := g.Run(context.Background(), func(ctx context.Context, c comm.Communicator) int {
			if c.Rank() == 0 {
				g.Runtime().Abort(c, 7)
				return 7
			}
			<-ctx.Done()
			return 0
		})
		Expect(status).To(Equal([]int{7, 7}))
	})
})
