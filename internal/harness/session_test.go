package harness_test

import (
	"bytes"
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynbind/internal/comm"
	"github.com/san-kum/dynbind/internal/ctxlog"
	"github.com/san-kum/dynbind/internal/harness"
)

type recordingRuntime struct {
	available bool
	log       *[]string
	codes     []int
}

func (r *recordingRuntime) Available() bool { return r.available }

func (r *recordingRuntime) Abort(c comm.Communicator, code int) {
	*r.log = append(*r.log, "abort")
	r.codes = append(r.codes, code)
}

var _ = Describe("Session", func() {
	var (
		order []string
		rt    *recordingRuntime
		s     *harness.Session
	)

	BeforeEach(func() {
		order = nil
		rt = &recordingRuntime{available: true, log: &order}
		s = harness.NewSession(harness.WithRuntime(rt, comm.Single()))
	})

	It("registers the serial and validation markers", func() {
		Expect(s.Markers()).To(Equal([]string{"serial", "validation"}))
		desc, ok := s.Marker(harness.MarkerSerial)
		Expect(ok).To(BeTrue())
		Expect(desc).NotTo(BeEmpty())

		s.RegisterMarker("gpu", "needs a device")
		Expect(s.Markers()).To(ContainElement("gpu"))
	})

	It("nests quiet sections", func() {
		var buf bytes.Buffer
		s = harness.NewSession(harness.WithLogger(ctxlog.New("info", "text", &buf)))

		s.Quiet()
		s.Quiet()
		s.Unquiet()
		Expect(s.IsQuiet()).To(BeTrue())
		s.Notice("hidden")

		s.Unquiet()
		s.Unquiet()
		Expect(s.IsQuiet()).To(BeFalse())
		s.Notice("shown")

		Expect(buf.String()).NotTo(ContainSubstring("hidden"))
		Expect(buf.String()).To(ContainSubstring("shown"))
	})

	It("does not abort after a clean session", func() {
		s.Finish(0)
		s.Close()
		Expect(rt.codes).To(BeEmpty())
	})

	It("does not abort without a distributed runtime", func() {
		rt.available = false
		s.Finish(2)
		s.Close()
		Expect(rt.codes).To(BeEmpty())
	})

	It("aborts with the session status after every other teardown", func() {
		s.AddTeardown(func() { order = append(order, "first") })
		s.Finish(5)
		s.AddTeardown(func() { order = append(order, "second") })

		Expect(rt.codes).To(BeEmpty())
		s.Close()
		Expect(order).To(Equal([]string{"second", "first", "abort"}))
		Expect(rt.codes).To(Equal([]int{5}))

		s.Close()
		Expect(rt.codes).To(HaveLen(1))
	})

	It("fails the session on an error or a panic", func() {
		Expect(s.Run(context.Background(), func(context.Context) error { return nil })).To(Equal(0))

		s = harness.NewSession(harness.WithRuntime(rt, comm.Single()))
		Expect(s.Run(context.Background(), func(context.Context) error { panic("boom") })).To(Equal(1))
		Expect(rt.codes).To(Equal([]int{1}))
	})

	It("keeps the exit code carried by an error", func() {
		err := errors.Join(errors.New("collective failed"), &comm.AbortError{Code: 4})
		Expect(harness.StatusOf(err)).To(Equal(4))
		Expect(harness.StatusOf(errors.New("plain"))).To(Equal(1))
		Expect(harness.StatusOf(nil)).To(Equal(0))
	})
})

var _ = Describe("SkipSerial", func() {
	DescribeTable("decides from markers and group size",
		func(markers []string, ranks int, skip bool) {
			got, reason := harness.SkipSerial(markers, ranks)
			Expect(got).To(Equal(skip))
			if skip {
				Expect(reason).To(ContainSubstring("serial"))
			}
		},
		Entry("serial, one rank", []string{"serial"}, 1, false),
		Entry("serial, four ranks", []string{"serial"}, 4, true),
		Entry("unmarked, four ranks", []string{"validation"}, 4, false),
		Entry("no markers", nil, 2, false),
	)

	It("runs a serial test on a single rank", harness.Serial, func() {
		harness.SkipIfSerial(1)
		Expect(CurrentSpecReport().Labels()).To(ContainElement("serial"))
	})

	It("skips a serial test with four ranks", harness.Serial, func() {
		harness.SkipIfSerial(4)
		Fail("serial test ran with four ranks")
	})

	It("runs unmarked tests with four ranks", func() {
		harness.SkipIfSerial(4)
	})
})
