package control_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynbind/internal/conftree"
	"github.com/san-kum/dynbind/internal/control"
	"github.com/san-kum/dynbind/internal/dynamo"
	"github.com/san-kum/dynbind/internal/params"
	"github.com/san-kum/dynbind/internal/sim"
)

type line struct{}

func (line) Derive(x dynamo.State, t float64) dynamo.State { return dynamo.State{x[1], 0} }
func (line) StateDim() int                                 { return 2 }

type fakeHandle struct {
	applied  map[string]any
	reject   string
	released int
	vars     control.Variables
}

func (h *fakeHandle) SetParam(name string, v any) error {
	if name == h.reject {
		return errors.New("rejected by backend")
	}
	h.applied[name] = v
	return nil
}

func (h *fakeHandle) Release() error {
	h.released++
	return nil
}

type statefulHandle struct {
	fakeHandle
}

func (h *statefulHandle) Variables() control.Variables { return h.vars }

func (h *statefulHandle) SetVariables(v control.Variables) bool {
	if !v.Valid("thermo", 2) {
		return false
	}
	h.vars = v
	return true
}

func (h *statefulHandle) ResetVariables() {
	h.vars = control.Variables{Kind: "thermo", Values: []float64{0, 0}}
}

func newStateful() *statefulHandle {
	h := &statefulHandle{fakeHandle{applied: map[string]any{}}}
	h.ResetVariables()
	return h
}

var _ = Describe("Object", func() {
	var (
		ctx    context.Context
		sc     *sim.Context
		dict   *params.Dict
		built  []*fakeHandle
		buildE error
		obj    *control.Object
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		sc, err = sim.NewContext(&sim.StateDef{Model: line{}, X: dynamo.State{0, 1}}, nil, nil)
		Expect(err).NotTo(HaveOccurred())

		dict = params.MustNew(
			params.NewField("dt", params.Positive),
			params.NewField("aniso", params.AnisoMode, params.WithDefault(params.AnisoAuto)),
		)
		built = nil
		buildE = nil
		obj = control.New("integrator", dict, func(context.Context, *sim.Context) (control.Handle, error) {
			if buildE != nil {
				return nil, buildE
			}
			h := &fakeHandle{applied: map[string]any{}}
			built = append(built, h)
			return h, nil
		})
		Expect(obj.Set("dt", 0.005)).To(Succeed())
	})

	It("starts detached", func() {
		Expect(obj.State()).To(Equal(control.Detached))
		Expect(obj.State().String()).To(Equal("detached"))
		_, ok := obj.Handle()
		Expect(ok).To(BeFalse())
	})

	It("applies every set or defaulted field on attach", func() {
		Expect(obj.Attach(ctx, sc)).To(Succeed())
		Expect(obj.State()).To(Equal(control.Attached))
		Expect(built).To(HaveLen(1))
		Expect(built[0].applied).To(Equal(map[string]any{"dt": 0.005, "aniso": params.AnisoAuto}))
	})

	It("rejects a second attach and keeps the existing handle", func() {
		Expect(obj.Attach(ctx, sc)).To(Succeed())
		first, _ := obj.Handle()

		err := obj.Attach(ctx, sc)
		Expect(err).To(MatchError(control.ErrAlreadyAttached))
		Expect(err.Error()).To(ContainSubstring("integrator"))

		h, ok := obj.Handle()
		Expect(ok).To(BeTrue())
		Expect(h).To(BeIdenticalTo(first))
		Expect(built).To(HaveLen(1))
		Expect(built[0].released).To(BeZero())
	})

	It("rejects detach while detached", func() {
		Expect(obj.Detach()).To(MatchError(control.ErrNotAttached))
	})

	It("round-trips applied values across detach and attach", func() {
		Expect(obj.Attach(ctx, sc)).To(Succeed())
		Expect(obj.Set("aniso", "FALSE")).To(Succeed())
		Expect(obj.Detach()).To(Succeed())
		Expect(built[0].released).To(Equal(1))

		Expect(obj.Set("dt", 0.002)).To(Succeed())
		Expect(obj.Attach(ctx, sc)).To(Succeed())

		Expect(built).To(HaveLen(2))
		Expect(built[1].applied).To(Equal(map[string]any{"dt": 0.002, "aniso": params.AnisoFalse}))
	})

	It("stays detached when the backend cannot be built", func() {
		buildE = errors.New("no device")

		err := obj.Attach(ctx, sc)
		var bce *control.BackendConstructionError
		Expect(errors.As(err, &bce)).To(BeTrue())
		Expect(bce.Object).To(Equal("integrator"))
		Expect(errors.Unwrap(err)).To(BeIdenticalTo(buildE))
		Expect(obj.Attached()).To(BeFalse())

		buildE = nil
		Expect(obj.Attach(ctx, sc)).To(Succeed())
	})

	It("treats a missing handle as a construction failure", func() {
		obj = control.New("integrator", dict, func(context.Context, *sim.Context) (control.Handle, error) {
			return nil, nil
		})

		err := obj.Attach(ctx, sc)
		var bce *control.BackendConstructionError
		Expect(errors.As(err, &bce)).To(BeTrue())
		Expect(err).To(MatchError(control.ErrNoHandle))
		Expect(obj.Attached()).To(BeFalse())
	})

	It("releases the fresh handle when applying fails", func() {
		obj = control.New("integrator", dict, func(context.Context, *sim.Context) (control.Handle, error) {
			h := &fakeHandle{applied: map[string]any{}, reject: "aniso"}
			built = append(built, h)
			return h, nil
		})

		Expect(obj.Attach(ctx, sc)).NotTo(Succeed())
		Expect(obj.Attached()).To(BeFalse())
		Expect(built[0].released).To(Equal(1))
	})

	It("refuses to attach with required fields unset", func() {
		fresh := control.New("integrator", params.MustNew(params.NewField("dt", params.Positive)),
			func(context.Context, *sim.Context) (control.Handle, error) {
				Fail("backend must not be built")
				return nil, nil
			})

		err := fresh.Attach(ctx, sc)
		Expect(err).To(MatchError(params.ErrUnset))
		Expect(err.Error()).To(ContainSubstring("dt"))
	})

	Describe("writes", func() {
		It("keeps the old value on an invalid write", func() {
			Expect(obj.Attach(ctx, sc)).To(Succeed())
			Expect(obj.Set("aniso", true)).To(Succeed())

			Expect(obj.Set("aniso", "sometimes")).To(MatchError(params.ErrValidation))
			Expect(obj.Get("aniso")).To(Equal(params.AnisoTrue))
			Expect(built[0].applied["aniso"]).To(Equal(params.AnisoTrue))
		})

		It("forwards normalized values while attached", func() {
			Expect(obj.Attach(ctx, sc)).To(Succeed())
			Expect(obj.Set("dt", "0.01")).To(Succeed())
			Expect(built[0].applied["dt"]).To(Equal(0.01))
		})

		It("keeps the old value when the backend rejects a write", func() {
			Expect(obj.Attach(ctx, sc)).To(Succeed())
			built[0].reject = "dt"

			Expect(obj.Set("dt", 0.5)).NotTo(Succeed())
			Expect(obj.Get("dt")).To(Equal(0.005))
		})

		It("applies tree updates all-or-nothing", func() {
			Expect(obj.Attach(ctx, sc)).To(Succeed())
			built[0].reject = "aniso"

			update := conftree.New()
			update.Set("dt", 0.02)
			update.Set("aniso", "true")

			Expect(obj.Update(update)).NotTo(Succeed())
			Expect(obj.Get("dt")).To(Equal(0.005))
			Expect(built[0].applied["dt"]).To(Equal(0.005))

			built[0].reject = ""
			Expect(obj.Update(update)).To(Succeed())
			Expect(obj.Snapshot().ToMap()).To(Equal(map[string]any{"dt": 0.02, "aniso": params.AnisoTrue}))
		})

		It("restores defaulted fields after a rejected update", func() {
			Expect(obj.Attach(ctx, sc)).To(Succeed())
			built[0].reject = "dt"

			update := conftree.New()
			update.Set("aniso", "false")
			update.Set("dt", 0.02)

			Expect(obj.Update(update)).NotTo(Succeed())
			Expect(obj.IsSet("aniso")).To(BeFalse())
			Expect(obj.Get("aniso")).To(Equal(params.AnisoAuto))
			Expect(built[0].applied["aniso"]).To(Equal(params.AnisoAuto))
		})
	})

	Describe("internal state", func() {
		var handles []*statefulHandle

		BeforeEach(func() {
			handles = nil
			obj = control.New("thermostat", nil, func(context.Context, *sim.Context) (control.Handle, error) {
				h := newStateful()
				handles = append(handles, h)
				return h, nil
			})
		})

		It("carries variables across detach and attach", func() {
			Expect(obj.Attach(ctx, sc)).To(Succeed())
			handles[0].vars.Values = []float64{0.3, 1.2}
			Expect(obj.Detach()).To(Succeed())

			v, ok := obj.Variables()
			Expect(ok).To(BeTrue())
			Expect(v.Values).To(Equal([]float64{0.3, 1.2}))

			Expect(obj.Attach(ctx, sc)).To(Succeed())
			Expect(handles[1].vars.Values).To(Equal([]float64{0.3, 1.2}))
		})

		It("starts clean after a reset", func() {
			Expect(obj.Attach(ctx, sc)).To(Succeed())
			handles[0].vars.Values = []float64{0.3, 1.2}
			Expect(obj.Detach()).To(Succeed())

			obj.ResetInternalState()
			_, ok := obj.Variables()
			Expect(ok).To(BeFalse())

			Expect(obj.Attach(ctx, sc)).To(Succeed())
			Expect(handles[1].vars.Values).To(Equal([]float64{0, 0}))
		})

		It("resets the live handle", func() {
			Expect(obj.Attach(ctx, sc)).To(Succeed())
			handles[0].vars.Values = []float64{0.3, 1.2}

			obj.ResetInternalState()
			Expect(handles[0].vars.Values).To(Equal([]float64{0, 0}))
		})
	})
})

var _ = Describe("Variables", func() {
	It("checks kind and count", func() {
		v := control.Variables{Kind: "nvt", Values: []float64{1, 2}}
		Expect(v.Valid("nvt", 2)).To(BeTrue())
		Expect(v.Valid("nvt", 3)).To(BeFalse())
		Expect(v.Valid("npt", 2)).To(BeFalse())
	})

	It("clones values", func() {
		v := control.Variables{Kind: "nvt", Values: []float64{1, 2}}
		c := v.Clone()
		c.Values[0] = 9
		Expect(v.Values[0]).To(Equal(1.0))
	})
})
