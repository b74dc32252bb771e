package md_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynbind/internal/control"
	"github.com/san-kum/dynbind/internal/dynamo"
	"github.com/san-kum/dynbind/internal/engine"
	"github.com/san-kum/dynbind/internal/integrators"
	"github.com/san-kum/dynbind/internal/md"
	"github.com/san-kum/dynbind/internal/params"
	"github.com/san-kum/dynbind/internal/physics"
	"github.com/san-kum/dynbind/internal/sim"
)

func chain() *sim.Context {
	sc, err := sim.NewContext(&sim.StateDef{
		Model: physics.NewSpringChain(2),
		X:     dynamo.State{0.2, -0.1, 1.5, -1.0},
	}, nil, nil)
	Expect(err).NotTo(HaveOccurred())
	return sc
}

func pendulum() *sim.Context {
	sc, err := sim.NewContext(&sim.StateDef{Model: physics.NewPendulum(), X: dynamo.State{0.4, 0}}, nil, nil)
	Expect(err).NotTo(HaveOccurred())
	return sc
}

func twoStep(i *md.Integrator) *engine.TwoStep {
	h, ok := i.Handle()
	Expect(ok).To(BeTrue())
	return h.(*engine.TwoStep)
}

var _ = Describe("Integrator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("requires a positive timestep", func() {
		_, err := md.NewIntegrator(0)
		Expect(err).To(MatchError(params.ErrValidation))
	})

	It("defaults aniso to auto and pushes both fields on attach", func() {
		integ, err := md.NewIntegrator(0.005)
		Expect(err).NotTo(HaveOccurred())
		Expect(integ.Get("aniso")).To(Equal(params.AnisoAuto))

		Expect(integ.Attach(ctx, chain())).To(Succeed())
		ts := twoStep(integ)
		Expect(ts.Dt()).To(Equal(0.005))
		Expect(ts.Aniso()).To(Equal("auto"))
	})

	It("keeps its aniso mode on an invalid write", func() {
		integ, _ := md.NewIntegrator(0.005)
		Expect(integ.Set("aniso", false)).To(Succeed())
		Expect(integ.Set("aniso", "sometimes")).To(MatchError(params.ErrValidation))
		Expect(integ.Get("aniso")).To(Equal(params.AnisoFalse))
	})

	It("cannot step while detached", func() {
		integ, _ := md.NewIntegrator(0.005)
		Expect(integ.Step(ctx, 0)).To(MatchError(control.ErrNotAttached))
	})

	It("attaches and detaches its methods with it", func() {
		nve := md.NewNVE()
		integ, _ := md.NewIntegrator(0.005, nve)

		Expect(integ.Attach(ctx, chain())).To(Succeed())
		Expect(nve.Attached()).To(BeTrue())
		Expect(twoStep(integ).Method()).NotTo(BeNil())

		Expect(integ.Detach()).To(Succeed())
		Expect(nve.Attached()).To(BeFalse())
		Expect(integ.Attached()).To(BeFalse())
	})

	It("rolls back when its method cannot be built", func() {
		nvt, err := md.NewNVT(1.0, 0.5)
		Expect(err).NotTo(HaveOccurred())
		integ, _ := md.NewIntegrator(0.005, nvt)

		err = integ.Attach(ctx, pendulum())
		var bce *control.BackendConstructionError
		Expect(errors.As(err, &bce)).To(BeTrue())
		Expect(bce.Object).To(Equal("nvt"))
		Expect(err).To(MatchError(engine.ErrNotKinetic))

		Expect(integ.Attached()).To(BeFalse())
		Expect(nvt.Attached()).To(BeFalse())

		Expect(integ.Attach(ctx, chain())).To(Succeed())
		Expect(nvt.Attached()).To(BeTrue())
	})

	It("adds a method to a running integrator", func() {
		sc := chain()
		integ, _ := md.NewIntegrator(0.005)
		Expect(integ.Attach(ctx, sc)).To(Succeed())

		Expect(integ.AddMethod(ctx, sc, md.NewNVE())).To(Succeed())
		Expect(integ.Methods()).To(HaveLen(1))
		Expect(twoStep(integ).Method()).NotTo(BeNil())

		x0 := sc.State.X.Clone()
		Expect(integ.Step(ctx, 0)).To(Succeed())
		Expect(sc.State.X).NotTo(Equal(x0))
	})

	Describe("a single method per integrator", func() {
		It("refuses two methods at construction", func() {
			_, err := md.NewIntegrator(0.005, md.NewNVE(), md.NewNVE())
			Expect(err).To(MatchError(md.ErrMethodConflict))
		})

		It("refuses a second method and leaves it detached", func() {
			sc := chain()
			integ, _ := md.NewIntegrator(0.01, md.NewNVE())
			Expect(integ.Attach(ctx, sc)).To(Succeed())

			extra := md.NewNVE()
			Expect(integ.AddMethod(ctx, sc, extra)).To(MatchError(md.ErrMethodConflict))
			Expect(extra.Attached()).To(BeFalse())
			Expect(integ.Methods()).To(HaveLen(1))
		})

		It("integrates the state once per step", func() {
			sc := chain()
			x0 := sc.State.X.Clone()
			integ, _ := md.NewIntegrator(0.01, md.NewNVE())
			Expect(integ.Attach(ctx, sc)).To(Succeed())
			Expect(integ.Step(ctx, 0)).To(Succeed())

			want := integrators.NewVerlet().Step(sc.State.Model, x0, 0, 0.01)
			Expect(sc.State.X).To(Equal(want))
			Expect(sc.State.Time).To(Equal(0.01))
		})
	})

	It("selects the stepping kernel", func() {
		integ, _ := md.NewIntegrator(0.005, md.NewNVE())
		Expect(integ.Get("kernel")).To(Equal("verlet"))
		Expect(integ.Set("kernel", "RK4")).To(Succeed())
		Expect(integ.Set("kernel", "euler")).To(MatchError(params.ErrValidation))
		Expect(integ.Get("kernel")).To(Equal("rk4"))

		Expect(integ.Attach(ctx, chain())).To(Succeed())
		Expect(twoStep(integ).Kernel()).To(Equal("rk4"))

		Expect(integ.Set("kernel", "verlet")).To(Succeed())
		Expect(twoStep(integ).Kernel()).To(Equal("verlet"))
	})

	Describe("thermostat continuity", func() {
		var (
			sc    *sim.Context
			nvt   *md.Method
			integ *md.Integrator
		)

		run := func(steps int) {
			for k := 0; k < steps; k++ {
				Expect(integ.Step(ctx, uint64(k))).To(Succeed())
			}
		}

		BeforeEach(func() {
			sc = chain()
			var err error
			nvt, err = md.NewNVT(0.2, 0.5)
			Expect(err).NotTo(HaveOccurred())
			integ, err = md.NewIntegrator(0.005, nvt)
			Expect(err).NotTo(HaveOccurred())
			Expect(integ.Attach(ctx, sc)).To(Succeed())
			run(20)
		})

		It("resumes xi and eta after detach and attach", func() {
			before, ok := nvt.Variables()
			Expect(ok).To(BeTrue())
			Expect(before.Kind).To(Equal(engine.NVTKind))
			Expect(before.Values[0]).NotTo(BeZero())

			Expect(integ.Detach()).To(Succeed())
			Expect(integ.Attach(ctx, sc)).To(Succeed())

			after, _ := nvt.Variables()
			Expect(after.Values).To(Equal(before.Values))
		})

		It("starts from zero after ResetMethods", func() {
			Expect(integ.Detach()).To(Succeed())
			integ.ResetMethods()
			Expect(integ.Attach(ctx, sc)).To(Succeed())

			after, _ := nvt.Variables()
			Expect(after.Values).To(Equal([]float64{0, 0}))
		})

		It("forwards thermostat parameters while attached", func() {
			Expect(nvt.Set("kT", 0.4)).To(Succeed())
			Expect(nvt.Set("tau", -1.0)).To(MatchError(params.ErrValidation))
			Expect(nvt.Get("tau")).To(Equal(0.5))
		})
	})

	It("does not integrate rotation when aniso is false", func() {
		sc := pendulum()
		integ, _ := md.NewIntegrator(0.01, md.NewNVE())
		Expect(integ.Set("aniso", "false")).To(Succeed())
		Expect(integ.Attach(ctx, sc)).To(Succeed())

		Expect(integ.Step(ctx, 0)).To(Succeed())
		Expect(sc.State.X).To(Equal(dynamo.State{0.4, 0}))

		Expect(integ.Set("aniso", "auto")).To(Succeed())
		Expect(integ.Step(ctx, 1)).To(Succeed())
		Expect(sc.State.X[1]).To(BeNumerically("<", 0))
	})

	It("drives a simulation", func() {
		sc := chain()
		integ, _ := md.NewIntegrator(0.005, md.NewNVE())
		s := sim.New(sc)
		Expect(s.SetIntegrator(integ)).To(Succeed())
		Expect(s.Run(ctx, 100)).To(Succeed())
		Expect(s.Timestep()).To(Equal(uint64(100)))
		Expect(sc.State.Time).To(BeNumerically("~", 0.5, 1e-9))
	})
})

var _ = Describe("NewMethod", func() {
	It("builds every listed kind", func() {
		for _, kind := range md.MethodKinds() {
			m, err := md.NewMethod(kind)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Name()).To(Equal(kind))
		}
	})

	It("rejects unknown kinds", func() {
		_, err := md.NewMethod("langevin")
		Expect(err).To(HaveOccurred())
	})
})
