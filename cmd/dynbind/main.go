package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/dynbind/internal/comm"
	"github.com/san-kum/dynbind/internal/compute"
	"github.com/san-kum/dynbind/internal/config"
	"github.com/san-kum/dynbind/internal/conftree"
	"github.com/san-kum/dynbind/internal/ctxlog"
	"github.com/san-kum/dynbind/internal/harness"
	"github.com/san-kum/dynbind/internal/md"
	"github.com/san-kum/dynbind/internal/params"
	"github.com/san-kum/dynbind/internal/physics"
	"github.com/san-kum/dynbind/internal/sim"
	"github.com/san-kum/dynbind/internal/storage"
	"github.com/san-kum/dynbind/internal/viz"
)

var (
	envCfg    config.Env
	dataDir   string
	logLevel  string
	logFormat string
	quiet     bool

	preset   string
	device   string
	steps    uint64
	cycles   int
	reset    bool
	plot     bool
	ranks    int
	failRank int
)

// exitError carries a process exit status out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	var err error
	envCfg, err = config.LoadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	rootCmd := &cobra.Command{
		Use:           "dynbind",
		Short:         "bind simulation descriptions to an integration engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := ctxlog.New(logLevel, logFormat, os.Stderr)
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", envCfg.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envCfg.LogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", envCfg.LogFormat, "log format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress notices")

	runCmd := &cobra.Command{
		Use:   "run [description.yaml]",
		Short: "run a simulation description",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addDescriptionFlags(runCmd)
	runCmd.Flags().Uint64Var(&steps, "steps", 0, "steps per cycle (overrides the description)")
	runCmd.Flags().IntVar(&cycles, "cycles", 1, "detach/attach cycles")
	runCmd.Flags().BoolVar(&reset, "reset", false, "reset method state between cycles")
	runCmd.Flags().BoolVar(&plot, "plot", false, "plot the energy series")

	validateCmd := &cobra.Command{
		Use:   "validate [description.yaml]",
		Short: "apply a description to its control objects without running",
		Args:  cobra.MaximumNArgs(1),
		RunE:  validateDescription,
	}
	addDescriptionFlags(validateCmd)

	paramsCmd := &cobra.Command{
		Use:   "params",
		Short: "show control object parameters and defaults",
		RunE:  showParams,
	}

	groupCmd := &cobra.Command{
		Use:   "group [description.yaml]",
		Short: "run a description on an in-process rank group",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGroup,
	}
	addDescriptionFlags(groupCmd)
	groupCmd.Flags().IntVar(&ranks, "ranks", max(envCfg.Ranks, 2), "number of ranks")
	groupCmd.Flags().IntVar(&failRank, "fail-rank", -1, "rank that fails before attaching (-1 for none)")
	groupCmd.Flags().Uint64Var(&steps, "steps", 100, "steps per rank")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, validateCmd, paramsCmd, groupCmd, listCmd, presetsCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var ee *exitError
		if !errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, viz.StatusFail.Render("error:"), err)
		}
		os.Exit(harness.StatusOf(err))
	}
}

func addDescriptionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "start from a preset (model/name)")
	cmd.Flags().StringVar(&device, "device", "", "compute device (auto, cpu, cuda)")
}

// loadDescription resolves preset, file, environment and flags, in that
// order of increasing precedence.
func loadDescription(args []string) (*config.Config, error) {
	base := config.DefaultConfig()
	if preset != "" {
		model, name, ok := strings.Cut(preset, "/")
		if !ok {
			return nil, fmt.Errorf("preset must be model/name, got %q", preset)
		}
		base = config.GetPreset(model, name)
		if base == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
	}

	cfg := base
	if len(args) == 1 {
		var err error
		if cfg, err = config.Load(args[0], base); err != nil {
			return nil, fmt.Errorf("failed to load description: %w", err)
		}
	}
	cfg.ApplyEnv(envCfg)
	if device != "" {
		cfg.Device = device
	}
	return cfg, cfg.Validate()
}

// newContext builds the model and simulation context for one rank.
func newContext(cfg *config.Config, dev compute.Device, c comm.Communicator) (*sim.Context, error) {
	model, err := cfg.BuildModel(dev)
	if err != nil {
		return nil, err
	}
	x, err := cfg.State(model)
	if err != nil {
		return nil, err
	}
	return sim.NewContext(&sim.StateDef{Model: model, X: x}, dev, c)
}

func snapshot(model physics.Model, integ *md.Integrator) (map[string]map[string]any, map[string][]float64) {
	applied := map[string]map[string]any{
		"parameters": physics.Parameters(model).Snapshot().ToMap(),
		integ.Name(): integ.Snapshot().ToMap(),
	}
	vars := map[string][]float64{}
	for _, m := range integ.Methods() {
		applied[m.Name()] = m.Snapshot().ToMap()
		if v, ok := m.Variables(); ok {
			vars[m.Name()] = v.Values
		}
	}
	return applied, vars
}

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadDescription(args)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("steps") {
		cfg.Steps = steps
	}
	if cycles < 1 {
		return fmt.Errorf("cycles must be positive, got %d", cycles)
	}

	session := harness.NewSession(harness.WithLogger(ctxlog.FromContext(ctx)))
	defer session.Close()
	if quiet {
		session.Quiet()
	}

	dev, err := compute.Select(cfg.Device)
	if err != nil {
		return err
	}
	session.AddTeardown(dev.Cleanup)

	sc, err := newContext(cfg, dev, comm.Single())
	if err != nil {
		return err
	}
	integ, err := cfg.BuildIntegrator()
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	s := sim.New(sc)
	if err := s.SetIntegrator(integ); err != nil {
		return err
	}
	rec := storage.NewRecorder(max(1, cfg.Steps*uint64(cycles)/400))
	rec.Record(0, sc.State)
	s.AddObserver(rec)

	session.Notice("running", "model", cfg.Model, "device", dev.Name(), "steps", cfg.Steps, "cycles", cycles)
	start := time.Now()

	for c := 1; c <= cycles; c++ {
		if err := s.Run(ctx, cfg.Steps); err != nil {
			return err
		}
		session.Notice("cycle complete", "cycle", c, "timestep", s.Timestep(), "time", sc.State.Time)
		if c == cycles {
			break
		}
		if err := integ.Detach(); err != nil {
			return err
		}
		if reset {
			integ.ResetMethods()
		}
	}
	elapsed := time.Since(start)

	appliedParams, vars := snapshot(sc.State.Model.(physics.Model), integ)
	if err := integ.Detach(); err != nil {
		return err
	}

	runID, err := st.Save(storage.RunMetadata{
		Model:     cfg.Model,
		Device:    dev.Name(),
		Steps:     s.Timestep(),
		Cycles:    cycles,
		Params:    appliedParams,
		Variables: vars,
	}, rec)
	if err != nil {
		return err
	}

	metrics := []viz.Metric{
		{Label: "run id", Value: runID},
		{Label: "steps", Value: fmt.Sprint(s.Timestep())},
		{Label: "time", Value: fmt.Sprintf("%.4f", sc.State.Time)},
		{Label: "elapsed", Value: elapsed.Round(time.Millisecond).String()},
		{Label: "energy drift", Value: fmt.Sprintf("%.3e", rec.EnergyDrift())},
	}
	for name, v := range vars {
		metrics = append(metrics, viz.Metric{Label: name + " state", Value: fmt.Sprint(v)})
	}
	fmt.Println(viz.Summary(cfg.Model, metrics))

	if plot {
		fmt.Println(viz.PlotSeries(rec.Energies(), "energy", 80, 12))
	}
	return nil
}

func validateDescription(cmd *cobra.Command, args []string) error {
	cfg, err := loadDescription(args)
	if err != nil {
		return err
	}
	model, err := cfg.BuildModel(nil)
	if err != nil {
		return err
	}
	integ, err := cfg.BuildIntegrator()
	if err != nil {
		return err
	}

	effective := conftree.New()
	effective.Set("parameters", physics.Parameters(model).Snapshot())
	effective.Set(integ.Name(), integ.Snapshot())
	for _, m := range integ.Methods() {
		effective.Set(m.Name(), m.Snapshot())
	}
	out, err := yaml.Marshal(effective)
	if err != nil {
		return err
	}

	fmt.Println(viz.StatusOK.Render("valid"), viz.Subtle.Render(cfg.Model))
	fmt.Print(string(out))
	return nil
}

func showParams(cmd *cobra.Command, args []string) error {
	integ, err := md.NewIntegrator(config.DefaultDt)
	if err != nil {
		return err
	}
	objects := []interface {
		Name() string
		Fields() []params.Field
	}{integ}
	for _, kind := range md.MethodKinds() {
		m, err := md.NewMethod(kind)
		if err != nil {
			return err
		}
		objects = append(objects, m)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OBJECT\tFIELD\tDEFAULT")
	row := func(name string, fields []params.Field) {
		if len(fields) == 0 {
			fmt.Fprintf(w, "%s\t-\t-\n", name)
		}
		for _, f := range fields {
			def := "required"
			if f.HasDefault {
				def = fmt.Sprint(f.Default)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, f.Name, def)
		}
	}
	for _, obj := range objects {
		row(obj.Name(), obj.Fields())
	}
	for _, name := range physics.Names() {
		m, err := physics.New(name, 1, nil)
		if err != nil {
			return err
		}
		row(name, physics.Parameters(m).Fields())
	}
	return w.Flush()
}

func runGroup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := ctxlog.FromContext(ctx)
	cfg, err := loadDescription(args)
	if err != nil {
		return err
	}

	g, err := comm.NewGroup(ranks)
	if err != nil {
		return err
	}

	status := g.Run(ctx, func(ctx context.Context, c comm.Communicator) int {
		rankLogger := logger.With("rank", c.Rank())
		session := harness.NewSession(harness.WithLogger(rankLogger), harness.WithRuntime(g.Runtime(), c))
		if quiet {
			session.Quiet()
		}
		return session.Run(ctxlog.WithLogger(ctx, rankLogger), func(ctx context.Context) error {
			if c.Rank() == failRank {
				return fmt.Errorf("rank %d: injected failure", c.Rank())
			}
			dev := compute.NewCPU()
			session.AddTeardown(dev.Cleanup)

			sc, err := newContext(cfg, dev, c)
			if err != nil {
				return err
			}
			integ, err := cfg.BuildIntegrator()
			if err != nil {
				return err
			}
			s := sim.New(sc)
			if err := s.SetIntegrator(integ); err != nil {
				return err
			}
			if err := s.Run(ctx, steps); err != nil {
				return err
			}
			session.Notice("rank finished", "timestep", s.Timestep())
			return integ.Detach()
		})
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSTATUS")
	for rank, code := range status {
		fmt.Fprintf(w, "%d\t%s\n", rank, viz.Status(code))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if code, aborted := g.AbortCode(); aborted {
		return &exitError{code: code}
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tSTEPS\tCYCLES\tDT\tDRIFT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%v\t%.2e\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Cycles,
			run.Params["integrator"]["dt"],
			run.Metrics["energy_drift"],
		)
	}

	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	models := physics.Names()
	if len(args) == 1 {
		models = args[:1]
	}
	for _, model := range models {
		presets := config.ListPresets(model)
		if len(presets) == 0 {
			fmt.Printf("no presets for model: %s\n", model)
			continue
		}
		fmt.Printf("presets for %s:\n", model)
		for _, p := range presets {
			fmt.Printf("  %s/%s\n", model, p)
		}
	}
	return nil
}
