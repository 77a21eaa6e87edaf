package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/voxelsand/internal/app"
	"github.com/san-kum/voxelsand/internal/config"
	"github.com/san-kum/voxelsand/internal/device"
	"github.com/san-kum/voxelsand/internal/export"
	"github.com/san-kum/voxelsand/internal/gui"
	"github.com/san-kum/voxelsand/internal/input"
	"github.com/san-kum/voxelsand/internal/logging"
	"github.com/san-kum/voxelsand/internal/profile"
	"github.com/san-kum/voxelsand/internal/storage"
	"github.com/san-kum/voxelsand/internal/telemetry"
	"github.com/san-kum/voxelsand/internal/tui"
	"github.com/san-kum/voxelsand/internal/voxel"
)

var (
	configFile string
	preset     string
	size       string
	backend    string
	dimension  int
	kernelDir  string
	scene      string
	metrics    string
	tracing    bool
	verbosity  int

	// bench
	benchFrames int
	benchWidth  int
	benchHeight int
	saveDir     string
	snapshot    string

	// term
	logFile string

	// config
	writePath string
)

// frontend is a session entry point: gui.Run or tui.Run.
type frontend func(ctx context.Context, cfg *config.Config, prof *profile.Profiler, tracer trace.Tracer, log logr.Logger) error

func main() {
	rootCmd := &cobra.Command{
		Use:          "voxelsand",
		Short:        "falling sand in a voxel volume",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(gui.Run, os.Stderr)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "scene preset (see presets)")
	pf.StringVar(&size, "size", "default", "preset size")
	pf.StringVar(&backend, "backend", "", "compute backend: auto, cpu or gl")
	pf.IntVar(&dimension, "dim", 0, "volume edge length")
	pf.StringVar(&kernelDir, "kernels", "", "directory to load and reload kernel sources from")
	pf.StringVar(&scene, "scene", "", "initial scene")
	pf.StringVar(&metrics, "metrics", "", "serve prometheus metrics on this address")
	pf.BoolVar(&tracing, "trace", false, "export OTLP traces")
	pf.IntVarP(&verbosity, "verbose", "v", 0, "log verbosity")

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "run in a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(gui.Run, os.Stderr)
		},
	}

	termCmd := &cobra.Command{
		Use:   "term",
		Short: "run in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return err
			}
			defer f.Close()
			return runSession(tui.Run, f)
		},
	}
	termCmd.Flags().StringVar(&logFile, "log", "voxelsand.log", "log file")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "run headless and report frame times",
		RunE:  runBench,
	}
	benchCmd.Flags().IntVar(&benchFrames, "frames", 300, "frames to run")
	benchCmd.Flags().IntVar(&benchWidth, "width", 320, "render width")
	benchCmd.Flags().IntVar(&benchHeight, "height", 180, "render height")
	benchCmd.Flags().StringVar(&saveDir, "save", "", "record the run in this directory")
	benchCmd.Flags().StringVar(&snapshot, "snapshot", "", "write the last frame to this PNG file")

	runsCmd := &cobra.Command{
		Use:   "runs [dir] [run_id]",
		Short: "list recorded bench runs, or plot one",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  listRuns,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scene]",
		Short: "list scene presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				sizes := config.ListPresets(args[0])
				if len(sizes) == 0 {
					fmt.Printf("no presets for scene: %s\n", args[0])
					return nil
				}
				fmt.Printf("presets for %s:\n", args[0])
				for _, s := range sizes {
					p := config.GetPreset(args[0], s)
					fmt.Printf("  %-8s dim %d\n", s, p.Dimension)
				}
				return nil
			}
			for _, sc := range config.ListScenes() {
				fmt.Printf("%-10s %v\n", sc, config.ListPresets(sc))
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if writePath != "" {
				return config.Save(writePath, cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
	configCmd.Flags().StringVar(&writePath, "write", "", "write to this file instead of stdout")

	rootCmd.AddCommand(guiCmd, termCmd, benchCmd, runsCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves defaults, then the preset, then the config file, then
// flags.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset, size)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s/%s (available: %v)", preset, size, config.ListPresets(preset))
		}
	}
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if backend != "" {
		cfg.Backend = backend
	}
	if dimension != 0 {
		cfg.Dimension = dimension
	}
	if kernelDir != "" {
		cfg.KernelDir = kernelDir
	}
	if scene != "" {
		cfg.Scene = scene
	}
	if metrics != "" {
		cfg.Metrics.Listen = metrics
	}
	if tracing {
		cfg.Trace.Enabled = true
	}
	if verbosity != 0 {
		cfg.Verbosity = verbosity
	}
	return cfg, cfg.Validate()
}

// session holds what every frontend shares: logging, tracing and metrics.
type session struct {
	cfg      *config.Config
	id       string
	log      logr.Logger
	prof     *profile.Profiler
	tracer   trace.Tracer
	shutdown telemetry.Shutdown
}

func newSession(ctx context.Context, logOut *os.File) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, id := logging.New(logOut, cfg.Verbosity)
	log.Info("starting", "dimension", cfg.Dimension, "scene", cfg.Scene, "backend", cfg.Backend)

	tracer, shutdown, err := telemetry.Init(ctx, cfg.Trace.Enabled, cfg.Trace.Endpoint, id, log)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	prof := profile.New(log)
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := prof.Serve(ctx, cfg.Metrics.Listen); err != nil {
				log.Error(err, "metrics endpoint stopped")
			}
		}()
	}
	return &session{cfg: cfg, id: id, log: log, prof: prof, tracer: tracer, shutdown: shutdown}, nil
}

func (s *session) close() {
	if err := s.shutdown(context.Background()); err != nil {
		s.log.Error(err, "tracing shutdown")
	}
}

func runSession(run frontend, logOut *os.File) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(ctx, logOut)
	if err != nil {
		return err
	}
	defer s.close()
	return run(ctx, s.cfg, s.prof, s.tracer, s.log)
}

func runBench(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer s.close()
	cfg := s.cfg
	cfg.FPS = 0

	// Aim the brush at the middle of the volume.
	mid := (float64(cfg.Dimension)/2 + 30) * math.Sqrt(3)
	cfg.Placement.Distance = float32(math.Min(mid, float64(cfg.Placement.MaxDist)))

	b, err := device.Open(cfg.Backend, device.Options{Workers: cfg.Workers, Log: s.log})
	if err != nil {
		return err
	}
	defer b.Cleanup()

	world, err := app.NewWorld(cfg, b, [2]int{benchWidth, benchHeight}, s.log)
	if err != nil {
		return err
	}

	// The target is traced on the first frame; placing starts after it.
	q := input.NewQueue()
	presented := 0
	last := device.NewFrame(benchWidth, benchHeight)
	opts := app.OptionsFrom(cfg)
	opts.MaxFrames = benchFrames
	a := app.New(b, world, q, opts, s.log,
		app.WithProfiler(s.prof),
		app.WithTracer(s.tracer),
		app.WithPresenter(func(f *device.Frame) error {
			presented++
			if presented == 1 {
				q.SetMouseLeft(true)
			}
			if snapshot != "" {
				last.CopyFrom(f)
			}
			return nil
		}),
	)

	start := time.Now()
	if err := a.Run(ctx); err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("benchmarking %s backend, %d³ volume, %dx%d\n\n", b.Name(), cfg.Dimension, benchWidth, benchHeight)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FRAMES\tITERATIONS\tTIME\tFRAMES/SEC\tSTONE\tSAND\tWATER")
	fmt.Fprintf(w, "%d\t%d\t%v\t%.1f\t%d\t%d\t%d\n",
		a.Frames(), world.Stepper.Iterations(), elapsed.Round(time.Millisecond),
		float64(a.Frames())/elapsed.Seconds(),
		world.Grid.Count(voxel.Stone), world.Grid.Count(voxel.Sand), world.Grid.Count(voxel.Water))
	w.Flush()

	if chart := s.prof.Chart(80, 10); chart != "" {
		fmt.Println()
		fmt.Println(chart)
	}

	if snapshot != "" {
		if err := export.SavePNG(snapshot, last); err != nil {
			return err
		}
		fmt.Printf("\nlast frame written to %s\n", snapshot)
	}

	if saveDir != "" {
		st := storage.New(saveDir)
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.Save(storage.RunMetadata{
			Session:    s.id,
			Backend:    b.Name(),
			Scene:      cfg.Scene,
			Dimension:  cfg.Dimension,
			Resolution: [2]int{benchWidth, benchHeight},
			Frames:     a.Frames(),
			Iterations: world.Stepper.Iterations(),
			Elapsed:    elapsed,
			FPS:        float64(a.Frames()) / elapsed.Seconds(),
			Particles: map[string]int{
				voxel.Stone.String(): world.Grid.Count(voxel.Stone),
				voxel.Sand.String():  world.Grid.Count(voxel.Sand),
				voxel.Water.String(): world.Grid.Count(voxel.Water),
			},
		}, s.prof.History())
		if err != nil {
			return err
		}
		fmt.Printf("\nrun saved: %s\n", id)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(args[0])
	if len(args) == 2 {
		meta, err := st.Load(args[1])
		if err != nil {
			return err
		}
		times, err := st.LoadFrameTimes(args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s %d³ %s  %.1f fps\n\n", meta.ID, meta.Scene, meta.Dimension, meta.Backend, meta.FPS)
		fmt.Println(profile.Chart(times, 80, 15))
		return nil
	}

	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tDIM\tBACKEND\tFRAMES\tFPS\tTIMESTAMP")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%.1f\t%s\n",
			r.ID, r.Scene, r.Dimension, r.Backend, r.Frames, r.FPS, r.Timestamp.Format(time.RFC3339))
	}
	return w.Flush()
}
