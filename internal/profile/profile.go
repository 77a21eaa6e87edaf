// Package profile collects per-stage frame timings, reports them once per
// second and exports them as Prometheus metrics.
package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/guptarohit/asciigraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/san-kum/voxelsand/internal/device"
)

const historySize = 512

// Report is one reporting interval's summary.
type Report struct {
	FPS        int
	Sim        time.Duration
	Render     time.Duration
	Draw       time.Duration
	CPUPercent float64
}

func (r Report) String() string {
	return fmt.Sprintf("%dfps sim %v render %v draw %v cpu %.1f%%",
		r.FPS, r.Sim, r.Render, r.Draw, r.CPUPercent)
}

type Profiler struct {
	mu  sync.Mutex
	log logr.Logger
	now func() time.Time

	reg       *prometheus.Registry
	stageTime *prometheus.HistogramVec
	frames    prometheus.Counter
	fps       prometheus.Gauge
	cpu       prometheus.Gauge
	failures  *prometheus.CounterVec

	proc *process.Process

	lastReport time.Time
	count      int
	sums       [3]time.Duration
	samples    [3]int
	history    []float64
	last       Report
}

func New(log logr.Logger) *Profiler {
	return newProfiler(log, time.Now)
}

func newProfiler(log logr.Logger, now func() time.Time) *Profiler {
	p := &Profiler{
		log: log.WithName("profile"),
		now: now,
		reg: prometheus.NewRegistry(),
		stageTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voxelsand",
			Name:      "stage_duration_seconds",
			Help:      "Device time per frame stage.",
			Buckets:   []float64{0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066, 0.1},
		}, []string{"stage"}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxelsand",
			Name:      "frames_total",
			Help:      "Frames completed.",
		}),
		fps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxelsand",
			Name:      "fps",
			Help:      "Frames in the last reporting interval.",
		}),
		cpu: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxelsand",
			Name:      "process_cpu_percent",
			Help:      "Process CPU use over the last reporting interval.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxelsand",
			Name:      "frame_errors_total",
			Help:      "Frames abandoned after a device error.",
		}, []string{"stage"}),
		lastReport: now(),
	}
	p.reg.MustRegister(p.stageTime, p.frames, p.fps, p.cpu, p.failures)

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		p.proc = proc
	}
	return p
}

func (p *Profiler) Registry() *prometheus.Registry { return p.reg }

// Observe records completed stage timings.
func (p *Profiler) Observe(samples []device.Sample) {
	if len(samples) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range samples {
		if int(s.Stage) >= len(p.sums) {
			continue
		}
		p.sums[s.Stage] += s.Elapsed
		p.samples[s.Stage]++
		p.stageTime.WithLabelValues(s.Stage.String()).Observe(s.Elapsed.Seconds())
	}
}

// Failed counts a frame abandoned in stage.
func (p *Profiler) Failed(stage device.Stage) {
	p.failures.WithLabelValues(stage.String()).Inc()
}

// Frame records one completed frame of the given wall time. Once per second
// it logs and returns a report.
func (p *Profiler) Frame(wall time.Duration) (Report, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frames.Inc()
	p.count++
	p.history = append(p.history, float64(wall)/float64(time.Millisecond))
	if len(p.history) > historySize {
		p.history = p.history[len(p.history)-historySize:]
	}

	now := p.now()
	if now.Sub(p.lastReport) < time.Second {
		return Report{}, false
	}

	r := Report{
		FPS:    p.count,
		Sim:    average(p.sums[device.StageSim], p.samples[device.StageSim]),
		Render: average(p.sums[device.StageRender], p.samples[device.StageRender]),
		Draw:   average(p.sums[device.StagePresent], p.samples[device.StagePresent]),
	}
	if p.proc != nil {
		if pct, err := p.proc.Percent(0); err == nil {
			r.CPUPercent = pct
		}
	}

	p.fps.Set(float64(r.FPS))
	p.cpu.Set(r.CPUPercent)
	p.log.Info("frame report", "fps", r.FPS,
		"simUs", r.Sim.Microseconds(), "renderUs", r.Render.Microseconds(), "drawUs", r.Draw.Microseconds(),
		"cpu", fmt.Sprintf("%.1f", r.CPUPercent))

	p.count = 0
	p.sums = [3]time.Duration{}
	p.samples = [3]int{}
	p.lastReport = now
	p.last = r
	return r, true
}

// Last returns the most recent report.
func (p *Profiler) Last() Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func average(sum time.Duration, n int) time.Duration {
	if n == 0 {
		return 0
	}
	return sum / time.Duration(n)
}

// History returns recent frame times in milliseconds, oldest first.
func (p *Profiler) History() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.history...)
}

// Chart plots recent frame times.
func (p *Profiler) Chart(width, height int) string {
	return Chart(p.History(), width, height)
}

// Chart plots frame times in milliseconds, or returns "" for no data.
func Chart(data []float64, width, height int) string {
	if len(data) == 0 {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("frame time (ms)"),
	)
}

func (p *Profiler) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (p *Profiler) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	p.log.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
