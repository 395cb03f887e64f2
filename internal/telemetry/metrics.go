package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TickSummary captures one WorldExec.Run call's outcome, the generalized
// form of the teacher's WorkGroupSummary (api.go) — broadened from one
// work group's systems to one tick's systems, and from a scheduler-private
// struct to telemetry's own reporting type.
type TickSummary struct {
	Tick        uint64
	Duration    time.Duration
	SystemsRun  int
	Compiling   int
	Err         error
}

// TickObserver receives a TickSummary after every tick.
type TickObserver interface {
	ObserveTick(summary TickSummary)
}

// PrometheusTicks is a TickObserver backed by Prometheus collectors,
// replacing the teacher's unwired PrometheusCollector interface
// (observability.go) with a concrete client_golang registration.
type PrometheusTicks struct {
	duration  prometheus.Histogram
	systems   prometheus.Gauge
	compiling prometheus.Gauge
	errors    prometheus.Counter
}

// NewPrometheusTicks registers Conduit's tick metrics against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry.
func NewPrometheusTicks(reg prometheus.Registerer) (*PrometheusTicks, error) {
	p := &PrometheusTicks{
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "conduit",
			Subsystem: "tick",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of one WorldExec.Run call.",
			Buckets:   prometheus.DefBuckets,
		}),
		systems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "conduit",
			Subsystem: "tick",
			Name:      "systems_run",
			Help:      "Number of systems executed in the most recent tick.",
		}),
		compiling: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "conduit",
			Subsystem: "tick",
			Name:      "systems_compiling",
			Help:      "Number of systems still compiling as of the most recent tick.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "conduit",
			Subsystem: "tick",
			Name:      "errors_total",
			Help:      "Total number of ticks that returned an error.",
		}),
	}
	for _, c := range []prometheus.Collector{p.duration, p.systems, p.compiling, p.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *PrometheusTicks) ObserveTick(summary TickSummary) {
	p.duration.Observe(summary.Duration.Seconds())
	p.systems.Set(float64(summary.SystemsRun))
	p.compiling.Set(float64(summary.Compiling))
	if summary.Err != nil {
		p.errors.Inc()
	}
}

// LoggingTicks is a TickObserver that logs every tick summary — adapted
// from the teacher's loggingObserver (observability.go), generalized from
// WorkGroupSummary to TickSummary.
type LoggingTicks struct {
	Logger Logger
}

func (l LoggingTicks) ObserveTick(summary TickSummary) {
	entry := l.Logger.With("tick", summary.Tick)
	if summary.Err != nil {
		entry.Error("tick failed", "duration", summary.Duration, "systems_run", summary.SystemsRun, "err", summary.Err)
		return
	}
	entry.Info("tick completed", "duration", summary.Duration, "systems_run", summary.SystemsRun, "compiling", summary.Compiling)
}

// CompositeTicks fans a TickSummary out to every observer in order,
// mirroring the teacher's compositeObserver.
type CompositeTicks struct {
	Observers []TickObserver
}

func (c CompositeTicks) ObserveTick(summary TickSummary) {
	for _, o := range c.Observers {
		o.ObserveTick(summary)
	}
}
