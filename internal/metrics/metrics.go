package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder counts plan builds and their expensive sub-operations. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	renders     prometheus.Counter
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheErrors *prometheus.CounterVec
	builds      *prometheus.CounterVec
	buildTime   prometheus.Histogram
	planSteps   prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		renders: f.NewCounter(prometheus.CounterOpts{
			Name: "stageplan_renders_total",
			Help: "Stage files rendered",
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "stageplan_cache_hits_total",
			Help: "Stage expansions served from the plan cache",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "stageplan_cache_misses_total",
			Help: "Stage expansions not found in the plan cache",
		}),
		cacheErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stageplan_cache_errors_total",
			Help: "Recovered plan cache failures",
		}, []string{"op"}),
		builds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stageplan_builds_total",
			Help: "Plan builds by outcome",
		}, []string{"status"}),
		buildTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stageplan_build_duration_seconds",
			Help:    "Wall time of plan builds",
			Buckets: prometheus.DefBuckets,
		}),
		planSteps: f.NewGauge(prometheus.GaugeOpts{
			Name: "stageplan_plan_steps",
			Help: "Steps in the most recently built plan",
		}),
	}
}

// Registry exposes the underlying registry for exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Render counts one rendered stage file.
func (r *Recorder) Render() {
	if r == nil {
		return
	}
	r.renders.Inc()
}

// CacheHit counts a cache hit.
func (r *Recorder) CacheHit() {
	if r == nil {
		return
	}
	r.cacheHits.Inc()
}

// CacheMiss counts a cache miss.
func (r *Recorder) CacheMiss() {
	if r == nil {
		return
	}
	r.cacheMisses.Inc()
}

// CacheError counts a recovered cache failure for op ("get" or "put").
func (r *Recorder) CacheError(op string) {
	if r == nil {
		return
	}
	r.cacheErrors.WithLabelValues(op).Inc()
}

// Build records the outcome of one plan build.
func (r *Recorder) Build(elapsed time.Duration, steps int, err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	} else {
		r.planSteps.Set(float64(steps))
	}
	r.builds.WithLabelValues(status).Inc()
	r.buildTime.Observe(elapsed.Seconds())
}

// WriteTextfile dumps all metrics in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
