package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts binding activity. A nil Recorder records nothing.
type Recorder struct {
	registerOnce sync.Once
	registerer   prometheus.Registerer
	registerErr  error

	syncs        *prometheus.CounterVec
	publishes    *prometheus.CounterVec
	failures     *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
}

// NewRecorder builds a Recorder that registers its collectors on reg the
// first time anything is recorded. A nil reg uses the default registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Recorder{
		registerer: reg,
		syncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tether",
				Subsystem: "binding",
				Name:      "syncs_total",
				Help:      "Forward syncs pushed to binders.",
			},
			[]string{"binder"},
		),
		publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tether",
				Subsystem: "binding",
				Name:      "publishes_total",
				Help:      "Reverse syncs written back to models.",
			},
			[]string{"binder"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tether",
				Subsystem: "binding",
				Name:      "failures_total",
				Help:      "Binding failures by stage.",
			},
			[]string{"binder", "stage"},
		),
		syncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tether",
				Subsystem: "binding",
				Name:      "sync_duration_seconds",
				Help:      "Time spent running the formatter pipeline and binder routine.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"binder"},
		),
	}
}

// Register registers the collectors. It is safe to call repeatedly and
// returns the first registration error.
func (r *Recorder) Register() error {
	if r == nil {
		return nil
	}
	r.registerOnce.Do(func() {
		for _, collector := range []prometheus.Collector{r.syncs, r.publishes, r.failures, r.syncDuration} {
			if err := r.registerer.Register(collector); err != nil {
				r.registerErr = err
				return
			}
		}
	})
	return r.registerErr
}

// RecordSync counts one forward sync for binder.
func (r *Recorder) RecordSync(binder string, duration time.Duration) {
	if r == nil {
		return
	}
	_ = r.Register()
	r.syncs.WithLabelValues(binder).Inc()
	r.syncDuration.WithLabelValues(binder).Observe(duration.Seconds())
}

// RecordPublish counts one reverse sync for binder.
func (r *Recorder) RecordPublish(binder string) {
	if r == nil {
		return
	}
	_ = r.Register()
	r.publishes.WithLabelValues(binder).Inc()
}

// RecordFailure counts a failure at stage ("formatter", "deferred", "bind",
// "publish") for binder.
func (r *Recorder) RecordFailure(binder, stage string) {
	if r == nil {
		return
	}
	_ = r.Register()
	r.failures.WithLabelValues(binder, stage).Inc()
}

// Syncs exposes the sync counter for inspection.
func (r *Recorder) Syncs() *prometheus.CounterVec { return r.syncs }

// Publishes exposes the publish counter for inspection.
func (r *Recorder) Publishes() *prometheus.CounterVec { return r.publishes }

// Failures exposes the failure counter for inspection.
func (r *Recorder) Failures() *prometheus.CounterVec { return r.failures }
