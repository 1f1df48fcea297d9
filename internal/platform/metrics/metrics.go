// Package metrics exposes sync outcomes as Prometheus counters.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

const namespace = "quotesync"

// Result label values for sync runs.
const (
	ResultSuccess    = "success"
	ResultNetwork    = "network_error"
	ResultStorage    = "storage_error"
	ResultSuperseded = "superseded"
	ResultError      = "error"
)

// SyncRecorder counts sync runs, merged records and push outcomes.
type SyncRecorder struct {
	runs     *prometheus.CounterVec
	records  *prometheus.CounterVec
	pushes   *prometheus.CounterVec
	duration prometheus.Histogram
	lastRun  prometheus.Gauge
}

// NewSyncRecorder registers the sync collectors with reg.
// Pass prometheus.DefaultRegisterer to serve them from promhttp.Handler.
func NewSyncRecorder(reg prometheus.Registerer) (*SyncRecorder, error) {
	r := &SyncRecorder{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync runs by result.",
		}, []string{"result"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "records_total",
			Help:      "Records handled by successful sync runs, by outcome.",
		}, []string{"outcome"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "pushes_total",
			Help:      "Background pushes of local quotes, by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "run_duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Start time of the last successful sync run.",
		}),
	}

	for _, c := range []prometheus.Collector{r.runs, r.records, r.pushes, r.duration, r.lastRun} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// RunFinished records one sync run.
func (r *SyncRecorder) RunFinished(summary domain.SyncSummary, err error) {
	r.runs.WithLabelValues(runResult(err)).Inc()
	r.duration.Observe(summary.Duration.Seconds())

	if err != nil {
		return
	}

	r.records.WithLabelValues("new_from_server").Add(float64(summary.NewFromServer))
	r.records.WithLabelValues("conflict_resolved").Add(float64(summary.ConflictsResolved))
	r.records.WithLabelValues("pushed_to_server").Add(float64(summary.PushedToServer))

	if !summary.StartedAt.IsZero() {
		r.lastRun.Set(float64(summary.StartedAt.Unix()))
	}
}

// PushFinished records one background push.
func (r *SyncRecorder) PushFinished(err error) {
	if err != nil {
		r.pushes.WithLabelValues("failure").Inc()
		return
	}

	r.pushes.WithLabelValues("success").Inc()
}

func runResult(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case domain.IsNetwork(err):
		return ResultNetwork
	case domain.IsStorage(err):
		return ResultStorage
	case errors.Is(err, domain.ErrSyncSuperseded):
		return ResultSuperseded
	default:
		return ResultError
	}
}
