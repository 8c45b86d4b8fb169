package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tabulationsTotal *prometheus.CounterVec
	batchDuration    *prometheus.HistogramVec
	registerOnce     sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		tabulationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clubgov",
			Name:      "tabulations_total",
			Help:      "Total ballot tabulations computed.",
		}, []string{"anonymous"})

		batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clubgov",
			Name:      "batch_duration_seconds",
			Help:      "Duration of fan-out status batches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "ok"})
	})
}

// IncTabulation counts one completed tabulation.
func IncTabulation(anonymous bool) {
	if tabulationsTotal == nil {
		return
	}
	tabulationsTotal.WithLabelValues(strconv.FormatBool(anonymous)).Inc()
}

// ObserveBatch records the duration of one fan-out batch.
func ObserveBatch(kind string, ok bool, d time.Duration) {
	if batchDuration == nil {
		return
	}
	batchDuration.WithLabelValues(kind, strconv.FormatBool(ok)).Observe(d.Seconds())
}
