// Package prometheus provides the Prometheus implementations behind the
// pkg/metrics constructors. Importing it for side effects registers the
// constructors:
//
//	import _ "github.com/marmos91/ransched/pkg/metrics/prometheus"
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/ransched/pkg/metrics"
	"github.com/marmos91/ransched/pkg/sched"
)

func init() {
	metrics.RegisterSchedMetricsConstructor(newSchedMetrics)
}

// schedMetrics is the Prometheus implementation for scheduler metrics.
type schedMetrics struct {
	slotDuration *prometheus.HistogramVec
	grants       *prometheus.CounterVec
	grantedBytes *prometheus.CounterVec
	reservation  *prometheus.CounterVec
	tbDropped    *prometheus.CounterVec
	feedbackDrop *prometheus.CounterVec
	activeUEs    prometheus.Gauge
	queueDepth   prometheus.Gauge
}

func newSchedMetrics() sched.Metrics {
	reg := metrics.GetRegistry()

	return &schedMetrics{
		slotDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ransched_slot_duration_seconds",
				Help:    "Wall time spent by a cell worker on one slot",
				Buckets: prometheus.ExponentialBuckets(10e-6, 2, 12),
			},
			[]string{"cell"},
		),
		grants: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ransched_grants_total",
				Help: "Scheduling grants by cell, direction and transmission kind",
			},
			[]string{"cell", "direction", "kind"}, // kind: "newtx", "retx"
		),
		grantedBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ransched_granted_bytes_total",
				Help: "Sum of granted transport block sizes by cell and direction",
			},
			[]string{"cell", "direction"},
		),
		reservation: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ransched_reservation_conflicts_total",
				Help: "UEs skipped because an overlapping slot holds their carrier",
			},
			[]string{"cell"},
		),
		tbDropped: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ransched_tb_dropped_total",
				Help: "Transport blocks dropped after exhausting the retx budget",
			},
			[]string{"cell"},
		),
		feedbackDrop: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ransched_feedback_dropped_total",
				Help: "Feedback events dropped (unknown UE) by event kind",
			},
			[]string{"kind"},
		),
		activeUEs: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "ransched_active_ues",
				Help: "Number of UEs in the scheduler table",
			},
		),
		queueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "ransched_event_queue_depth",
				Help: "Pending feedback events at the last drain",
			},
		),
	}
}

func cellLabel(cell uint32) string {
	return strconv.FormatUint(uint64(cell), 10)
}

func kindLabel(retx bool) string {
	if retx {
		return "retx"
	}
	return "newtx"
}

func (m *schedMetrics) ObserveSlot(cell uint32, duration time.Duration) {
	if m == nil {
		return
	}
	m.slotDuration.WithLabelValues(cellLabel(cell)).Observe(duration.Seconds())
}

func (m *schedMetrics) ObserveDLGrant(cell uint32, retx bool, tbs uint32) {
	if m == nil {
		return
	}
	m.grants.WithLabelValues(cellLabel(cell), "dl", kindLabel(retx)).Inc()
	m.grantedBytes.WithLabelValues(cellLabel(cell), "dl").Add(float64(tbs))
}

func (m *schedMetrics) ObserveULGrant(cell uint32, retx bool, tbs uint32) {
	if m == nil {
		return
	}
	m.grants.WithLabelValues(cellLabel(cell), "ul", kindLabel(retx)).Inc()
	m.grantedBytes.WithLabelValues(cellLabel(cell), "ul").Add(float64(tbs))
}

func (m *schedMetrics) ObserveReservationConflict(cell uint32) {
	if m == nil {
		return
	}
	m.reservation.WithLabelValues(cellLabel(cell)).Inc()
}

func (m *schedMetrics) ObserveTBDropped(cell uint32) {
	if m == nil {
		return
	}
	m.tbDropped.WithLabelValues(cellLabel(cell)).Inc()
}

func (m *schedMetrics) ObserveFeedbackDropped(kind string) {
	if m == nil {
		return
	}
	m.feedbackDrop.WithLabelValues(kind).Inc()
}

func (m *schedMetrics) SetActiveUEs(n int) {
	if m == nil {
		return
	}
	m.activeUEs.Set(float64(n))
}

func (m *schedMetrics) SetEventQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
