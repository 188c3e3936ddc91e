// Package metrics exposes the scheduler's Prometheus collectors.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "meeting_scheduler"

var (
	once sync.Once

	meetingsScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meeting_schedule_attempts_total",
			Help:      "Meeting create and revise attempts by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	availabilityEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_evaluations_total",
			Help:      "Participant by slot evaluations by resulting status.",
		},
		[]string{"status"},
	)

	overrideReleased = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "override_released_total",
			Help:      "Commitments removed by forced scheduling, by kind.",
		},
		[]string{"kind"},
	)

	meetingsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meetings_cancelled_total",
			Help:      "Meetings moved to the cancelled status.",
		},
	)

	lockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "employee_lock_wait_seconds",
			Help:      "Time spent acquiring per-employee advisory locks.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		},
		[]string{"method", "code"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			meetingsScheduled,
			availabilityEvaluations,
			overrideReleased,
			meetingsCancelled,
			lockWait,
			httpRequests,
		)
	})
}

// IncScheduleAttempt counts a create or revise attempt with its outcome label.
func IncScheduleAttempt(operation, outcome string) {
	meetingsScheduled.WithLabelValues(operation, outcome).Inc()
}

// AddEvaluations adds n participant by slot evaluations that ended in status.
func AddEvaluations(status string, n int) {
	if n <= 0 {
		return
	}
	availabilityEvaluations.WithLabelValues(status).Add(float64(n))
}

// AddOverrideReleased adds n commitments of kind removed by a forced schedule.
func AddOverrideReleased(kind string, n int64) {
	if n <= 0 {
		return
	}
	overrideReleased.WithLabelValues(kind).Add(float64(n))
}

// IncMeetingCancelled counts a meeting moved to cancelled.
func IncMeetingCancelled() {
	meetingsCancelled.Inc()
}

// ObserveLockWait records how long acquiring employee locks took.
func ObserveLockWait(d time.Duration) {
	lockWait.Observe(d.Seconds())
}

// IncHTTPRequest counts a served request by method and status code.
func IncHTTPRequest(method, code string) {
	httpRequests.WithLabelValues(method, code).Inc()
}
