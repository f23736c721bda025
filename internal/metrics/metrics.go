// Package metrics exposes Prometheus instrumentation for the
// surveillance and dispatch engine, carried forward from the teacher's
// pkg/metrics package and renamed to this domain's concerns: check
// cadence, queue depth, and per-channel delivery outcomes replace the
// teacher's node/container/raft gauges.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsTotal tracks tracked events by open/closed state.
	EventsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ffemonitor_events_total",
			Help: "Total number of tracked events by open state",
		},
		[]string{"is_open"},
	)

	// ChecksTotal counts every poll attempt, success or failure.
	ChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffemonitor_checks_total",
			Help: "Total number of scrape checks performed by outcome",
		},
		[]string{"success"},
	)

	ScrapeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ffemonitor_scrape_duration_seconds",
			Help:    "Time taken to fetch and parse one event page",
			Buckets: prometheus.DefBuckets,
		},
	)

	RateLimiterWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ffemonitor_rate_limiter_wait_seconds",
			Help:    "Time a scraper call spent blocked on the rate limiter",
			Buckets: prometheus.DefBuckets,
		},
	)

	OpeningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ffemonitor_openings_total",
			Help: "Total number of closed->open transitions detected",
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ffemonitor_queue_depth",
			Help: "Number of queue entries with sent=false",
		},
	)

	QueueEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffemonitor_queue_enqueued_total",
			Help: "Total number of queue entries created, by plan",
		},
		[]string{"plan"},
	)

	DispatchCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ffemonitor_dispatch_cycle_duration_seconds",
			Help:    "Time taken for one dispatch worker tick",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchedulerCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ffemonitor_scheduler_cycle_duration_seconds",
			Help:    "Time taken for one scheduler tick",
			Buckets: prometheus.DefBuckets,
		},
	)

	NotificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffemonitor_notifications_sent_total",
			Help: "Total number of successful channel deliveries by channel and plan",
		},
		[]string{"channel", "plan"},
	)

	NotificationsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffemonitor_notifications_failed_total",
			Help: "Total number of failed channel deliveries by channel and reason",
		},
		[]string{"channel", "reason"},
	)

	AdminRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffemonitor_admin_requests_total",
			Help: "Total number of admin API requests by route and status",
		},
		[]string{"route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsTotal,
		ChecksTotal,
		ScrapeDuration,
		RateLimiterWaitSeconds,
		OpeningsTotal,
		QueueDepth,
		QueueEnqueuedTotal,
		DispatchCycleDuration,
		SchedulerCycleDuration,
		NotificationsSentTotal,
		NotificationsFailedTotal,
		AdminRequestsTotal,
	)
}

// Handler returns the Prometheus scrape handler, mounted by the admin
// API on /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations, identical in shape to the
// teacher's pkg/metrics.Timer.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
