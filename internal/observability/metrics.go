// Package observability holds the prometheus metrics of the façade.
//
// Counters touched from the audio thread are resolved at init so the hot
// path is a single atomic add.
package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Task results.
const (
	ResultEnqueued  = "enqueued"
	ResultRejected  = "rejected"
	ResultExecuted  = "executed"
	ResultDiscarded = "discarded"
)

var (
	registerOnce sync.Once

	rtTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reabridge",
			Subsystem: "rt",
			Name:      "tasks_total",
			Help:      "Real-time tasks by result.",
		},
		[]string{"result"},
	)
	mainTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reabridge",
			Subsystem: "main",
			Name:      "tasks_total",
			Help:      "Main-thread tasks by result.",
		},
		[]string{"result"},
	)
	actionsInvoked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reabridge",
			Name:      "actions_invoked_total",
			Help:      "Actions dispatched by the host.",
		},
	)
	sessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reabridge",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session state transitions.",
		},
		[]string{"to"},
	)
	sessionAwake = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "reabridge",
			Subsystem: "session",
			Name:      "awake",
			Help:      "1 while the session is awake.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reabridge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reabridge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	rtEnqueued  = rtTasks.WithLabelValues(ResultEnqueued)
	rtRejected  = rtTasks.WithLabelValues(ResultRejected)
	rtExecuted  = rtTasks.WithLabelValues(ResultExecuted)
	rtDiscarded = rtTasks.WithLabelValues(ResultDiscarded)

	mainEnqueued = mainTasks.WithLabelValues(ResultEnqueued)
	mainRejected = mainTasks.WithLabelValues(ResultRejected)
	mainExecuted = mainTasks.WithLabelValues(ResultExecuted)
)

// RegisterMetrics registers all collectors with the default registry.
// It is safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(rtTasks, mainTasks, actionsInvoked, sessionTransitions, sessionAwake, httpRequests, httpDuration)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

// RecordRTEnqueue counts an attempt to queue a real-time task.
func RecordRTEnqueue(accepted bool) {
	if accepted {
		rtEnqueued.Inc()
		return
	}
	rtRejected.Inc()
}

// RecordRTExecuted counts a task run on the audio thread.
func RecordRTExecuted() {
	rtExecuted.Inc()
}

// RecordRTDiscarded counts tasks dropped on wake-up.
func RecordRTDiscarded(n int) {
	if n > 0 {
		rtDiscarded.Add(float64(n))
	}
}

// RecordMainEnqueue counts an attempt to queue a main-thread task.
func RecordMainEnqueue(accepted bool) {
	if accepted {
		mainEnqueued.Inc()
		return
	}
	mainRejected.Inc()
}

// RecordMainExecuted counts n main-thread tasks run by one helper poll.
func RecordMainExecuted(n int) {
	if n > 0 {
		mainExecuted.Add(float64(n))
	}
}

// RecordActionInvoked counts a handled host dispatch.
func RecordActionInvoked() {
	actionsInvoked.Inc()
}

// RecordSessionTransition counts a successful wake-up or sleep.
func RecordSessionTransition(awake bool) {
	if awake {
		sessionTransitions.WithLabelValues("awake").Inc()
		sessionAwake.Set(1)
		return
	}
	sessionTransitions.WithLabelValues("sleeping").Inc()
	sessionAwake.Set(0)
}

// RecordHTTPRequest counts a request served by the introspection server.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
