// Package observability holds service-wide Prometheus instrumentation.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "social_app",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests handled, by method and status code.",
	}, []string{"method", "status"})

	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "social_app",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity persisted to Postgres.",
	})
	attendanceChangeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "social_app",
		Subsystem: "persistence",
		Name:      "last_attendance_change_timestamp_seconds",
		Help:      "Unix timestamp of the most recent roster change persisted to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(httpRequestCounter, activityPersistGauge, attendanceChangeGauge)
}

// RecordHTTPRequest counts a handled request.
func RecordHTTPRequest(method string, status int) {
	httpRequestCounter.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// RecordAttendanceChanged updates the roster change watermark gauge.
func RecordAttendanceChanged(ts time.Time) {
	if ts.IsZero() {
		return
	}
	attendanceChangeGauge.Set(float64(ts.Unix()))
}
