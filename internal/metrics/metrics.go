// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the scheduling pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confluo_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confluo_http_errors_total",
		Help: "Total number of HTTP requests resulting in server errors.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "confluo_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	resolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "confluo_availability_resolution_duration_seconds",
		Help:    "Histogram of availability resolution latencies.",
		Buckets: prometheus.DefBuckets,
	})

	slotsReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "confluo_availability_slots_returned",
		Help:    "Distribution of slot counts returned per availability request.",
		Buckets: prometheus.LinearBuckets(0, 1, 11),
	})

	calendarFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confluo_calendar_fetch_failures_total",
		Help: "Total number of per-attendee busy-data fetch failures (handled fail-open).",
	})
)

// Middleware records request count, duration and server-error metrics for
// every echo route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			method := c.Request().Method
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			statusCode := strconv.Itoa(status)

			httpRequestsTotal.WithLabelValues(method, route).Inc()
			httpRequestDuration.WithLabelValues(method, route, statusCode).Observe(time.Since(start).Seconds())
			if status >= http.StatusInternalServerError {
				httpErrorsTotal.WithLabelValues(method, route, statusCode).Inc()
			}
			return err
		}
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveResolution records one availability resolution.
func ObserveResolution(start time.Time, slotCount int) {
	resolutionDuration.Observe(time.Since(start).Seconds())
	slotsReturned.Observe(float64(slotCount))
}

// CountCalendarFetchFailure records a fail-open busy-data fetch failure.
func CountCalendarFetchFailure() {
	calendarFetchFailures.Inc()
}
