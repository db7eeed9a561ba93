package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/vibeguard/internal/http"

// HTTPMetrics records request metrics through the OpenTelemetry meter API.
type HTTPMetrics struct {
	requestsTotal  metric.Int64Counter
	requestDur     metric.Float64Histogram
	responseSize   metric.Int64Histogram
	activeRequests metric.Int64UpDownCounter
}

// NewHTTPMetrics creates the instruments on mp, or on the global provider
// when mp is nil.
func NewHTTPMetrics(mp metric.MeterProvider) (*HTTPMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(httpInstrumentationName)

	var m HTTPMetrics
	var err, errs error

	m.requestsTotal, err = meter.Int64Counter("vibeguard.http.requests_total",
		metric.WithDescription("HTTP requests by method, route and status."),
		metric.WithUnit("{request}"))
	errs = errors.Join(errs, err)

	// Scans are dominated by the archive download, hence the long tail.
	m.requestDur, err = meter.Float64Histogram("vibeguard.http.request_duration_seconds",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60))
	errs = errors.Join(errs, err)

	m.responseSize, err = meter.Int64Histogram("vibeguard.http.response_size_bytes",
		metric.WithDescription("Response body size by method, route and status."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(100, 1000, 10000, 100000, 1000000))
	errs = errors.Join(errs, err)

	m.activeRequests, err = meter.Int64UpDownCounter("vibeguard.http.active_requests",
		metric.WithDescription("In-flight HTTP requests."),
		metric.WithUnit("{request}"))
	errs = errors.Join(errs, err)

	if errs != nil {
		return nil, fmt.Errorf("failed to create http instruments: %w", errs)
	}
	return &m, nil
}

// MetricsMiddleware returns an Echo middleware that records HTTP metrics.
// It runs the error handler itself so the recorded status is the one sent.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			ctx := c.Request().Context()
			m.activeRequests.Add(ctx, 1)
			defer m.activeRequests.Add(ctx, -1)

			if err := next(c); err != nil {
				c.Error(err)
			}

			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("route", routeLabel(c)),
				attribute.Int("status", c.Response().Status),
			)
			m.requestsTotal.Add(ctx, 1, attrs)
			m.requestDur.Record(ctx, time.Since(start).Seconds(), attrs)
			m.responseSize.Record(ctx, c.Response().Size, attrs)
			return nil
		}
	}
}

// routeLabel returns the matched route pattern. Requests that matched no
// registered route share one label so scanners probing random paths cannot
// grow the series count.
func routeLabel(c echo.Context) string {
	path, method := c.Path(), c.Request().Method
	for _, r := range c.Echo().Routes() {
		if r.Path == path && r.Method == method {
			return path
		}
	}
	return "unmatched"
}
