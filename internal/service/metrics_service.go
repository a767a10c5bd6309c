package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	allocationsRun  prometheus.Counter
	seatsAllocated  prometheus.Counter
	sweepDuration   prometheus.Histogram
	importRows      *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	allocationsRun := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seat_allocation_runs_total",
		Help: "Total seat allocation generation runs that created rows",
	})

	seatsAllocated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seats_allocated_total",
		Help: "Total seats assigned across all generation runs",
	})

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "visibility_sweep_duration_seconds",
		Help:    "Duration of visibility sweep runs",
		Buckets: prometheus.DefBuckets,
	})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_rows_total",
		Help: "Bulk import rows by kind and outcome",
	}, []string{"kind", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, allocationsRun, seatsAllocated, sweepDuration, importRows, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		allocationsRun:  allocationsRun,
		seatsAllocated:  seatsAllocated,
		sweepDuration:   sweepDuration,
		importRows:      importRows,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one handled request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordAllocationRun records a generation run that created seats.
func (m *MetricsService) RecordAllocationRun(seats int) {
	if m == nil {
		return
	}
	m.allocationsRun.Inc()
	m.seatsAllocated.Add(float64(seats))
}

// ObserveSweep records the duration of one visibility sweep.
func (m *MetricsService) ObserveSweep(duration time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(duration.Seconds())
}

// RecordImport records accepted and rejected rows for one bulk upload.
func (m *MetricsService) RecordImport(kind string, imported, rejected int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(kind, "imported").Add(float64(imported))
	m.importRows.WithLabelValues(kind, "rejected").Add(float64(rejected))
}
