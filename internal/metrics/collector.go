package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects and exposes upload metrics. Each collector carries its
// own registry so multiple instances can coexist in one process.
type Collector struct {
	registry        *prometheus.Registry
	uploadsTotal    *prometheus.CounterVec
	bytesTotal      prometheus.Counter
	inflightUploads prometheus.Gauge
	duration        prometheus.Histogram
}

// New creates a new metrics collector
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		uploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "galerly_uploads_total",
				Help: "Total number of files processed by the upload pipeline",
			},
			[]string{"status"},
		),
		bytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "galerly_upload_bytes_total",
				Help: "Total bytes transferred",
			},
		),
		inflightUploads: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "galerly_inflight_uploads",
				Help: "Number of tasks currently uploading or finalizing",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "galerly_upload_duration_seconds",
				Help:    "Time taken to upload one file",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	c.registry.MustRegister(c.uploadsTotal)
	c.registry.MustRegister(c.bytesTotal)
	c.registry.MustRegister(c.inflightUploads)
	c.registry.MustRegister(c.duration)

	return c
}

// IncCompleted increments the completed counter and adds transferred bytes.
func (c *Collector) IncCompleted(bytes int64) {
	c.uploadsTotal.WithLabelValues("completed").Inc()
	c.bytesTotal.Add(float64(bytes))
}

// IncFailed increments the failed counter.
func (c *Collector) IncFailed() {
	c.uploadsTotal.WithLabelValues("error").Inc()
}

// IncSkipped increments the skipped counter for duplicate files.
func (c *Collector) IncSkipped() {
	c.uploadsTotal.WithLabelValues("skipped").Inc()
}

// SetInflight sets the number of tasks in flight.
func (c *Collector) SetInflight(count int) {
	c.inflightUploads.Set(float64(count))
}

// ObserveDuration observes one task's upload duration.
func (c *Collector) ObserveDuration(duration time.Duration) {
	c.duration.Observe(duration.Seconds())
}

// Handler returns the /metrics HTTP handler for this collector.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server.
func (c *Collector) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return http.ListenAndServe(addr, mux)
}
