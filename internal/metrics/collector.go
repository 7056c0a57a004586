package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	// HTTP surface
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Ingestion
	filesUploaded     prometheus.Counter
	uploadBytes       prometheus.Counter
	trickleSamples    prometheus.Counter
	trickleBatches    prometheus.Counter
	apiKeyRejections  prometheus.Counter
	rateLimitRejected *prometheus.CounterVec

	// Domain state
	comparisonsRun prometheus.Counter
}

func NewCollector() *Collector {
	return &Collector{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xat_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xat_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		filesUploaded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xat_collected_files_total",
			Help: "Performance data files accepted",
		}),

		uploadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xat_collected_bytes_total",
			Help: "Bytes of performance data accepted",
		}),

		trickleSamples: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xat_trickle_samples_total",
			Help: "Trickled metric samples stored",
		}),

		trickleBatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xat_trickle_batches_total",
			Help: "Trickle batches received",
		}),

		apiKeyRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xat_api_key_rejections_total",
			Help: "Agent requests rejected for an unknown or revoked key",
		}),

		rateLimitRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xat_rate_limited_total",
			Help: "Requests rejected by the per-credential rate limiter",
		}, []string{"class"}),

		comparisonsRun: promauto.NewCounter(prometheus.CounterOpts{
			Name: "xat_loadtest_comparisons_total",
			Help: "Load-test comparison requests served",
		}),
	}
}

func (c *Collector) ObserveRequest(method, route string, status int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) FileUploaded(size int64) {
	c.filesUploaded.Inc()
	c.uploadBytes.Add(float64(size))
}

func (c *Collector) TrickleBatch(samples int) {
	c.trickleBatches.Inc()
	c.trickleSamples.Add(float64(samples))
}

func (c *Collector) APIKeyRejected() {
	c.apiKeyRejections.Inc()
}

func (c *Collector) RateLimited(class string) {
	c.rateLimitRejected.WithLabelValues(class).Inc()
}

func (c *Collector) ComparisonRun() {
	c.comparisonsRun.Inc()
}
