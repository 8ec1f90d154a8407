// Package metrics provides Prometheus metrics for the page-storage engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Image layer metrics
	ImageLayerWritesTotal    *prometheus.CounterVec
	ImageLayerWriteDuration  *prometheus.HistogramVec
	ImageLayerReadsTotal     *prometheus.CounterVec
	ImageLayerReadDuration   *prometheus.HistogramVec
	ImageLayerBytesWritten   prometheus.Counter
	ImageLayersLoadedTotal   prometheus.Gauge

	// Directory read-modify-write metrics
	DirectoryRMWTotal    *prometheus.CounterVec
	DirectoryRMWDuration *prometheus.HistogramVec

	// Transaction buffer metrics
	TxBufferCommitsTotal   prometheus.Counter
	TxBufferPendingPuts    prometheus.Gauge
	TxBufferPendingDeletes prometheus.Gauge

	// Tenant background loop metrics
	CheckpointIterationsTotal *prometheus.CounterVec
	CheckpointDuration        *prometheus.HistogramVec
	GCIterationsTotal         *prometheus.CounterVec
	GCDuration                *prometheus.HistogramVec

	ServerUptimeSeconds prometheus.Gauge
	ServerStartTime     time.Time
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	m.ImageLayerWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pageserver_image_layer_writes_total",
			Help: "Total number of image layer writer finish/abort operations",
		},
		[]string{"outcome"},
	)

	m.ImageLayerWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pageserver_image_layer_write_duration_seconds",
			Help:    "Duration of image layer finish() calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	m.ImageLayerReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pageserver_image_layer_reads_total",
			Help: "Total number of get_value_reconstruct_data calls",
		},
		[]string{"result"},
	)

	m.ImageLayerReadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pageserver_image_layer_read_duration_seconds",
			Help:    "Duration of image layer reads in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"result"},
	)

	m.ImageLayerBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pageserver_image_layer_bytes_written_total",
			Help: "Total bytes written to VALUES chapters",
		},
	)

	m.ImageLayersLoadedTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pageserver_image_layers_loaded",
			Help: "Number of image layer handles currently in the Loaded state",
		},
	)

	m.DirectoryRMWTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pageserver_directory_rmw_total",
			Help: "Total number of directory read-modify-write operations",
		},
		[]string{"directory", "op", "status"},
	)

	m.DirectoryRMWDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pageserver_directory_rmw_duration_seconds",
			Help:    "Duration of directory read-modify-write operations in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
		},
		[]string{"directory"},
	)

	m.TxBufferCommitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pageserver_txbuffer_commits_total",
			Help: "Total number of transaction buffer Finish() commits",
		},
	)

	m.TxBufferPendingPuts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pageserver_txbuffer_pending_puts",
			Help: "Pending put count in the open transaction buffer",
		},
	)

	m.TxBufferPendingDeletes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pageserver_txbuffer_pending_deletes",
			Help: "Pending range-delete count in the open transaction buffer",
		},
	)

	m.CheckpointIterationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pageserver_checkpoint_iterations_total",
			Help: "Total number of checkpoint loop iterations",
		},
		[]string{"tenant_id", "status"},
	)

	m.CheckpointDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pageserver_checkpoint_duration_seconds",
			Help:    "Duration of checkpoint_iteration calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tenant_id"},
	)

	m.GCIterationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pageserver_gc_iterations_total",
			Help: "Total number of GC loop iterations",
		},
		[]string{"tenant_id", "status"},
	)

	m.GCDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pageserver_gc_duration_seconds",
			Help:    "Duration of gc_iteration calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tenant_id"},
	)

	m.ServerUptimeSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pageserver_uptime_seconds",
			Help: "Process uptime in seconds",
		},
	)

	go m.updateUptime()

	return m
}

// updateUptime periodically updates the process uptime metric.
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.ServerUptimeSeconds.Set(time.Since(m.ServerStartTime).Seconds())
	}
}

// RecordImageLayerWrite records an image layer writer finish/abort.
func (m *Metrics) RecordImageLayerWrite(outcome string, duration time.Duration, bytesWritten int) {
	m.ImageLayerWritesTotal.WithLabelValues(outcome).Inc()
	m.ImageLayerWriteDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if bytesWritten > 0 {
		m.ImageLayerBytesWritten.Add(float64(bytesWritten))
	}
}

// RecordImageLayerRead records a get_value_reconstruct_data call.
func (m *Metrics) RecordImageLayerRead(result string, duration time.Duration) {
	m.ImageLayerReadsTotal.WithLabelValues(result).Inc()
	m.ImageLayerReadDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordDirectoryRMW records a directory read-modify-write operation.
func (m *Metrics) RecordDirectoryRMW(directory, op, status string, duration time.Duration) {
	m.DirectoryRMWTotal.WithLabelValues(directory, op, status).Inc()
	m.DirectoryRMWDuration.WithLabelValues(directory).Observe(duration.Seconds())
}

// RecordCheckpointIteration records one checkpoint loop iteration.
func (m *Metrics) RecordCheckpointIteration(tenantID, status string, duration time.Duration) {
	m.CheckpointIterationsTotal.WithLabelValues(tenantID, status).Inc()
	m.CheckpointDuration.WithLabelValues(tenantID).Observe(duration.Seconds())
}

// RecordGCIteration records one GC loop iteration.
func (m *Metrics) RecordGCIteration(tenantID, status string, duration time.Duration) {
	m.GCIterationsTotal.WithLabelValues(tenantID, status).Inc()
	m.GCDuration.WithLabelValues(tenantID).Observe(duration.Seconds())
}
