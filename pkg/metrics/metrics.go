// Package metrics provides Prometheus metrics for feature finding runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stage labels used with the stage metrics.
const (
	StageIngest       = "ingest"
	StageMidClusters  = "mid_clusters"
	StageTopFeatures  = "top_features"
	StageDalton       = "dalton"
	StageConformation = "conformation"
	StageFilter       = "filter"
	StageOutput       = "output"
)

// RunMetrics contains the metrics of one feature finding run.
type RunMetrics struct {
	ItemsTotal      *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	PartitionErrors *prometheus.CounterVec
	SkippedRecords  prometheus.Counter
	DaltonMerges    prometheus.Counter
	DiscardedConfs  prometheus.Counter

	registry *prometheus.Registry
}

// NewRunMetrics creates the run metrics and registers them with registry.
func NewRunMetrics(registry *prometheus.Registry) (*RunMetrics, error) {
	m := &RunMetrics{registry: registry}
	m.initMetrics()

	collectors := []prometheus.Collector{
		m.ItemsTotal,
		m.StageDuration,
		m.PartitionErrors,
		m.SkippedRecords,
		m.DaltonMerges,
		m.DiscardedConfs,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register run metrics: %w", err)
		}
	}
	return m, nil
}

func (m *RunMetrics) initMetrics() {
	m.ItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featurekey_stage_items_total",
			Help: "Number of items produced by each pipeline stage",
		},
		[]string{"stage"},
	)
	m.StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "featurekey_stage_duration_seconds",
			Help:    "Time taken by each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4.4min
		},
		[]string{"stage"},
	)
	m.PartitionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featurekey_partition_errors_total",
			Help: "Number of partitions whose work failed",
		},
		[]string{"stage"},
	)
	m.SkippedRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "featurekey_skipped_records_total",
		Help: "Number of malformed input records skipped",
	})
	m.DaltonMerges = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "featurekey_dalton_merges_total",
		Help: "Number of features merged by Dalton correction",
	})
	m.DiscardedConfs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "featurekey_discarded_conformations_total",
		Help: "Number of drift sub-peaks without member detections",
	})
}

// ObserveStage records the duration and output size of a stage. It is a
// no-op on a nil receiver.
func (m *RunMetrics) ObserveStage(stage string, start time.Time, items int) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	m.ItemsTotal.WithLabelValues(stage).Add(float64(items))
}

// PartitionFailed counts a failed partition of stage.
func (m *RunMetrics) PartitionFailed(stage string) {
	if m == nil {
		return
	}
	m.PartitionErrors.WithLabelValues(stage).Inc()
}

// AddSkipped counts skipped input records.
func (m *RunMetrics) AddSkipped(n int) {
	if m == nil {
		return
	}
	m.SkippedRecords.Add(float64(n))
}

// AddDaltonMerges counts Dalton correction merges.
func (m *RunMetrics) AddDaltonMerges(n int) {
	if m == nil {
		return
	}
	m.DaltonMerges.Add(float64(n))
}

// AddDiscardedConformations counts discarded drift sub-peaks.
func (m *RunMetrics) AddDiscardedConformations(n int) {
	if m == nil {
		return
	}
	m.DiscardedConfs.Add(float64(n))
}

// WriteTextfile writes all registered metrics in the text exposition
// format, for collection by the node exporter textfile collector.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
