package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMetrics(t *testing.T) {
	m, err := NewRunMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveStage(StageIngest, time.Now(), 120)
	m.ObserveStage(StageIngest, time.Now(), 30)
	m.ObserveStage(StageTopFeatures, time.Now(), 7)
	m.PartitionFailed(StageConformation)
	m.AddSkipped(2)
	m.AddDaltonMerges(3)
	m.AddDiscardedConformations(1)

	assert.Equal(t, 150.0, testutil.ToFloat64(m.ItemsTotal.WithLabelValues(StageIngest)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.ItemsTotal.WithLabelValues(StageTopFeatures)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PartitionErrors.WithLabelValues(StageConformation)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SkippedRecords))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DaltonMerges))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiscardedConfs))
}

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRunMetrics(reg)
	require.NoError(t, err)
	_, err = NewRunMetrics(reg)
	assert.Error(t, err)
}

func TestNilRunMetrics(t *testing.T) {
	var m *RunMetrics
	assert.NotPanics(t, func() {
		m.ObserveStage(StageOutput, time.Now(), 1)
		m.PartitionFailed(StageDalton)
		m.AddSkipped(1)
		m.AddDaltonMerges(1)
		m.AddDiscardedConformations(1)
	})
}

func TestWriteTextfile(t *testing.T) {
	m, err := NewRunMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	m.AddDaltonMerges(4)

	path := filepath.Join(t.TempDir(), "featurekey.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "featurekey_dalton_merges_total 4"))
}
