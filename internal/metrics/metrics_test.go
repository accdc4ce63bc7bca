package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Swept("tag", 3)
	m.Swept("tag", 0)
	m.Attached("symptom")
	m.Uploaded(1024)
	m.CleanupFailed("blobs")
	m.CleanupFailed("blobs")
	m.OwnerRemoved()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.TermsSwept.WithLabelValues("tag")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LinksAttached.WithLabelValues("symptom")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(m.UploadedBytes))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CleanupFailures.WithLabelValues("blobs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OwnersRemoved))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Swept("tag", 1)
		m.Attached("tag")
		m.Uploaded(1)
		m.CleanupFailed("x")
		m.OwnerRemoved()
	})
}
