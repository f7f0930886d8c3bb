package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnregisteredMetrics_NotCollectedByDefaultRegistry(t *testing.T) {
	m := NewUnregisteredMetrics()
	m.StaleFetches.Inc()
	m.Cache.WithLabelValues("hit").Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(m.StaleFetches), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Cache.WithLabelValues("hit")), 0)

	// Registering succeeds only because nothing registered these collectors before.
	require.NoError(t, prometheus.DefaultRegisterer.Register(m.StaleFetches))
	assert.True(t, prometheus.DefaultRegisterer.Unregister(m.StaleFetches))
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()
	a.PublishErrors.Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(a.PublishErrors), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.PublishErrors), 0)
}
