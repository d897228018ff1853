package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.IncSuccess("otp-cleanup")
	m.IncSuccess("otp-cleanup")
	m.IncFailure("otp-cleanup")
	m.AddSwept("otp-cleanup", 7)
	m.ObserveDuration("otp-cleanup", 250*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.success.WithLabelValues("otp-cleanup")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failure.WithLabelValues("otp-cleanup")))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.swept.WithLabelValues("otp-cleanup")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestCronJobMetricsIgnoresNonPositiveSweeps(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.AddSwept("otp-cleanup", 0)
	m.AddSwept("otp-cleanup", -3)

	assert.Equal(t, float64(0), testutil.ToFloat64(m.swept.WithLabelValues("otp-cleanup")))
}

func TestCronJobMetricsNormalizesEmptyJobLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.IncSuccess("")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.success.WithLabelValues("unknown")))
}

func TestCronJobMetricsNilRegistererIsNoop(t *testing.T) {
	m := NewCronJobMetrics(nil)
	require.NotNil(t, m)

	m.IncSuccess("otp-cleanup")
	m.IncFailure("otp-cleanup")
	m.AddSwept("otp-cleanup", 3)
	m.ObserveDuration("otp-cleanup", time.Second)
}
