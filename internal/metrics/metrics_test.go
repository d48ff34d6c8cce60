package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequestIncrementsCounterAndHistogram(t *testing.T) {
	m := New()
	m.RecordRequest("nfs3", "GETATTR", "NFS3_OK", 0.01)

	count := testutil.ToFloat64(m.requestsTotal.WithLabelValues("nfs3", "GETATTR", "NFS3_OK"))
	assert.Equal(t, float64(1), count)
}

func TestInFlightGaugeTracksStartAndFinish(t *testing.T) {
	m := New()
	m.RequestStarted()
	m.RequestStarted()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.requestsInFlight))

	m.RequestFinished()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestsInFlight))
}

func TestConnectionCounters(t *testing.T) {
	m := New()
	m.ConnectionAccepted()
	m.ConnectionAccepted()
	m.ConnectionClosed()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.connectionsAccepted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.connectionsClosed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.connectionsActive))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordRequest("nfs3", "NULL", "NFS3_OK", 0)
		m.RequestStarted()
		m.RequestFinished()
		m.RecordBytes("read", 128)
		m.ConnectionAccepted()
		m.ConnectionClosed()
		assert.Nil(t, m.Registry())
	})
}

func TestBytesTransferred(t *testing.T) {
	m := New()
	m.RecordBytes("read", 4096)
	m.RecordBytes("write", 1024)

	assert.Equal(t, float64(4096), testutil.ToFloat64(m.bytesTransferred.WithLabelValues("read")))
	assert.Equal(t, float64(1024), testutil.ToFloat64(m.bytesTransferred.WithLabelValues("write")))
}
