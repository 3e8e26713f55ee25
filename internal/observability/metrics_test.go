package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshotAggregatesPerRoute(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/api/v1/tenants/acme/sla/backfill", "POST", 200, 40*time.Millisecond)
	m.RecordRequest("/api/v1/tenants/acme/sla/backfill", "POST", 200, 60*time.Millisecond)
	m.RecordRequest("/admin/sweep", "POST", 500, 10*time.Millisecond)
	m.RecordError("/admin/sweep", "POST", "INTERNAL_ERROR")

	snapshot := m.Snapshot()
	require.Len(t, snapshot, 2)

	sweep := snapshot[0]
	assert.Equal(t, "/admin/sweep", sweep.Path)
	assert.Equal(t, int64(1), sweep.Requests)
	assert.Equal(t, int64(1), sweep.ServerErrors)
	assert.Equal(t, int64(1), sweep.ErrorCodes["INTERNAL_ERROR"])

	backfill := snapshot[1]
	assert.Equal(t, int64(2), backfill.Requests)
	assert.Equal(t, int64(0), backfill.ServerErrors)
	assert.InDelta(t, 50.0, backfill.AvgLatencyMS, 0.001)
	assert.Empty(t, backfill.ErrorCodes)
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/x", "GET", 200, time.Millisecond)
	m.RecordError("/x", "GET", "NOT_FOUND")
	assert.Nil(t, m.Snapshot())
}
