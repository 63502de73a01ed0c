package pfq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsRecordReadAndSend(t *testing.T) {
	m := NewMetrics()

	m.RecordRead(4, 1024, 1_000_000, true)
	m.RecordRead(0, 0, 500_000, false)
	m.RecordSend(512, 2_000_000, true)

	snap := m.Snapshot()
	require.EqualValues(t, 2, snap.RecvOps)
	require.EqualValues(t, 4, snap.RecvPkts)
	require.EqualValues(t, 1024, snap.RecvBytes)
	require.EqualValues(t, 1, snap.RecvErrors)
	require.EqualValues(t, 1, snap.SentOps)
	require.EqualValues(t, 512, snap.SentBytes)
	require.EqualValues(t, 3, snap.TotalOps)

	expectedErrorRate := float64(1) / float64(3) * 100.0
	require.InDelta(t, expectedErrorRate, snap.ErrorRate, 0.1)
}

func TestMetricsQueueLenTracksMax(t *testing.T) {
	m := NewMetrics()
	m.RecordQueueLen(10)
	m.RecordQueueLen(50)
	m.RecordQueueLen(20)

	snap := m.Snapshot()
	require.EqualValues(t, 50, snap.MaxQueueLen)
	require.InDelta(t, float64(80)/3, snap.AvgQueueLen, 0.01)
}

func TestMetricsLatencyPercentiles(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 100; i++ {
		m.RecordRead(1, 64, 10_000, true)
	}
	for i := 0; i < 5; i++ {
		m.RecordRead(1, 64, 1_000_000_000, true)
	}

	snap := m.Snapshot()
	require.Greater(t, snap.LatencyP50Ns, LatencyBuckets[0])
	require.Less(t, snap.LatencyP50Ns, LatencyBuckets[1])
	require.Greater(t, snap.LatencyP999Ns, snap.LatencyP50Ns)
}

func TestMetricsResetClearsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRead(1, 64, 10_000, true)
	m.Reset()

	snap := m.Snapshot()
	require.Zero(t, snap.RecvOps)
	require.Zero(t, snap.RecvBytes)
}

func TestNoOpObserverDiscardsEverything(t *testing.T) {
	var o NoOpObserver
	o.ObserveRead(1, 64, 100, true)
	o.ObserveSend(64, 100, true)
	o.ObserveQueueLen(4)
}

func TestMetricsObserverForwardsToMetrics(t *testing.T) {
	m := NewMetrics()
	o := NewMetricsObserver(m)
	o.ObserveRead(2, 128, 5_000, true)
	o.ObserveSend(64, 5_000, true)
	o.ObserveQueueLen(7)

	snap := m.Snapshot()
	require.EqualValues(t, 1, snap.RecvOps)
	require.EqualValues(t, 1, snap.SentOps)
	require.EqualValues(t, 7, snap.MaxQueueLen)
}
