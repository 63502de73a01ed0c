package pfq

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the dispatch-latency histogram buckets in
// nanoseconds, from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks receive and transmit statistics for an Endpoint.
type Metrics struct {
	RecvOps    atomic.Uint64
	RecvPkts   atomic.Uint64
	RecvBytes  atomic.Uint64
	RecvErrors atomic.Uint64

	SentOps    atomic.Uint64
	SentPkts   atomic.Uint64
	SentBytes  atomic.Uint64
	SentErrors atomic.Uint64

	QueueLenTotal atomic.Uint64
	QueueLenCount atomic.Uint64
	MaxQueueLen   atomic.Uint32

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a Metrics instance with its start time set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordRead records one dispatch/read call, its decoded packet count and
// total bytes, its latency, and whether it succeeded.
func (m *Metrics) RecordRead(packets int, bytes uint64, latencyNs uint64, success bool) {
	m.RecvOps.Add(1)
	if success {
		m.RecvPkts.Add(uint64(packets))
		m.RecvBytes.Add(bytes)
	} else {
		m.RecvErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordSend records one send/send-async call.
func (m *Metrics) RecordSend(bytes uint64, latencyNs uint64, success bool) {
	m.SentOps.Add(1)
	if success {
		m.SentPkts.Add(1)
		m.SentBytes.Add(bytes)
	} else {
		m.SentErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordQueueLen records the slot count returned by the most recent Read,
// used to track ring occupancy over time.
func (m *Metrics) RecordQueueLen(length uint32) {
	m.QueueLenTotal.Add(uint64(length))
	m.QueueLenCount.Add(1)
	for {
		current := m.MaxQueueLen.Load()
		if length <= current {
			break
		}
		if m.MaxQueueLen.CompareAndSwap(current, length) {
			break
		}
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the endpoint as stopped, fixing the uptime Snapshot reports.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics with derived rates.
type MetricsSnapshot struct {
	RecvOps    uint64
	RecvPkts   uint64
	RecvBytes  uint64
	RecvErrors uint64

	SentOps    uint64
	SentPkts   uint64
	SentBytes  uint64
	SentErrors uint64

	AvgQueueLen float64
	MaxQueueLen uint32

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	RecvPPS       float64
	SentPPS       float64
	RecvBandwidth float64
	SentBandwidth float64
	TotalOps      uint64
	TotalBytes    uint64
	ErrorRate     float64
}

// Snapshot computes a MetricsSnapshot from the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		RecvOps:     m.RecvOps.Load(),
		RecvPkts:    m.RecvPkts.Load(),
		RecvBytes:   m.RecvBytes.Load(),
		RecvErrors:  m.RecvErrors.Load(),
		SentOps:     m.SentOps.Load(),
		SentPkts:    m.SentPkts.Load(),
		SentBytes:   m.SentBytes.Load(),
		SentErrors:  m.SentErrors.Load(),
		MaxQueueLen: m.MaxQueueLen.Load(),
	}

	snap.TotalOps = snap.RecvOps + snap.SentOps
	snap.TotalBytes = snap.RecvBytes + snap.SentBytes

	queueLenTotal := m.QueueLenTotal.Load()
	queueLenCount := m.QueueLenCount.Load()
	if queueLenCount > 0 {
		snap.AvgQueueLen = float64(queueLenTotal) / float64(queueLenCount)
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.RecvPPS = float64(snap.RecvPkts) / uptimeSeconds
		snap.SentPPS = float64(snap.SentPkts) / uptimeSeconds
		snap.RecvBandwidth = float64(snap.RecvBytes) / uptimeSeconds
		snap.SentBandwidth = float64(snap.SentBytes) / uptimeSeconds
	}

	totalErrors := snap.RecvErrors + snap.SentErrors
	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(snap.TotalOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}
	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}
	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes every counter and restarts the uptime clock.
func (m *Metrics) Reset() {
	m.RecvOps.Store(0)
	m.RecvPkts.Store(0)
	m.RecvBytes.Store(0)
	m.RecvErrors.Store(0)
	m.SentOps.Store(0)
	m.SentPkts.Store(0)
	m.SentBytes.Store(0)
	m.SentErrors.Store(0)
	m.QueueLenTotal.Store(0)
	m.QueueLenCount.Store(0)
	m.MaxQueueLen.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection from Endpoint.
type Observer interface {
	ObserveRead(packets int, bytes uint64, latencyNs uint64, success bool)
	ObserveSend(bytes uint64, latencyNs uint64, success bool)
	ObserveQueueLen(length uint32)
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveRead(int, uint64, uint64, bool) {}
func (NoOpObserver) ObserveSend(uint64, uint64, bool)      {}
func (NoOpObserver) ObserveQueueLen(uint32)                {}

// MetricsObserver implements Observer by recording into a Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver returns an Observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveRead(packets int, bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordRead(packets, bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveSend(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordSend(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveQueueLen(length uint32) {
	o.metrics.RecordQueueLen(length)
}

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
