package tx

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ymaxgit/go-pfq/internal/dbmp"
	"github.com/ymaxgit/go-pfq/internal/uapi"
)

func newTestRing(t *testing.T, flush, wakeup func() error) (*Ring, *dbmp.Ring) {
	t.Helper()
	const slots, slotSize = 4, 160
	region := make([]byte, dbmp.RegionSize(slots, slotSize))
	ring, err := dbmp.NewRing(region, slots, slotSize, 0)
	require.NoError(t, err)
	return NewRing(ring, flush, wakeup), ring
}

func TestEnqueueFillsHalfThenReportsFull(t *testing.T) {
	tx, ring := newTestRing(t, nil, nil)
	payload := []byte("ping")

	for i := 0; i < ring.Slots; i++ {
		ok, err := tx.Enqueue(payload)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := tx.Enqueue(payload)
	require.NoError(t, err)
	require.False(t, ok, "enqueue past the half's slot count should report full, not error")

	_, length := ring.Descriptor().Peek()
	require.EqualValues(t, ring.Slots, length)
}

func TestEnqueueRejectsOversizedPayload(t *testing.T) {
	tx, ring := newTestRing(t, nil, nil)
	_, err := tx.Enqueue(make([]byte, ring.SlotSize))
	require.Error(t, err)
}

func TestFlushInvokesHook(t *testing.T) {
	var flushed int32
	tx, _ := newTestRing(t, func() error {
		atomic.AddInt32(&flushed, 1)
		return nil
	}, nil)

	_, err := tx.Enqueue([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, tx.Flush())
	require.EqualValues(t, 1, atomic.LoadInt32(&flushed))
}

func TestThreadedModeWakesUpWithoutManualWakeup(t *testing.T) {
	woken := make(chan struct{}, 8)
	tx, _ := newTestRing(t, nil, func() error {
		select {
		case woken <- struct{}{}:
		default:
		}
		return nil
	})

	require.NoError(t, tx.StartThreaded(0))
	defer tx.Stop()

	_, err := tx.Enqueue([]byte("x"))
	require.NoError(t, err)

	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("threaded mode never woke the consumer")
	}
}

func TestStopIsIdempotentWithoutStart(t *testing.T) {
	tx, _ := newTestRing(t, nil, nil)
	require.NoError(t, tx.Stop())
	require.NoError(t, tx.Stop())
}

func TestEnqueueHonorsConfiguredOffset(t *testing.T) {
	const slots, slotSize, offset = 4, 160, 16
	region := make([]byte, dbmp.RegionSize(slots, slotSize))
	ring, err := dbmp.NewRing(region, slots, slotSize, offset)
	require.NoError(t, err)
	tx := NewRing(ring, nil, nil)

	ok, err := tx.Enqueue([]byte("hello"))
	require.NoError(t, err)
	require.True(t, ok)

	slot := ring.Slot(0, 0)
	require.Equal(t, "hello", string(slot[uapi.HeaderSize+offset:uapi.HeaderSize+offset+5]))
}

func TestConsumerDrainsViaDescriptorSwap(t *testing.T) {
	tx, ring := newTestRing(t, nil, nil)
	_, err := tx.Enqueue([]byte("hello"))
	require.NoError(t, err)
	_, err = tx.Enqueue([]byte("world"))
	require.NoError(t, err)

	prevIndex, length := ring.Descriptor().Swap(1)
	require.EqualValues(t, 0, prevIndex)
	require.EqualValues(t, 2, length)

	slot := ring.Slot(int(prevIndex&1), 0)
	require.Equal(t, "hello", string(slot[uapi.HeaderSize:uapi.HeaderSize+5]))
}
