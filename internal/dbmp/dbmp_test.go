package dbmp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ymaxgit/go-pfq/internal/uapi"
)

var errTimeout = errors.New("poll timeout")

func TestDescriptorSwapRoundTrip(t *testing.T) {
	region := make([]byte, 4)
	d := NewDescriptor(region)

	d.Publish(0, 12)
	index, length := d.Peek()
	require.EqualValues(t, 0, index)
	require.EqualValues(t, 12, length)

	prevIndex, prevLen := d.Swap(1)
	require.EqualValues(t, 0, prevIndex)
	require.EqualValues(t, 12, prevLen)

	index, length = d.Peek()
	require.EqualValues(t, 1, index)
	require.EqualValues(t, 0, length)
}

func writeSlot(ring *Ring, half, i int, payload []byte, commit uint32) {
	slot := ring.Slot(half, i)
	h := uapi.PacketHeader{
		Len:    uint32(len(payload)),
		Caplen: uint32(len(payload)),
		Commit: commit,
	}
	uapi.EncodePacketHeader(slot, h)
	copy(slot[uapi.HeaderSize:], payload)
}

func TestRingReadDrainsSwappedHalf(t *testing.T) {
	const slots, slotSize = 8, 64
	region := make([]byte, RegionSize(slots, slotSize))
	ring, err := NewRing(region, slots, slotSize, 0)
	require.NoError(t, err)

	writeSlot(ring, 0, 0, []byte("hello"), 1)
	writeSlot(ring, 0, 1, []byte("world"), 1)
	ring.Descriptor().Publish(0, 2)

	polled := false
	cur, err := ring.Read(func() error {
		polled = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, polled, "queue length below half the slots should trigger a poll")
	require.Equal(t, 0, cur.Begin())
	require.Equal(t, 2, cur.End())

	require.True(t, cur.Ready(0))
	require.Equal(t, "hello", string(cur.DataAt(0)))
	require.Equal(t, "world", string(cur.DataAt(1)))

	nextIndex, nextLen := ring.Descriptor().Peek()
	require.EqualValues(t, 1, nextIndex)
	require.EqualValues(t, 0, nextLen)
}

func TestRingReadSkipsPollWhenAboveWatermark(t *testing.T) {
	const slots, slotSize = 4, 64
	region := make([]byte, RegionSize(slots, slotSize))
	ring, err := NewRing(region, slots, slotSize, 0)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		writeSlot(ring, 0, i, []byte("x"), 1)
	}
	ring.Descriptor().Publish(0, 4)

	polled := false
	_, err = ring.Read(func() error {
		polled = true
		return nil
	})
	require.NoError(t, err)
	require.False(t, polled, "a full queue should not poll")
}

func TestRingReadPropagatesPollError(t *testing.T) {
	const slots, slotSize = 4, 64
	region := make([]byte, RegionSize(slots, slotSize))
	ring, err := NewRing(region, slots, slotSize, 0)
	require.NoError(t, err)
	ring.Descriptor().Publish(0, 0)

	_, err = ring.Read(func() error { return errTimeout })
	require.ErrorIs(t, err, errTimeout)

	index, length := ring.Descriptor().Peek()
	require.EqualValues(t, 0, index, "a failed poll must not swap the descriptor")
	require.EqualValues(t, 0, length)
}

func TestCursorDataAtHonorsConfiguredOffset(t *testing.T) {
	const slots, slotSize, offset = 2, 64, 8
	region := make([]byte, RegionSize(slots, slotSize))
	ring, err := NewRing(region, slots, slotSize, offset)
	require.NoError(t, err)

	payload := []byte("payload")
	slot := ring.Slot(0, 0)
	uapi.EncodePacketHeader(slot, uapi.PacketHeader{
		Len:    uint32(len(payload)),
		Caplen: uint32(len(payload)),
		Commit: 1,
	})
	copy(slot[uapi.HeaderSize+offset:], payload)
	ring.Descriptor().Publish(0, 1)

	cur, err := ring.Read(func() error { return nil })
	require.NoError(t, err)
	require.Equal(t, "payload", string(cur.DataAt(0)), "DataAt must start reading offset bytes past the header, not at the header's fixed end")
}

func TestCursorReadyReflectsCommitFlag(t *testing.T) {
	const slots, slotSize = 2, 64
	region := make([]byte, RegionSize(slots, slotSize))
	ring, err := NewRing(region, slots, slotSize, 0)
	require.NoError(t, err)

	writeSlot(ring, 0, 0, []byte("a"), 0)
	ring.Descriptor().Publish(0, 1)

	cur, err := ring.Read(func() error { return nil })
	require.NoError(t, err)
	require.False(t, cur.Ready(0))

	slot := ring.Slot(0, 0)
	h := cur.HeaderAt(0)
	h.Commit = 1
	uapi.EncodePacketHeader(slot, h)
	require.True(t, cur.Ready(0))
}
