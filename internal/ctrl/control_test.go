package ctrl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ymaxgit/go-pfq/internal/constants"
	"github.com/ymaxgit/go-pfq/internal/host"
	"github.com/ymaxgit/go-pfq/internal/uapi"
)

func newTestController(t *testing.T) (*Controller, *host.FakeHost) {
	t.Helper()
	h := host.NewFakeHost()
	c, err := Open(h)
	require.NoError(t, err)
	return c, h
}

func TestGetID(t *testing.T) {
	c, h := newTestController(t)
	h.SetResponder(constants.AFPFQ, constants.OpGetID, func(in []byte) ([]byte, error) {
		return leBytes32(7), nil
	})

	id, err := c.GetID()
	require.NoError(t, err)
	require.EqualValues(t, 7, id)
}

func TestSetSlotsAndCaplenAndOffset(t *testing.T) {
	c, h := newTestController(t)
	require.NoError(t, c.SetSlots(4096))
	require.NoError(t, c.SetCaplen(128))
	require.NoError(t, c.SetOffset(16))

	h.SetResponder(constants.AFPFQ, constants.OpGetCaplen, func(in []byte) ([]byte, error) {
		return leBytes32(128), nil
	})
	h.SetResponder(constants.AFPFQ, constants.OpGetOffset, func(in []byte) ([]byte, error) {
		return leBytes32(16), nil
	})

	caplen, err := c.GetCaplen()
	require.NoError(t, err)
	require.Equal(t, 128, caplen)

	offset, err := c.GetOffset()
	require.NoError(t, err)
	require.Equal(t, 16, offset)
}

func TestToggleQueueAndStatus(t *testing.T) {
	c, h := newTestController(t)
	enabled := false
	h.SetResponder(constants.AFPFQ, constants.OpGetStatus, func(in []byte) ([]byte, error) {
		v := uint32(0)
		if enabled {
			v = 1
		}
		return leBytes32(v), nil
	})

	status, err := c.GetStatus()
	require.NoError(t, err)
	require.False(t, status)

	require.NoError(t, c.ToggleQueue(true))
	enabled = true

	status, err = c.GetStatus()
	require.NoError(t, err)
	require.True(t, status)
}

func TestAddAndRemoveBinding(t *testing.T) {
	c, h := newTestController(t)
	b := uapi.Binding{GID: 3, Ifindex: 2, Queue: constants.AnyQueue}

	require.NoError(t, c.AddBinding(b))
	require.NoError(t, c.RemoveBinding(b))

	// Calls[0] is the OpenSocket issued by Open.
	require.Len(t, h.Calls, 3)
	require.Equal(t, "SetSockopt", h.Calls[1].Op)
	require.Equal(t, constants.OpAddBinding, h.Calls[1].Name)
	require.Equal(t, constants.OpRemoveBinding, h.Calls[2].Name)
}

func TestGroupJoinReturnsAssignedGID(t *testing.T) {
	c, h := newTestController(t)
	h.SetResponder(constants.AFPFQ, constants.OpGroupJoin, func(in []byte) ([]byte, error) {
		var j uapi.GroupJoin
		require.NoError(t, uapi.Unmarshal(in, &j))
		require.Equal(t, int32(constants.AnyGroup), j.GID)
		j.GID = 5
		out, err := uapi.Marshal(&j)
		require.NoError(t, err)
		return out, nil
	})

	gid, err := c.GroupJoin(constants.AnyGroup, constants.PolicyShared, constants.DefaultClassMask)
	require.NoError(t, err)
	require.EqualValues(t, 5, gid)
}

func TestGetGroupStatsWritesGIDIntoRequest(t *testing.T) {
	c, h := newTestController(t)
	var seenGID uint32
	h.SetResponder(constants.AFPFQ, constants.OpGetGroupStats, func(in []byte) ([]byte, error) {
		seenGID = leUint32(in[0:4])
		s := uapi.Stats{Recv: 42}
		return uapi.Marshal(&s)
	})

	stats, err := c.GetGroupStats(9)
	require.NoError(t, err)
	require.EqualValues(t, 9, seenGID)
	require.EqualValues(t, 42, stats.Recv)
}

func TestTxLifecycle(t *testing.T) {
	c, _ := newTestController(t)
	require.NoError(t, c.TxBind(uapi.Binding{GID: constants.AnyGroup, Ifindex: 4, Queue: 0}))
	require.NoError(t, c.TxStart(constants.TxThreaded, 0))
	require.NoError(t, c.TxWakeup())
	require.NoError(t, c.TxFlush())
	require.NoError(t, c.TxStop())
}

func TestCloseThenOperationFails(t *testing.T) {
	c, _ := newTestController(t)
	require.NoError(t, c.Close())
	_, err := c.GetID()
	require.Error(t, err)
}
