package group

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ymaxgit/go-pfq/internal/constants"
	"github.com/ymaxgit/go-pfq/internal/ctrl"
	"github.com/ymaxgit/go-pfq/internal/host"
	"github.com/ymaxgit/go-pfq/internal/uapi"
)

func newTestManager(t *testing.T) (*Manager, *host.FakeHost) {
	t.Helper()
	h := host.NewFakeHost()
	c, err := ctrl.Open(h)
	require.NoError(t, err)
	return New(c, h), h
}

func TestJoinRejectsUndefinedPolicy(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Join(constants.AnyGroup, constants.PolicyUndefined, constants.DefaultClassMask)
	require.Error(t, err)
}

func TestJoinSetsDefaultGroup(t *testing.T) {
	m, h := newTestManager(t)
	h.SetResponder(constants.AFPFQ, constants.OpGroupJoin, func(in []byte) ([]byte, error) {
		var j uapi.GroupJoin
		require.NoError(t, uapi.Unmarshal(in, &j))
		j.GID = 11
		return uapi.Marshal(&j)
	})

	gid, err := m.Join(constants.AnyGroup, constants.PolicyShared, constants.DefaultClassMask)
	require.NoError(t, err)
	require.EqualValues(t, 11, gid)
	require.EqualValues(t, 11, m.GID())
}

func TestBindResolvesIfindexAndRejectsWithoutDefaultGroup(t *testing.T) {
	m, h := newTestManager(t)

	err := m.Bind("eth0", constants.AnyQueue)
	require.Error(t, err, "bind before join should fail")

	h.PresetIfindex("eth0", 2)
	h.SetResponder(constants.AFPFQ, constants.OpGroupJoin, func(in []byte) ([]byte, error) {
		var j uapi.GroupJoin
		uapi.Unmarshal(in, &j)
		j.GID = 4
		return uapi.Marshal(&j)
	})
	_, err = m.Join(constants.AnyGroup, constants.PolicyShared, constants.DefaultClassMask)
	require.NoError(t, err)

	require.NoError(t, m.Bind("eth0", constants.AnyQueue))

	err = m.BindGroup(4, "eth1", constants.AnyQueue)
	require.Error(t, err, "unresolvable device should fail")
}

func TestLeaveClearsDefaultGroup(t *testing.T) {
	m, h := newTestManager(t)
	h.SetResponder(constants.AFPFQ, constants.OpGroupJoin, func(in []byte) ([]byte, error) {
		var j uapi.GroupJoin
		uapi.Unmarshal(in, &j)
		j.GID = 6
		return uapi.Marshal(&j)
	})
	_, err := m.Join(constants.AnyGroup, constants.PolicyPrivate, constants.DefaultClassMask)
	require.NoError(t, err)

	require.NoError(t, m.Leave())
	require.EqualValues(t, constants.AnyGroup, m.GID())
	require.Error(t, m.Leave(), "leaving with no default group should fail")
}

func TestGroupStatsForwardsGID(t *testing.T) {
	m, h := newTestManager(t)
	var seen uint32
	h.SetResponder(constants.AFPFQ, constants.OpGetGroupStats, func(in []byte) ([]byte, error) {
		seen = binLE32(in)
		s := uapi.Stats{Sent: 7}
		return uapi.Marshal(&s)
	})

	stats, err := m.Stats(3)
	require.NoError(t, err)
	require.EqualValues(t, 3, seen)
	require.EqualValues(t, 7, stats.Sent)
}

func binLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
