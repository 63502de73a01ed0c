package pfq

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructuredError(t *testing.T) {
	err := NewError("SET_CAPLEN", ErrCodeInvalidParams, "caplen must be positive")
	require.Equal(t, "SET_CAPLEN", err.Op)
	require.Equal(t, ErrCodeInvalidParams, err.Code)
	require.Equal(t, "pfq: caplen must be positive (op=SET_CAPLEN)", err.Error())
}

func TestErrorWithErrno(t *testing.T) {
	err := NewErrorWithErrno("ADD_BINDING", syscall.ENODEV)
	require.Equal(t, syscall.ENODEV, err.Errno)
	require.Equal(t, ErrCodeNoSuchDevice, err.Code)
}

func TestGroupError(t *testing.T) {
	err := NewGroupError("GROUP_LEAVE", 7, ErrCodeNoSuchGroup, "group not joined")
	require.EqualValues(t, 7, err.GID)
	require.Contains(t, err.Error(), "gid=7")
}

func TestWrapErrorPreservesStructuredContext(t *testing.T) {
	inner := NewGroupError("GROUP_JOIN", 3, ErrCodeGroupAccessDenied, "denied")
	wrapped := WrapError("JoinGroup", inner)
	require.Equal(t, "JoinGroup", wrapped.Op)
	require.Equal(t, ErrCodeGroupAccessDenied, wrapped.Code)
	require.EqualValues(t, 3, wrapped.GID)
}

func TestWrapErrorMapsRawErrno(t *testing.T) {
	wrapped := WrapError("Enable", syscall.EBUSY)
	require.Equal(t, ErrCodeAlreadyEnabled, wrapped.Code)
	require.True(t, IsErrno(wrapped, syscall.EBUSY))
}

func TestWrapErrorNilIsNil(t *testing.T) {
	require.Nil(t, WrapError("Close", nil))
}

func TestIsComparesAgainstLegacyPfqError(t *testing.T) {
	err := NewError("Read", ErrCodeNotEnabled, "queue not enabled")
	require.ErrorIs(t, err, ErrNotEnabled)
}

func TestIsCodeAndIsErrno(t *testing.T) {
	err := NewErrorWithErrno("TxBind", syscall.ENOENT)
	require.True(t, IsCode(err, ErrCodeNoSuchGroup))
	require.True(t, IsErrno(err, syscall.ENOENT))
	require.False(t, IsCode(err, ErrCodeTimeout))
}
