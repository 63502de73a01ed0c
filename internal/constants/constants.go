// Package constants holds the control-op codes, wire-struct sizes, and
// timing constants shared across the pfq client library.
package constants

import "time"

// AFPFQ is the protocol family historically registered by the PFQ kernel
// module. The kernel module itself is out of this library's scope (see
// spec.md Non-goals); this value is only used to open the control socket.
const AFPFQ = 27

// Control operation codes, mirroring the Q_SO_* getsockopt/setsockopt
// levels and the Q_SO_* option names of the original library.
const (
	OpGetID = iota + 1
	OpSetSlots
	OpSetCaplen
	OpGetCaplen
	OpSetOffset
	OpGetOffset
	OpToggleQueue
	OpGetQueueMem
	OpSetTstamp
	OpGetTstamp
	OpAddBinding
	OpRemoveBinding
	OpGetGroups
	OpGroupSteerFun
	OpGroupState
	OpGroupJoin
	OpGroupLeave
	OpGetStatus
	OpGetStats
	OpGetGroupStats
	OpTxBind
	OpTxStart
	OpTxStop
	OpTxFlush
	OpTxWakeup
)

// OpName returns a short stable name for a control op, used as the prefix
// of control-channel error messages ("<OP>: <cause>") and in debug logs.
func OpName(op int) string {
	switch op {
	case OpGetID:
		return "GET_ID"
	case OpSetSlots:
		return "SET_SLOTS"
	case OpSetCaplen:
		return "SET_CAPLEN"
	case OpGetCaplen:
		return "GET_CAPLEN"
	case OpSetOffset:
		return "SET_OFFSET"
	case OpGetOffset:
		return "GET_OFFSET"
	case OpToggleQueue:
		return "TOGGLE_QUEUE"
	case OpGetQueueMem:
		return "GET_QUEUE_MEM"
	case OpSetTstamp:
		return "SET_TSTAMP"
	case OpGetTstamp:
		return "GET_TSTAMP"
	case OpAddBinding:
		return "ADD_BINDING"
	case OpRemoveBinding:
		return "REMOVE_BINDING"
	case OpGetGroups:
		return "GET_GROUPS"
	case OpGroupSteerFun:
		return "GROUP_STEER_FUN"
	case OpGroupState:
		return "GROUP_STATE"
	case OpGroupJoin:
		return "GROUP_JOIN"
	case OpGroupLeave:
		return "GROUP_LEAVE"
	case OpGetStatus:
		return "GET_STATUS"
	case OpGetStats:
		return "GET_STATS"
	case OpGetGroupStats:
		return "GET_GROUP_STATS"
	case OpTxBind:
		return "TX_BIND"
	case OpTxStart:
		return "TX_START"
	case OpTxStop:
		return "TX_STOP"
	case OpTxFlush:
		return "TX_FLUSH"
	case OpTxWakeup:
		return "TX_WAKEUP"
	default:
		return "UNKNOWN_OP"
	}
}

// Group policies, mirroring Q_GROUP_*.
const (
	PolicyUndefined = iota
	PolicyPrivate
	PolicyRestricted
	PolicyShared
)

// Special group/queue identifiers.
const (
	AnyGroup = -1
	AnyQueue = -1
)

// DefaultClassMask mirrors Q_CLASS_DEFAULT.
const DefaultClassMask uint64 = 1

// Transmit modes, mirroring Q_TX_ASYNC_*.
const (
	TxDeferred = iota
	TxThreaded
)

// Geometry and ring defaults.
const (
	DefaultCaplen = 96
	DefaultOffset = 0
	DefaultSlots  = 4096

	// MaxSteeringNameLen bounds the ASCII steering-function name carried
	// in a GROUP_STEER_FUN payload.
	MaxSteeringNameLen = 64
)

// Align8 rounds n up to the next multiple of 8, matching the C ALIGN8 macro.
func Align8(n int) int {
	return (n + 7) &^ 7
}

// SQD.data bit layout: length occupies the low bits, index occupies the
// rest. The original C swap expression "(index+1) << 24" implies a 24-bit
// length field; this rewrite names the width explicitly instead of
// re-deriving it from the shift at every call site.
const (
	DataLengthBits = 24
	DataLengthMask = uint64(1)<<DataLengthBits - 1
)

// Timing defaults for poll/backoff behavior.
const (
	// YieldInterval is how long Cursor.Yield sleeps between commit-flag
	// polls while waiting for a producer to finish publishing a slot.
	YieldInterval = 10 * time.Microsecond
)
