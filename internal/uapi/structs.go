// Package uapi defines the fixed-layout structures exchanged with the data
// plane host: control-channel payloads and the per-slot packet header that
// lives in the mapped receive/transmit rings.
package uapi

import "unsafe"

// Binding is the Q_SO_ADD_BINDING / Q_SO_REMOVE_BINDING payload.
type Binding struct {
	GID     int32
	Ifindex int32
	Queue   int32
}

var _ [12]byte = [unsafe.Sizeof(Binding{})]byte{}

// GroupJoin is the Q_SO_GROUP_JOIN payload. GID is ANY_GROUP (-1) on
// input to request allocation, and is overwritten with the assigned gid
// by the control channel on return.
type GroupJoin struct {
	GID       int32
	Policy    int32
	ClassMask uint64
}

var _ [16]byte = [unsafe.Sizeof(GroupJoin{})]byte{}

// Steering is the Q_SO_GROUP_STEER_FUN payload: a bounded ASCII function
// name plus the target group id.
type Steering struct {
	Name [64]byte
	GID  int32
}

// GroupState is the Q_SO_GROUP_STATE payload. The bytes are opaque to the
// library — it never interprets them, only forwards them after the group
// id and their length.
type GroupState struct {
	GID  int32
	Size int32
	Data []byte
}

// Stats is the Q_SO_GET_STATS / Q_SO_GET_GROUP_STATS payload.
type Stats struct {
	Recv uint64
	Lost uint64
	Drop uint64
	Sent uint64
	Disc uint64
}

var _ [40]byte = [unsafe.Sizeof(Stats{})]byte{}

// PacketHeader is the per-slot header written by the producer before the
// captured payload, laid out to match the shared-memory wire format.
type PacketHeader struct {
	Len         uint32
	Caplen      uint32
	TstampSec   uint32
	TstampNsec  uint32
	Ifindex     int32
	QueueID     int32
	Commit      uint32
	_           uint32 // padding to keep the struct 8-byte aligned
}

var _ [32]byte = [unsafe.Sizeof(PacketHeader{})]byte{}

// SteeringName builds a fixed-width, NUL-padded name buffer from a Go
// string, truncating if necessary. It never fails: an oversized name is
// silently truncated to fit, matching the bounded-ASCII contract in
// spec.md §6.
func SteeringName(name string) [64]byte {
	var buf [64]byte
	n := copy(buf[:], name)
	_ = n
	return buf
}
