package dbmp

import (
	"time"

	"github.com/ymaxgit/go-pfq/internal/constants"
	"github.com/ymaxgit/go-pfq/internal/uapi"
)

// Cursor walks the slots of one half of a Ring that Read just swapped out.
// Its zero value is not usable; obtain one from Ring.Read.
type Cursor struct {
	ring  *Ring
	half  int
	index uint32
	len   int

	// Pos is the caller's current position in [Begin, End). Higher layers
	// (Endpoint.Dispatch) persist it across calls so a bounded dispatch
	// can resume a partially drained cursor on the next call instead of
	// losing the remaining slots.
	Pos int
}

// Index returns the generation index this cursor was swapped out at.
func (c *Cursor) Index() uint32 { return c.index }

// Begin returns the first valid position.
func (c *Cursor) Begin() int { return 0 }

// End returns one past the last valid position.
func (c *Cursor) End() int { return c.len }

// Next returns the position after i.
func (c *Cursor) Next(i int) int { return i + 1 }

// HeaderAt decodes the packet header at position i.
func (c *Cursor) HeaderAt(i int) uapi.PacketHeader {
	return uapi.DecodePacketHeader(c.ring.Slot(c.half, i))
}

// DataAt returns the captured payload bytes at position i, starting
// header + the ring's configured offset bytes into the slot and sized by
// that slot's header.Caplen.
func (c *Cursor) DataAt(i int) []byte {
	slot := c.ring.Slot(c.half, i)
	h := uapi.DecodePacketHeader(slot)
	start := uapi.HeaderSize + c.ring.Offset
	if start > len(slot) {
		start = len(slot)
	}
	end := start + int(h.Caplen)
	if end > len(slot) {
		end = len(slot)
	}
	return slot[start:end]
}

// RawSlot returns the full raw slot bytes (header and payload together) at
// position i, used by Endpoint.Recv to reproduce the original library's
// whole-slot memcpy semantics rather than decoding header and payload
// separately.
func (c *Cursor) RawSlot(i int) []byte {
	return c.ring.Slot(c.half, i)
}

// Ready reports whether the producer has finished publishing the slot at
// position i. A slot's generation count can be swapped out to the
// consumer slightly before every slot in it has had its commit flag set,
// so callers must poll Ready (via Yield) rather than assume every slot in
// [Begin, End) is immediately readable.
func (c *Cursor) Ready(i int) bool {
	return c.HeaderAt(i).Commit != 0
}

// Yield backs off briefly while waiting for Ready to become true,
// matching the spin-then-sleep behavior of the original pfq_yield.
func (c *Cursor) Yield() {
	time.Sleep(constants.YieldInterval)
}
