package dbmp

import (
	"fmt"
)

// DescriptorSize is the 8-byte-aligned size reserved at the start of a
// mapped region for the Descriptor word, matching the original layout's
// struct pfq_queue_descr.
const DescriptorSize = 8

// Ring is a double-buffer mapped-protocol region: one Descriptor plus two
// alternating halves, each large enough to hold Slots slots of SlotSize
// bytes.
type Ring struct {
	Slots    int
	SlotSize int
	// Offset is the endpoint's configured per-packet payload offset: the
	// number of bytes, beyond the fixed header, to skip before the
	// payload starts within a slot.
	Offset int

	region []byte
	desc   *Descriptor
	halves [2][]byte
}

// RegionSize returns the total byte size a mapped region must have to
// back a ring of the given geometry.
func RegionSize(slots, slotSize int) int64 {
	half := int64(slots) * int64(slotSize)
	return DescriptorSize + 2*half
}

// NewRing views region as a double-buffer ring of the given geometry.
// region must be at least RegionSize(slots, slotSize) bytes. offset is
// the endpoint's configured payload offset, used by Cursor.DataAt (and
// the TX producer) to locate the payload within each slot.
func NewRing(region []byte, slots, slotSize, offset int) (*Ring, error) {
	want := RegionSize(slots, slotSize)
	if int64(len(region)) < want {
		return nil, fmt.Errorf("dbmp: region too small: have %d bytes, need %d", len(region), want)
	}
	half := slots * slotSize
	r := &Ring{
		Slots:    slots,
		SlotSize: slotSize,
		Offset:   offset,
		region:   region,
		desc:     NewDescriptor(region),
	}
	r.halves[0] = region[DescriptorSize : DescriptorSize+half]
	r.halves[1] = region[DescriptorSize+half : DescriptorSize+2*half]
	return r, nil
}

// Descriptor returns the ring's Shared Queue Descriptor, used directly by
// tests and by the TX path (which is the producer rather than the
// consumer).
func (r *Ring) Descriptor() *Descriptor {
	return r.desc
}

// Half returns the byte slice for half 0 or 1.
func (r *Ring) Half(i int) []byte {
	return r.halves[i&1]
}

// Slot returns the byte slice of slot i within the given half.
func (r *Ring) Slot(half int, i int) []byte {
	start := i * r.SlotSize
	return r.halves[half&1][start : start+r.SlotSize]
}
