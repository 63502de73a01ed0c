package uapi

import (
	"encoding/binary"
	"fmt"
)

// Marshal encodes a control-channel payload into its wire bytes,
// little-endian, matching the host's native byte order on the platforms
// this library targets.
func Marshal(v any) ([]byte, error) {
	switch t := v.(type) {
	case *Binding:
		buf := make([]byte, 12)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(t.GID))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(t.Ifindex))
		binary.LittleEndian.PutUint32(buf[8:12], uint32(t.Queue))
		return buf, nil
	case *GroupJoin:
		buf := make([]byte, 16)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(t.GID))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(t.Policy))
		binary.LittleEndian.PutUint64(buf[8:16], t.ClassMask)
		return buf, nil
	case *Steering:
		buf := make([]byte, 68)
		copy(buf[0:64], t.Name[:])
		binary.LittleEndian.PutUint32(buf[64:68], uint32(t.GID))
		return buf, nil
	case *Stats:
		buf := make([]byte, 40)
		binary.LittleEndian.PutUint64(buf[0:8], t.Recv)
		binary.LittleEndian.PutUint64(buf[8:16], t.Lost)
		binary.LittleEndian.PutUint64(buf[16:24], t.Drop)
		binary.LittleEndian.PutUint64(buf[24:32], t.Sent)
		binary.LittleEndian.PutUint64(buf[32:40], t.Disc)
		return buf, nil
	default:
		return nil, fmt.Errorf("uapi: Marshal: unsupported type %T", v)
	}
}

// Unmarshal decodes wire bytes into a control-channel payload.
func Unmarshal(buf []byte, v any) error {
	switch t := v.(type) {
	case *Binding:
		if len(buf) < 12 {
			return fmt.Errorf("uapi: Unmarshal: Binding needs 12 bytes, got %d", len(buf))
		}
		t.GID = int32(binary.LittleEndian.Uint32(buf[0:4]))
		t.Ifindex = int32(binary.LittleEndian.Uint32(buf[4:8]))
		t.Queue = int32(binary.LittleEndian.Uint32(buf[8:12]))
		return nil
	case *GroupJoin:
		if len(buf) < 16 {
			return fmt.Errorf("uapi: Unmarshal: GroupJoin needs 16 bytes, got %d", len(buf))
		}
		t.GID = int32(binary.LittleEndian.Uint32(buf[0:4]))
		t.Policy = int32(binary.LittleEndian.Uint32(buf[4:8]))
		t.ClassMask = binary.LittleEndian.Uint64(buf[8:16])
		return nil
	case *Stats:
		if len(buf) < 40 {
			return fmt.Errorf("uapi: Unmarshal: Stats needs 40 bytes, got %d", len(buf))
		}
		t.Recv = binary.LittleEndian.Uint64(buf[0:8])
		t.Lost = binary.LittleEndian.Uint64(buf[8:16])
		t.Drop = binary.LittleEndian.Uint64(buf[16:24])
		t.Sent = binary.LittleEndian.Uint64(buf[24:32])
		t.Disc = binary.LittleEndian.Uint64(buf[32:40])
		return nil
	default:
		return fmt.Errorf("uapi: Unmarshal: unsupported type %T", v)
	}
}

// DecodePacketHeader reads a PacketHeader from the start of a ring slot.
func DecodePacketHeader(slot []byte) PacketHeader {
	return PacketHeader{
		Len:        binary.LittleEndian.Uint32(slot[0:4]),
		Caplen:     binary.LittleEndian.Uint32(slot[4:8]),
		TstampSec:  binary.LittleEndian.Uint32(slot[8:12]),
		TstampNsec: binary.LittleEndian.Uint32(slot[12:16]),
		Ifindex:    int32(binary.LittleEndian.Uint32(slot[16:20])),
		QueueID:    int32(binary.LittleEndian.Uint32(slot[20:24])),
		Commit:     binary.LittleEndian.Uint32(slot[24:28]),
	}
}

// EncodePacketHeader writes h into the start of a ring slot. Producers
// (real or simulated) must write the header and payload before setting
// Commit; callers that need the commit flag to be the last visible write
// should call EncodePacketHeader with Commit=0 and then set the commit
// word directly with an atomic store.
func EncodePacketHeader(slot []byte, h PacketHeader) {
	binary.LittleEndian.PutUint32(slot[0:4], h.Len)
	binary.LittleEndian.PutUint32(slot[4:8], h.Caplen)
	binary.LittleEndian.PutUint32(slot[8:12], h.TstampSec)
	binary.LittleEndian.PutUint32(slot[12:16], h.TstampNsec)
	binary.LittleEndian.PutUint32(slot[16:20], uint32(h.Ifindex))
	binary.LittleEndian.PutUint32(slot[20:24], uint32(h.QueueID))
	binary.LittleEndian.PutUint32(slot[24:28], h.Commit)
}

// HeaderSize is the on-wire size of PacketHeader.
const HeaderSize = 28
