package ctrl

import "encoding/binary"

// unixSockRaw and ethPAll mirror the socket(PF_Q, SOCK_RAW, htons(ETH_P_ALL))
// call the control channel opens against. They are named locally rather
// than imported from golang.org/x/sys/unix so this package stays
// host-agnostic; host.Host.OpenSocket is the only place a real socket(2)
// call happens.
const (
	unixSockRaw = 3      // SOCK_RAW
	ethPAll     = 0x0300 // htons(ETH_P_ALL), ETH_P_ALL=0x0003
)

func leUint32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func leUint64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

func leBytes32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func putLE32(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}
