package endpoint

import (
	"fmt"
	"net"

	"github.com/google/gopacket/layers"
)

// Quad is the four-tuple that identifies a TCP connection: the peer's
// address and port, and the local address and port the peer was
// addressing. It is comparable so it can be used directly as a map key.
type Quad struct {
	SrcIP   [4]byte
	SrcPort uint16
	DstIP   [4]byte
	DstPort uint16
}

func (q Quad) String() string {
	return fmt.Sprintf("%s:%d => %s:%d",
		net.IP(q.SrcIP[:]), q.SrcPort, net.IP(q.DstIP[:]), q.DstPort)
}

func quadFrom(ipv4 *layers.IPv4, tcpseg *layers.TCP) Quad {
	return Quad{
		SrcIP:   toIPv4Array(ipv4.SrcIP),
		SrcPort: uint16(tcpseg.SrcPort),
		DstIP:   toIPv4Array(ipv4.DstIP),
		DstPort: uint16(tcpseg.DstPort),
	}
}

func toIPv4Array(ip net.IP) [4]byte {
	var a [4]byte
	v4 := ip.To4()
	copy(a[:], v4)
	return a
}
