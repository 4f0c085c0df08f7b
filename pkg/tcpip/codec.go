// Package tcpip parses and builds the IPv4 and TCP headers that the
// connection engine needs, as thin wrappers around gopacket's layer
// decoders and serializers.
package tcpip

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ParseIPv4 parses the leading IPv4 header out of a raw datagram and
// returns the header along with the bytes following it (the TCP/UDP/etc
// segment). It does not itself reject non-TCP protocols; callers check
// ipv4.Protocol.
func ParseIPv4(raw []byte) (*layers.IPv4, []byte, error) {
	packet := gopacket.NewPacket(raw, layers.LayerTypeIPv4, gopacket.NoCopy)
	layer := packet.Layer(layers.LayerTypeIPv4)
	if layer == nil {
		return nil, nil, fmt.Errorf("not an ipv4 packet (%d bytes)", len(raw))
	}

	ipv4, ok := layer.(*layers.IPv4)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected layer type for ipv4")
	}

	return ipv4, ipv4.LayerPayload(), nil
}

// ParseTCP parses a TCP header from the bytes immediately following an
// IPv4 header and returns the header along with its payload.
func ParseTCP(rest []byte) (*layers.TCP, []byte, error) {
	packet := gopacket.NewPacket(rest, layers.LayerTypeTCP, gopacket.NoCopy)
	layer := packet.Layer(layers.LayerTypeTCP)
	if layer == nil {
		return nil, nil, fmt.Errorf("not a tcp segment (%d bytes)", len(rest))
	}

	tcpseg, ok := layer.(*layers.TCP)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected layer type for tcp")
	}

	return tcpseg, tcpseg.Payload, nil
}

// Serialize writes an IPv4 header, a TCP header, and a payload into buf
// and returns the resulting bytes. The TCP checksum is computed over the
// IPv4 pseudo-header, the TCP header, and the payload passed here.
func Serialize(ipv4 *layers.IPv4, tcpseg *layers.TCP, payload []byte, buf gopacket.SerializeBuffer) ([]byte, error) {
	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}

	buf.Clear()

	p, err := buf.AppendBytes(len(payload))
	if err != nil {
		return nil, fmt.Errorf("appending tcp payload (%d bytes): %w", len(payload), err)
	}
	copy(p, payload)

	if err := tcpseg.SetNetworkLayerForChecksum(ipv4); err != nil {
		return nil, fmt.Errorf("setting network layer for checksum: %w", err)
	}

	if err := tcpseg.SerializeTo(buf, opts); err != nil {
		return nil, fmt.Errorf("serializing tcp header: %w", err)
	}

	if err := ipv4.SerializeTo(buf, opts); err != nil {
		return nil, fmt.Errorf("serializing ipv4 header: %w", err)
	}

	return buf.Bytes(), nil
}
