package endpoint

import (
	"fmt"

	"github.com/google/gopacket/layers"

	"github.com/monasticacademy/gotcpip/pkg/tcpip"
	"github.com/monasticacademy/gotcpip/pkg/tun"
)

// Table maps a connection's four-tuple to its state. It is owned by a
// single event loop; there is no locking because there is no concurrent
// access.
type Table struct {
	conns map[Quad]*Conn
}

// NewTable returns an empty connection table.
func NewTable() *Table {
	return &Table{conns: make(map[Quad]*Conn)}
}

// Len returns the number of connections currently tracked.
func (t *Table) Len() int { return len(t.conns) }

// Lookup returns the connection for a quad, if any.
func (t *Table) Lookup(q Quad) (*Conn, bool) {
	c, ok := t.conns[q]
	return c, ok
}

// Handle parses one raw IPv4 datagram read from dev and dispatches it:
// to an existing connection's OnPacket if its quad is known, or to
// Accept if not. Parse failures are logged and dropped, and non-TCP
// datagrams are dropped without logging; neither is an error from the
// caller's point of view.
func (t *Table) Handle(dev tun.Device, raw []byte) error {
	ipv4, rest, err := tcpip.ParseIPv4(raw)
	if err != nil {
		errorf("ignoring weird packet: %v", err)
		return nil
	}

	if ipv4.Protocol != layers.IPProtocolTCP {
		return nil
	}

	tcpseg, payload, err := tcpip.ParseTCP(rest)
	if err != nil {
		errorf("ignoring weird packet: %v", err)
		return nil
	}

	q := quadFrom(ipv4, tcpseg)

	if conn, found := t.conns[q]; found {
		if err := conn.OnPacket(dev, ipv4, tcpseg, payload); err != nil {
			return fmt.Errorf("handling segment on %s: %w", q, err)
		}
		return nil
	}

	conn, err := Accept(dev, ipv4, tcpseg, payload)
	if err != nil {
		return fmt.Errorf("accepting connection on %s: %w", q, err)
	}
	if conn != nil {
		t.conns[q] = conn
	}
	return nil
}
