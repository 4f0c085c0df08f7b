package endpoint

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/monasticacademy/gotcpip/pkg/tcpip"
	"github.com/monasticacademy/gotcpip/pkg/tun"
)

// mtu bounds the size of a single outbound segment. ipHeaderLen and
// tcpHeaderLen are fixed because this core never produces options.
const (
	mtu          = 1500
	ipHeaderLen  = 20
	tcpHeaderLen = 20
	ttl          = 64
	sendWindow   = 8
)

// Conn is one TCP connection's state: the send and receive sequence
// spaces, cached outbound header prototypes, and the current RFC 793
// state. A Conn is driven entirely by Accept (to create it) and
// OnPacket (to advance it); it never initiates activity on its own.
type Conn struct {
	quad Quad

	send SendSequence
	recv RecvSequence

	// ipProto and tcpProto are prototype outbound headers: source and
	// destination are fixed at accept time, and each Send mutates Seq,
	// Ack, and whichever flags are staged, then clears SYN/FIN once sent.
	ipProto  layers.IPv4
	tcpProto layers.TCP

	state State

	buf gopacket.SerializeBuffer
}

// Quad returns the connection's four-tuple.
func (c *Conn) Quad() Quad { return c.quad }

// State returns the connection's current RFC 793 state.
func (c *Conn) State() State { return c.state }

// Accept evaluates an inbound segment to an unknown quad. If it is not
// a SYN, the segment is silently dropped (nil, nil). If it is a SYN, a
// new connection is created in SynRcvd, a SYN+ACK is sent, and the
// connection is returned for the caller to insert into its table.
func Accept(dev tun.Device, ipv4 *layers.IPv4, tcpseg *layers.TCP, payload []byte) (*Conn, error) {
	if !tcpseg.SYN {
		verbosef("ignoring unsolicited non-SYN segment to unknown quad: %s", summarizeTCP(ipv4, tcpseg, payload))
		return nil, nil
	}

	c := &Conn{
		quad: quadFrom(ipv4, tcpseg),
		recv: RecvSequence{
			IRS: tcpseg.Seq,
			NXT: tcpseg.Seq + 1,
			WND: tcpseg.Window,
		},
		send: SendSequence{
			ISS: 0,
			UNA: 0,
			NXT: 0,
			WND: sendWindow,
		},
		ipProto: layers.IPv4{
			Version:  4,
			TTL:      ttl,
			Protocol: layers.IPProtocolTCP,
			SrcIP:    dupIP(ipv4.DstIP),
			DstIP:    dupIP(ipv4.SrcIP),
		},
		tcpProto: layers.TCP{
			SrcPort: tcpseg.DstPort,
			DstPort: tcpseg.SrcPort,
			Window:  sendWindow,
		},
		state: StateSynRcvd,
		buf:   gopacket.NewSerializeBuffer(),
	}

	verbosef("accepted SYN, now %s: %s", c.state, c.quad)

	c.tcpProto.SYN = true
	c.tcpProto.ACK = true
	if _, err := c.Send(dev, nil); err != nil {
		return nil, fmt.Errorf("sending SYN+ACK: %w", err)
	}

	return c, nil
}

// Send emits one segment carrying payload, with the prototype headers'
// currently-staged flags, sequence = SND.NXT, acknowledgment = RCV.NXT.
// It returns the number of payload bytes actually transmitted, which may
// be less than len(payload) if it does not fit within one MTU.
func (c *Conn) Send(dev tun.Device, payload []byte) (int, error) {
	headers := ipHeaderLen + tcpHeaderLen
	room := mtu - headers
	if room < 0 {
		room = 0
	}
	if len(payload) > room {
		payload = payload[:room]
	}

	c.tcpProto.Seq = c.send.NXT
	c.tcpProto.Ack = c.recv.NXT
	c.tcpProto.Window = c.send.WND

	verbosef("sending %s", summarizeTCP(&c.ipProto, &c.tcpProto, payload))

	serialized, err := tcpip.Serialize(&c.ipProto, &c.tcpProto, payload, c.buf)
	if err != nil {
		return 0, fmt.Errorf("serializing segment: %w", err)
	}

	cp := make([]byte, len(serialized))
	copy(cp, serialized)
	if err := dev.Send(cp); err != nil {
		return 0, fmt.Errorf("sending segment: %w", err)
	}

	sent := len(payload)
	c.send.NXT += uint32(sent)
	if c.tcpProto.SYN {
		c.send.NXT++
		c.tcpProto.SYN = false
	}
	if c.tcpProto.FIN {
		c.send.NXT++
		c.tcpProto.FIN = false
	}

	return sent, nil
}

// acceptable implements the RFC 793 S3.3 segment-acceptability test
// against the current receive window.
func (c *Conn) acceptable(tcpseg *layers.TCP, payload []byte) bool {
	nxt := c.recv.NXT
	wnd := uint32(c.recv.WND)
	end := nxt + wnd

	slen := uint32(len(payload))
	if tcpseg.SYN {
		slen++
	}
	if tcpseg.FIN {
		slen++
	}

	seq := tcpseg.Seq

	if slen == 0 {
		if wnd == 0 {
			return seq == nxt
		}
		return inWrappingRange(nxt, seq, end)
	}

	if wnd == 0 {
		return false
	}

	seqEnd := seq + slen - 1
	return inWrappingRange(nxt, seq, end) || inWrappingRange(nxt, seqEnd, end)
}

// OnPacket advances the connection on receipt of one segment matching
// its quad: it checks receive acceptability, then ACK acceptability and
// state transitions, per RFC 793 S3.3/S3.9.
func (c *Conn) OnPacket(dev tun.Device, ipv4 *layers.IPv4, tcpseg *layers.TCP, payload []byte) error {
	if !c.acceptable(tcpseg, payload) {
		verbosef("unacceptable segment on %s in %s, sending empty ACK: %s", c.quad, c.state, summarizeTCP(ipv4, tcpseg, payload))
		_, err := c.Send(dev, nil)
		return err
	}

	slen := uint32(len(payload))
	if tcpseg.SYN {
		slen++
	}
	if tcpseg.FIN {
		slen++
	}
	c.recv.NXT = tcpseg.Seq + slen

	if !tcpseg.ACK {
		return nil
	}

	// 1. SynRcvd -> Estab: the peer has acknowledged our SYN.
	if c.state == StateSynRcvd {
		if ackAcceptableNonStrict(c.send.UNA, tcpseg.Ack, c.send.NXT) {
			c.state = StateEstab
			verbosef("%s now %s", c.quad, c.state)
		}
	}

	// 2. Estab / FinWait1 / FinWait2: advance UNA on an acceptable ACK.
	// Entering this branch from Estab means the peer has now ACKed the
	// handshake, and this core has no application data to send, so it
	// closes its half immediately.
	if c.state == StateEstab || c.state == StateFinWait1 || c.state == StateFinWait2 {
		if ackAcceptableStrict(c.send.UNA, tcpseg.Ack, c.send.NXT) {
			c.send.UNA = tcpseg.Ack

			if c.state == StateEstab {
				c.tcpProto.FIN = true
				if _, err := c.Send(dev, nil); err != nil {
					return fmt.Errorf("sending FIN: %w", err)
				}
				c.state = StateFinWait1
				verbosef("%s now %s", c.quad, c.state)
			}
		}
	}

	// 3. FinWait1 -> FinWait2: our FIN has now been acknowledged. SYN
	// consumed one sequence number and FIN consumed another, so the ACK
	// must cover ISS+2.
	if c.state == StateFinWait1 && c.send.UNA == c.send.ISS+2 {
		c.state = StateFinWait2
		verbosef("%s now %s", c.quad, c.state)
	}

	// 4. Any state, FIN set on the incoming segment.
	if tcpseg.FIN {
		switch c.state {
		case StateFinWait2:
			if _, err := c.Send(dev, nil); err != nil {
				return fmt.Errorf("acking FIN: %w", err)
			}
			c.state = StateTimeWait
			verbosef("%s now %s", c.quad, c.state)
		default:
			fatalf("unimplemented transition: FIN received on %s while in %s", c.quad, c.state)
		}
	}

	return nil
}

// sndRst sends a bare RST with sequence and acknowledgment forced to
// zero. It is reserved for the cases spec.md documents as open
// questions (an unacceptable ACK in SynRcvd, an unsolicited non-SYN to
// an unknown quad) and is not invoked on the hot path of this core.
func (c *Conn) sndRst(dev tun.Device) error {
	c.tcpProto.RST = true
	c.tcpProto.Seq = 0
	c.tcpProto.Ack = 0
	c.tcpProto.Window = c.send.WND

	verbosef("sending RST on %s", c.quad)

	serialized, err := tcpip.Serialize(&c.ipProto, &c.tcpProto, nil, c.buf)
	if err != nil {
		return fmt.Errorf("serializing RST: %w", err)
	}

	cp := make([]byte, len(serialized))
	copy(cp, serialized)
	if err := dev.Send(cp); err != nil {
		return fmt.Errorf("sending RST: %w", err)
	}

	c.tcpProto.RST = false
	return nil
}

func dupIP(ip []byte) []byte {
	cp := make([]byte, len(ip))
	copy(cp, ip)
	return cp
}
