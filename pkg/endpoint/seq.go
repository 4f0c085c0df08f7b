package endpoint

// SendSequence holds the send-sequence variables for a connection's
// outbound direction (RFC 793 S3.2).
type SendSequence struct {
	ISS uint32 // initial send sequence, chosen at accept time
	UNA uint32 // oldest unacknowledged sequence number
	NXT uint32 // next sequence number to send
	WND uint16 // send window: bytes the peer will accept beyond UNA

	// UP, WL1, WL2 are carried for completeness but not exercised by
	// this core: no urgent data and no window-update bookkeeping.
	UP  bool
	WL1 uint32
	WL2 uint32
}

// RecvSequence holds the receive-sequence variables for a connection's
// inbound direction.
type RecvSequence struct {
	IRS uint32 // initial receive sequence, the peer's SYN sequence number
	NXT uint32 // next expected sequence number from the peer
	WND uint16 // receive window advertised to the peer

	UP bool // urgent flag placeholder, not exercised
}

// inWrappingRange reports whether x lies in the half-open interval
// [start, end) under 32-bit modular arithmetic. Unsigned subtraction
// wraps around 2^32 the same way the sequence space does, so a single
// difference comparison covers both the non-wrapped and wrapped cases:
// x is in range iff it is fewer than (end-start) steps past start,
// measuring forward from start with wraparound.
func inWrappingRange(start, x, end uint32) bool {
	return x-start < end-start
}

// ackAcceptableNonStrict reports whether ack lies in [una, nxt], the
// non-strict lower bound used once, at the SynRcvd -> Estab transition,
// to accept the ACK of our SYN.
func ackAcceptableNonStrict(una, ack, nxt uint32) bool {
	return inWrappingRange(una, ack, nxt+1)
}

// ackAcceptableStrict reports whether ack lies in (una, nxt], the
// standard RFC 793 S3.3 acceptable-ACK test: SND.UNA < SEG.ACK =< SND.NXT.
func ackAcceptableStrict(una, ack, nxt uint32) bool {
	return inWrappingRange(una+1, ack, nxt+1)
}
