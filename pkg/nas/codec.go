package nas

// Codec parses/renders the inner NAS message bytes. Implementing a real
// 3GPP TS 24.301 codec is out of scope for this module (spec.md §1); this
// interface is the boundary the core consumes it through.
type Codec interface {
	// Decode parses an uplink NAS buffer (post security-envelope removal)
	// into a typed Message. buf carries no outer security header.
	Decode(buf []byte) (*Message, error)
	// Encode renders a Message's inner IEs back to wire bytes, ready to be
	// handed to the security envelope for protection.
	Encode(msg *Message) ([]byte, error)
}

// OuterHeader is the parsed form of the 1-byte (PD, SH) prefix every NAS PDU
// on the S1 interface carries before the security envelope.
type OuterHeader struct {
	PD ProtocolDiscriminator
	SH SecurityHeader
}

// ParseOuterHeader splits the leading PD/SH byte. For SH=0 the PD occupies
// the low nibble; for protected headers the byte is (SH<<4 | PD) per
// 3GPP TS 24.301 §9.3.1, with PD always 7 (EMM) at the outer layer.
func ParseOuterHeader(b byte) OuterHeader {
	return OuterHeader{
		SH: SecurityHeader(b >> 4),
		PD: ProtocolDiscriminator(b & 0x0f),
	}
}
