// Package core defines the wire-level types shared by every layer of the
// link stack, with zero external dependencies.
package core

// Kind discriminates the packet formats carried inside an AX.25 frame.
// The set is closed: dispatchers switch over it exhaustively instead of
// falling through to a default case.
type Kind uint8

const (
	// KindUnknown marks a frame that matched neither the SPP nor the
	// open-access layout.
	KindUnknown Kind = iota
	// KindTM is a telemetry packet, spacecraft to ground.
	KindTM
	// KindTC is a telecommand packet, ground to spacecraft.
	KindTC
	// KindOA is an open-access emergency command authenticated only by a
	// shared-secret prefix. It carries no SPP header, sequence number,
	// timestamp, or MAC.
	KindOA
)

// Packet-type bytes as they appear on the wire. OA packets have no type
// byte; the AX.25 payload starts directly with the shared secret.
const (
	TypeTM = 0x08
	TypeTC = 0x18
)

// TypeByte returns the SPP packet-type byte for TM and TC kinds. OA and
// unknown kinds have no wire representation and return 0.
func (k Kind) TypeByte() uint8 {
	switch k {
	case KindTM:
		return TypeTM
	case KindTC:
		return TypeTC
	case KindOA, KindUnknown:
		return 0
	}
	return 0
}

// KindOf maps an SPP packet-type byte back to its Kind.
func KindOf(typeByte uint8) Kind {
	switch typeByte {
	case TypeTM:
		return KindTM
	case TypeTC:
		return KindTC
	}
	return KindUnknown
}

func (k Kind) String() string {
	switch k {
	case KindTM:
		return "TM"
	case KindTC:
		return "TC"
	case KindOA:
		return "OA"
	}
	return "UN"
}
