package core

import "time"

// OAKeyLen is the length of the open-access shared secret. The OA
// command byte sits at a fixed frame offset, so the secret's length is
// part of the wire format.
const OAKeyLen = 16

// Keys holds the key material shared read-only by every codec. It is
// loaded once at startup and never mutated afterwards; everything that
// needs a key receives a pointer to the same instance.
type Keys struct {
	// SpacecraftMAC authenticates TM packets (spacecraft to ground).
	SpacecraftMAC [16]byte
	// GroundMAC authenticates TC packets (ground to spacecraft).
	GroundMAC [16]byte
	// OA is the open-access shared secret transmitted in the clear
	// ahead of an OA command byte.
	OA [OAKeyLen]byte
	// Cipher and CipherIV drive the optional uplink confidentiality
	// layer. The IV is fixed per deployment, not per frame.
	Cipher   [16]byte
	CipherIV [8]byte
}

// MACKeyFor selects the MAC key verifying or signing a packet of the
// given kind. OA and unknown kinds have no MAC key.
func (k *Keys) MACKeyFor(kind Kind) ([16]byte, bool) {
	switch kind {
	case KindTM:
		return k.SpacecraftMAC, true
	case KindTC:
		return k.GroundMAC, true
	case KindOA, KindUnknown:
		return [16]byte{}, false
	}
	return [16]byte{}, false
}

// LinkParams are the ARQ and pacing parameters for one session, fixed at
// startup. The spacecraft-side equivalents are adjusted via SET_COMMS.
type LinkParams struct {
	// WindowSize is the number of telemetry packets per ACK cycle,
	// clamped to [1,20].
	WindowSize int
	// MaxRetries is the per-downlink-session NAK budget before the
	// controller sends CEASE_XMIT and gives up.
	MaxRetries int
	// AckTimeout bounds how long the controller blocks on the inbound
	// queue before synthesizing a bad-frame event.
	AckTimeout time.Duration
	// SequenceSkew is the allowed difference between expected and
	// received sequence numbers.
	SequenceSkew int
	// Turnaround is the minimum half-duplex switch delay slept before
	// every physical send.
	Turnaround time.Duration
	// HealthPerPacket and SciencePerPacket are how many payloads one
	// telemetry packet of each kind carries.
	HealthPerPacket  int
	SciencePerPacket int
}

// ClampWindow forces WindowSize into its legal range.
func (p *LinkParams) ClampWindow() {
	if p.WindowSize < 1 {
		p.WindowSize = 1
	}
	if p.WindowSize > 20 {
		p.WindowSize = 20
	}
}
