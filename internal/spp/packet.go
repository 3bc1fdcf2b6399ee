// Package spp implements the spacecraft packet layer: the TM/TC packet
// format with its GPS timestamp, sequence number and MAC trailer, the
// open-access emergency packets, and the command payload formats the
// spacecraft understands.
package spp

import "github.com/cygnusgs/groundlink/internal/core"

// Layout constants for the TM/TC wire form.
const (
	headerLen = 15 // type + length + timestamp + sequence number
	digestLen = 16
	// The length field counts bytes from the timestamp through the
	// last digest byte minus one, so a packet with payload p is
	// 27 + len(p).
	lengthBias = 27

	// MinLen is the smallest well-formed packet: a one-byte command.
	MinLen = headerLen + 1 + digestLen
)

// Packet is one parsed TM or TC packet.
type Packet struct {
	Kind    core.Kind
	Week    uint16
	Sow     float64
	Seq     uint16
	Payload []byte
	Digest  [digestLen]byte

	// ValidationMask is zero when the digest verified; bit 0 is set
	// on any mismatch.
	ValidationMask uint8
}

// Command returns the command code leading the payload.
func (p *Packet) Command() core.Command {
	if len(p.Payload) == 0 {
		return core.CmdBad
	}
	return core.Command(p.Payload[0])
}

// Valid reports whether the MAC verified.
func (p *Packet) Valid() bool { return p.ValidationMask == 0 }
