package spp

import (
	"encoding/binary"
	"fmt"

	"github.com/cygnusgs/groundlink/internal/core"
)

// Command payload constructors. Each returns the SPP payload bytes for
// one telecommand; the codec adds the header and digest.

// Ack acknowledges the current window.
func Ack() []byte { return []byte{byte(core.CmdAck)} }

// Nak reports the sequence numbers that failed verification this
// window. An empty list still produces a well-formed NAK with a zero
// count.
func Nak(seqs []uint16) []byte {
	out := []byte{byte(core.CmdNak), byte(len(seqs))}
	for _, s := range seqs {
		out = binary.BigEndian.AppendUint16(out, s)
	}
	return out
}

// XmitCount asks the spacecraft how many payloads it is holding.
func XmitCount() []byte { return []byte{byte(core.CmdXmitCount)} }

// DumpAll as the packet count requests a bulk best-effort dump of every
// outstanding payload with per-packet acknowledgment suppressed.
const DumpAll = 0xFF

// XmitHealth requests count health packets.
func XmitHealth(count uint8) []byte {
	return []byte{byte(core.CmdXmitHealth), count}
}

// XmitScience requests count science packets.
func XmitScience(count uint8) []byte {
	return []byte{byte(core.CmdXmitScience), count}
}

// Reset carries a bitmask of spacecraft subsystems to reset.
func Reset(mask uint16) []byte {
	return binary.BigEndian.AppendUint16([]byte{byte(core.CmdReset)}, mask)
}

// ReadMem requests the memory range [start, end] for downlink.
func ReadMem(start, end uint16) []byte {
	out := []byte{byte(core.CmdReadMem)}
	out = binary.BigEndian.AppendUint16(out, start)
	return binary.BigEndian.AppendUint16(out, end)
}

// WriteMem uplinks 16-bit words to the memory range [start, end].
func WriteMem(start, end uint16, words []uint16) []byte {
	out := []byte{byte(core.CmdWriteMem)}
	out = binary.BigEndian.AppendUint16(out, start)
	out = binary.BigEndian.AppendUint16(out, end)
	for _, w := range words {
		out = binary.BigEndian.AppendUint16(out, w)
	}
	return out
}

// Noop exercises the command path without side effects.
func Noop() []byte { return []byte{byte(core.CmdNoop)} }

// SetMode switches the spacecraft operating mode.
func SetMode(mode uint8) []byte {
	return []byte{byte(core.CmdSetMode), mode}
}

// GetMode asks for the current operating mode.
func GetMode() []byte { return []byte{byte(core.CmdGetMode)} }

// GetComms asks for the spacecraft's link parameter block.
func GetComms() []byte { return []byte{byte(core.CmdGetComms)} }

// MacTest requests a signed reply for end-to-end MAC verification.
func MacTest() []byte { return []byte{byte(core.CmdMacTest)} }

// CeaseXmit orders the spacecraft to stop the in-progress downlink.
func CeaseXmit() []byte { return []byte{byte(core.CmdCeaseXmit)} }

// CommsBlock is the link parameter block carried by SET_COMMS and
// returned by GET_COMMS.
type CommsBlock struct {
	Window        uint8 // packets per ACK cycle, clamped to [1,20]
	MaxRetries    uint8
	AckTimeout    uint8 // seconds
	SequenceSkew  uint8
	SpacecraftSeq uint16
	GroundSeq     uint16
	Turnaround    uint16 // milliseconds
	Power         uint8
}

const commsBlockLen = 11

// SetComms serializes the parameter block, clamping the window to its
// legal range the same way the spacecraft will.
func SetComms(b CommsBlock) []byte {
	w := b.Window
	if w < 1 {
		w = 1
	}
	if w > 20 {
		w = 20
	}
	out := []byte{byte(core.CmdSetComms), w, b.MaxRetries, b.AckTimeout, b.SequenceSkew}
	out = binary.BigEndian.AppendUint16(out, b.SpacecraftSeq)
	out = binary.BigEndian.AppendUint16(out, b.GroundSeq)
	out = binary.BigEndian.AppendUint16(out, b.Turnaround)
	return append(out, b.Power)
}

// PayloadCounts is the spacecraft's reply to XMIT_COUNT.
type PayloadCounts struct {
	Health  uint16
	Science uint16
}

// ParsePayloadCounts parses an XMIT_COUNT reply payload.
func ParsePayloadCounts(payload []byte) (PayloadCounts, error) {
	if len(payload) < 5 || core.Command(payload[0]) != core.CmdXmitCount {
		return PayloadCounts{}, fmt.Errorf("malformed XMIT_COUNT reply (%d bytes)", len(payload))
	}
	return PayloadCounts{
		Health:  binary.BigEndian.Uint16(payload[1:3]),
		Science: binary.BigEndian.Uint16(payload[3:5]),
	}, nil
}

// ParseCommsBlock parses a GET_COMMS reply payload, which mirrors the
// SET_COMMS layout.
func ParseCommsBlock(payload []byte) (CommsBlock, error) {
	if len(payload) < 1+commsBlockLen || core.Command(payload[0]) != core.CmdGetComms {
		return CommsBlock{}, fmt.Errorf("malformed GET_COMMS reply (%d bytes)", len(payload))
	}
	return CommsBlock{
		Window:        payload[1],
		MaxRetries:    payload[2],
		AckTimeout:    payload[3],
		SequenceSkew:  payload[4],
		SpacecraftSeq: binary.BigEndian.Uint16(payload[5:7]),
		GroundSeq:     binary.BigEndian.Uint16(payload[7:9]),
		Turnaround:    binary.BigEndian.Uint16(payload[9:11]),
		Power:         payload[11],
	}, nil
}
