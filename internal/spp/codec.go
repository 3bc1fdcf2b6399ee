package spp

import (
	"encoding/binary"

	"github.com/cygnusgs/groundlink/internal/auth"
	"github.com/cygnusgs/groundlink/internal/ax25"
	"github.com/cygnusgs/groundlink/internal/core"
	"github.com/cygnusgs/groundlink/internal/gpstime"
)

// oaCommandOffset is where the single OA command byte sits in a full
// AX.25 frame: right after the link header and the shared secret.
const oaCommandOffset = ax25.HeaderLen + core.OAKeyLen

// sppMinFrameLen is the shortest AX.25 frame that can hold a TM/TC
// packet.
const sppMinFrameLen = 48

// Codec seals and opens TM/TC packets. TC packets are signed with the
// ground key, TM packets verified with the spacecraft key; the key
// split means a captured downlink digest is useless for forging uplink.
type Codec struct {
	keys  *core.Keys
	clock gpstime.Clock
}

// NewCodec builds a codec over the session keys. clock supplies the
// GPS timestamp stamped on outbound packets.
func NewCodec(keys *core.Keys, clock gpstime.Clock) *Codec {
	return &Codec{keys: keys, clock: clock}
}

// Wrap serializes one TM/TC packet: header, payload, then a digest over
// everything from the timestamp onward.
func (c *Codec) Wrap(kind core.Kind, seq uint16, payload []byte) ([]byte, error) {
	if kind != core.KindTM && kind != core.KindTC {
		return nil, core.ErrNotSppPacket
	}
	if seq == 0 {
		return nil, core.ErrSequenceZero
	}
	if len(payload) == 0 {
		return nil, core.ErrPayloadMissing
	}

	out := make([]byte, 0, headerLen+len(payload)+digestLen)
	out = append(out, kind.TypeByte())
	out = binary.BigEndian.AppendUint16(out, uint16(lengthBias+len(payload)))
	week, sow := c.clock()
	out = gpstime.Encode(out, week, sow)
	out = binary.BigEndian.AppendUint16(out, seq)
	out = append(out, payload...)

	key, _ := c.keys.MACKeyFor(kind)
	digest := auth.Sign(out[3:], key)
	return append(out, digest[:]...), nil
}

// Unwrap parses and verifies one TM/TC packet. A digest mismatch is not
// an error; it is reported in the packet's ValidationMask and left to
// the ARQ layer.
func (c *Codec) Unwrap(spp []byte) (*Packet, error) {
	if len(spp) < MinLen {
		return nil, core.ErrFrameTooShort
	}
	kind := core.KindOf(spp[0])
	if kind != core.KindTM && kind != core.KindTC {
		return nil, core.ErrNotSppPacket
	}
	declared := int(binary.BigEndian.Uint16(spp[1:3]))
	if declared < lengthBias+1 || headerLen+(declared-lengthBias)+digestLen > len(spp) {
		return nil, core.ErrFrameTooShort
	}

	p := &Packet{Kind: kind}
	var err error
	p.Week, p.Sow, err = gpstime.Decode(spp[3:13])
	if err != nil {
		return nil, err
	}
	p.Seq = binary.BigEndian.Uint16(spp[13:15])

	end := headerLen + (declared - lengthBias)
	p.Payload = append([]byte(nil), spp[headerLen:end]...)
	copy(p.Digest[:], spp[end:end+digestLen])

	key, _ := c.keys.MACKeyFor(kind)
	p.ValidationMask = auth.Verify(spp[3:end], p.Digest[:], key)
	return p, nil
}

// WrapOA builds the body of an open-access emergency packet: the shared
// secret followed by the single command byte. No timestamp, sequence
// number or digest.
func (c *Codec) WrapOA(cmd core.Command) ([]byte, error) {
	if !cmd.IsOpenAccess() {
		return nil, core.ErrNotSppPacket
	}
	out := make([]byte, 0, core.OAKeyLen+1)
	out = append(out, c.keys.OA[:]...)
	return append(out, byte(cmd)), nil
}

// Classify inspects a complete AX.25 frame and reports whether it
// carries an open-access packet, a TM/TC packet, or neither. OA is
// checked first: the shared secret immediately after the link header
// plus a command byte in the OA range.
func (c *Codec) Classify(frame []byte) core.Kind {
	if len(frame) > oaCommandOffset {
		oa := true
		for i, k := range c.keys.OA {
			if frame[ax25.HeaderLen+i] != k {
				oa = false
				break
			}
		}
		if oa && frame[oaCommandOffset] >= 0x30 && frame[oaCommandOffset] <= 0x34 {
			return core.KindOA
		}
	}
	if len(frame) < sppMinFrameLen {
		return core.KindUnknown
	}
	if frame[14] != 0x03 || frame[15] != 0xF0 {
		return core.KindUnknown
	}
	return core.KindOf(frame[ax25.HeaderLen])
}
