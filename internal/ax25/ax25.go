// Package ax25 encodes and parses the 16-byte AX.25 UI headers used on
// the ground-to-space link and pads uplink frames to the fixed size the
// spacecraft radio expects.
package ax25

import (
	"fmt"
	"strings"

	"github.com/cygnusgs/groundlink/internal/core"
)

// HeaderLen is the fixed AX.25 UI header size.
const HeaderLen = 16

// UplinkFrameLen is the constant total frame length TC frames are
// zero-padded to on the uplink.
const UplinkFrameLen = 253

const (
	ctrlUI  = 0x03
	pidNoL3 = 0xF0
)

// Callsign is a station identifier with its SSID.
type Callsign struct {
	Name string // up to 6 ASCII characters
	SSID uint8  // 0-15
}

func (c Callsign) String() string {
	return fmt.Sprintf("%s-%d", c.Name, c.SSID)
}

// ParseCallsign parses the "NAME-SSID" form, e.g. "W4UVA-11".
func ParseCallsign(s string) (Callsign, error) {
	name, ssid, ok := strings.Cut(s, "-")
	if !ok || name == "" || len(name) > 6 {
		return Callsign{}, fmt.Errorf("malformed callsign %q", s)
	}
	var n uint8
	if _, err := fmt.Sscanf(ssid, "%d", &n); err != nil || n > 15 {
		return Callsign{}, fmt.Errorf("malformed callsign ssid %q", s)
	}
	return Callsign{Name: name, SSID: n}, nil
}

// Header is a parsed AX.25 UI header.
type Header struct {
	Destination Callsign
	Source      Callsign
}

// encode writes one 7-byte address field. Characters are left-shifted
// one bit per AX.25; the last-address bit in the SSID byte is taken
// from last.
func encodeAddr(dst []byte, c Callsign, ssidBase byte) {
	for i := 0; i < 6; i++ {
		ch := byte(' ')
		if i < len(c.Name) {
			ch = c.Name[i]
		}
		dst[i] = ch << 1
	}
	dst[6] = c.SSID<<1 | ssidBase
}

func decodeAddr(b []byte) Callsign {
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		ch := b[i] >> 1
		if ch == ' ' {
			break
		}
		sb.WriteByte(ch)
	}
	return Callsign{Name: sb.String(), SSID: b[6] >> 1 & 0x0F}
}

// EncodeHeader serializes h into its 16-byte wire form.
func EncodeHeader(h Header) [HeaderLen]byte {
	var out [HeaderLen]byte
	encodeAddr(out[0:7], h.Destination, 0x60)
	encodeAddr(out[7:14], h.Source, 0x61)
	out[14] = ctrlUI
	out[15] = pidNoL3
	return out
}

// ParseHeader reads the 16-byte header at the front of frame.
func ParseHeader(frame []byte) (Header, error) {
	if len(frame) < HeaderLen {
		return Header{}, core.ErrFrameTooShort
	}
	if frame[14] != ctrlUI || frame[15] != pidNoL3 {
		return Header{}, core.ErrBadFrameHeader
	}
	return Header{
		Destination: decodeAddr(frame[0:7]),
		Source:      decodeAddr(frame[7:14]),
	}, nil
}

// Framer wraps SPP bytes into AX.25 frames for one link direction.
type Framer struct {
	header [HeaderLen]byte
	parsed Header
	padTC  bool
}

// NewFramer builds a framer addressing frames from src to dst. When
// fixedUplink is set, TC frames are zero-padded to UplinkFrameLen.
func NewFramer(dst, src Callsign, fixedUplink bool) *Framer {
	h := Header{Destination: dst, Source: src}
	return &Framer{header: EncodeHeader(h), parsed: h, padTC: fixedUplink}
}

// Header returns the header the framer stamps on outbound frames.
func (f *Framer) Header() Header { return f.parsed }

// Wrap prefixes the header to spp and, for padded TC uplink, extends the
// frame with zero filler to the constant uplink length.
func (f *Framer) Wrap(kind core.Kind, spp []byte) []byte {
	n := HeaderLen + len(spp)
	total := n
	if f.padTC && kind == core.KindTC && total < UplinkFrameLen {
		total = UplinkFrameLen
	}
	out := make([]byte, total)
	copy(out, f.header[:])
	copy(out[HeaderLen:], spp)
	return out
}

// Unwrap splits an inbound frame into its header and SPP payload,
// dropping any padding past the length the SPP header declares. Frames
// shorter than the declared payload are rejected rather than read past
// the end.
func (f *Framer) Unwrap(frame []byte) (Header, []byte, error) {
	h, err := ParseHeader(frame)
	if err != nil {
		return Header{}, nil, err
	}
	payload := frame[HeaderLen:]
	if len(payload) < 3 {
		return Header{}, nil, core.ErrFrameTooShort
	}
	// Type byte, then the u16 SPP length field. The SPP packet spans
	// 3 header bytes + length + the final MAC byte the length field
	// does not count.
	declared := int(payload[1])<<8 | int(payload[2])
	end := 3 + declared + 1
	if end > len(payload) {
		return Header{}, nil, core.ErrFrameTooShort
	}
	return h, payload[:end], nil
}
