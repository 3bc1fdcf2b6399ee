package transport

import (
	"io"
	"log/slog"

	"github.com/cygnusgs/groundlink/internal/core"
)

// Lithium frames AX.25 bytes for the Lithium-1 radio's serial
// interface: an 8-byte header carrying sync bytes, a payload length and
// a Fletcher-style running checksum, then the payload, then a trailing
// 2-byte checksum over header and payload.
//
// Receive-side checksums are computed but not enforced; a mismatch is
// logged and the frame passed on anyway. The deployed link behaves this
// way and marginal passes depend on it.
type Lithium struct {
	log *slog.Logger
}

const lithiumHeaderLen = 8

var lithiumSync = [4]byte{0x48, 0x65, 0x20, 0x04}

// NewLithium returns a Lithium serial framer.
func NewLithium(log *slog.Logger) *Lithium {
	return &Lithium{log: log}
}

// checksum is the radio's running additive checksum.
func checksum(bs ...[]byte) (ckA, ckB byte) {
	for _, b := range bs {
		for _, v := range b {
			ckA += v
			ckB += ckA
		}
	}
	return ckA, ckB
}

// Wrap builds header + frame + trailing checksum.
func (l *Lithium) Wrap(frame []byte) []byte {
	out := make([]byte, lithiumHeaderLen, lithiumHeaderLen+len(frame)+2)
	copy(out, lithiumSync[:])
	out[4] = 0x00
	out[5] = byte(len(frame))
	out[6], out[7] = checksum(out[2:6])
	out = append(out, frame...)
	ckA, ckB := checksum(out[2:])
	return append(out, ckA, ckB)
}

// Unwrap strips the 8-byte header and 2-byte trailer. Checksums are
// recomputed for logging only.
func (l *Lithium) Unwrap(wire []byte) ([]byte, error) {
	if len(wire) < lithiumHeaderLen+2 {
		return nil, core.ErrFrameTooShort
	}
	payload := wire[lithiumHeaderLen : len(wire)-2]
	ckA, ckB := checksum(wire[2 : len(wire)-2])
	if ckA != wire[len(wire)-2] || ckB != wire[len(wire)-1] {
		l.log.Warn("lithium trailing checksum mismatch",
			"want_a", wire[len(wire)-2], "want_b", wire[len(wire)-1],
			"got_a", ckA, "got_b", ckB)
	}
	return payload, nil
}

// ReadFrame reads one header, validates the sync bytes, then reads the
// declared payload and trailing checksum.
func (l *Lithium) ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [lithiumHeaderLen]byte
	for {
		if _, err := io.ReadFull(r, hdr[:1]); err != nil {
			return nil, err
		}
		if hdr[0] != lithiumSync[0] {
			continue
		}
		if _, err := io.ReadFull(r, hdr[1:]); err != nil {
			return nil, err
		}
		if hdr[1] != lithiumSync[1] {
			l.log.Warn("lithium sync lost, resyncing")
			continue
		}
		break
	}
	body := make([]byte, int(hdr[5])+2)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	wire := append(hdr[:], body...)
	return l.Unwrap(wire)
}
