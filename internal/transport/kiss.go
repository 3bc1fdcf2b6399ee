package transport

import (
	"bufio"
	"io"

	"github.com/cygnusgs/groundlink/internal/core"
)

const (
	fend  = 0xC0
	fesc  = 0xDB
	tfend = 0xDC
	tfesc = 0xDD

	kissCmdData = 0x00
)

// Kiss frames AX.25 bytes in the KISS TNC protocol: a data-command
// frame delimited by FEND bytes with FEND/FESC byte stuffing inside.
type Kiss struct {
	// reader state survives across ReadFrame calls so partial socket
	// reads do not lose bytes.
	br *bufio.Reader
}

// NewKiss returns a KISS framer.
func NewKiss() *Kiss { return &Kiss{} }

// Wrap encodes frame as C0 00 <stuffed bytes> C0.
func (k *Kiss) Wrap(frame []byte) []byte {
	out := make([]byte, 0, len(frame)+4)
	out = append(out, fend, kissCmdData)
	for _, b := range frame {
		switch b {
		case fend:
			out = append(out, fesc, tfend)
		case fesc:
			out = append(out, fesc, tfesc)
		default:
			out = append(out, b)
		}
	}
	return append(out, fend)
}

// Unwrap decodes one complete KISS frame, delimiters included.
func (k *Kiss) Unwrap(wire []byte) ([]byte, error) {
	if len(wire) < 3 || wire[0] != fend || wire[len(wire)-1] != fend {
		return nil, core.ErrBadFrameHeader
	}
	if wire[1] != kissCmdData {
		return nil, core.ErrBadFrameHeader
	}
	return unstuff(wire[2 : len(wire)-1])
}

func unstuff(body []byte) ([]byte, error) {
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		b := body[i]
		if b != fesc {
			out = append(out, b)
			continue
		}
		i++
		if i >= len(body) {
			return nil, core.ErrBadKissEscape
		}
		switch body[i] {
		case tfend:
			out = append(out, fend)
		case tfesc:
			out = append(out, fesc)
		default:
			return nil, core.ErrBadKissEscape
		}
	}
	return out, nil
}

// ReadFrame accumulates bytes between FEND delimiters, skipping empty
// frames (back-to-back delimiters are legal keepalive on some TNCs),
// and returns the unstuffed AX.25 payload of the next data frame.
func (k *Kiss) ReadFrame(r io.Reader) ([]byte, error) {
	if k.br == nil {
		k.br = bufio.NewReader(r)
	}
	for {
		// Sync to a frame start.
		b, err := k.br.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != fend {
			continue
		}
		body, err := k.br.ReadBytes(fend)
		if err != nil {
			return nil, err
		}
		body = body[:len(body)-1]
		if len(body) == 0 {
			continue
		}
		if body[0] != kissCmdData {
			continue
		}
		payload, err := unstuff(body[1:])
		if err != nil {
			// Drop the damaged frame and resync.
			continue
		}
		// The closing FEND may double as the next frame's opener;
		// push it back so a shared delimiter is not lost.
		_ = k.br.UnreadByte()
		return payload, nil
	}
}
