// Package display renders received frames for the operator console. It
// sits on the best-effort side of the station: rendering may lag or drop
// frames without ever blocking the protocol path.
package display

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cygnusgs/groundlink/internal/ax25"
	"github.com/cygnusgs/groundlink/internal/core"
	"github.com/cygnusgs/groundlink/internal/spp"
)

// Record is the JSON line written per frame.
type Record struct {
	Kind    string  `json:"kind"`
	Source  string  `json:"source,omitempty"`
	Seq     uint16  `json:"seq,omitempty"`
	Week    uint16  `json:"gps_week,omitempty"`
	Sow     float64 `json:"gps_sow,omitempty"`
	Command string  `json:"command,omitempty"`
	MacOK   *bool   `json:"mac_ok,omitempty"`
	Len     int     `json:"len"`
	Raw     string  `json:"raw"`
}

// Renderer decodes frames as far as it can and writes one JSON record
// per frame. Decode failures still produce a record; a frame the
// protocol path rejected is exactly the one an operator wants to see.
type Renderer struct {
	codec  *spp.Codec
	framer *ax25.Framer
	w      io.Writer
}

// New builds a renderer writing to w.
func New(codec *spp.Codec, framer *ax25.Framer, w io.Writer) *Renderer {
	return &Renderer{codec: codec, framer: framer, w: w}
}

// Render writes one frame's record.
func (r *Renderer) Render(frame []byte) error {
	rec := Record{
		Kind: core.KindUnknown.String(),
		Len:  len(frame),
		Raw:  hex.EncodeToString(frame),
	}
	kind := r.codec.Classify(frame)
	rec.Kind = kind.String()
	if h, err := ax25.ParseHeader(frame); err == nil {
		rec.Source = h.Source.String()
	}

	switch kind {
	case core.KindTM, core.KindTC:
		if _, sppBytes, err := r.framer.Unwrap(frame); err == nil {
			if p, err := r.codec.Unwrap(sppBytes); err == nil {
				ok := p.Valid()
				rec.Seq = p.Seq
				rec.Week = p.Week
				rec.Sow = p.Sow
				rec.Command = p.Command().String()
				rec.MacOK = &ok
			}
		}
	case core.KindOA:
		rec.Command = core.Command(frame[len(frame)-1]).String()
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.w, string(line))
	return err
}
