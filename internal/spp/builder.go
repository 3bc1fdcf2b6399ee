package spp

import "github.com/cygnusgs/groundlink/internal/core"

// Builder stages the fields of one outbound packet and serializes it in
// a single Build step once everything required is set. Nothing touches
// the wire form until Build, so setting fields in any order is fine and
// a half-configured packet can never be transmitted.
type Builder struct {
	codec   *Codec
	kind    core.Kind
	seq     uint16
	payload []byte
	built   bool
}

// NewBuilder starts a packet of the given kind.
func (c *Codec) NewBuilder(kind core.Kind) *Builder {
	return &Builder{codec: c, kind: kind}
}

// Sequence sets the packet's sequence number.
func (b *Builder) Sequence(seq uint16) *Builder {
	b.seq = seq
	return b
}

// Payload sets the command payload.
func (b *Builder) Payload(p []byte) *Builder {
	b.payload = p
	return b
}

// Build serializes the packet. It fails if the sequence number or
// payload is missing, and a builder can only be built once.
func (b *Builder) Build() ([]byte, error) {
	if b.built {
		return nil, core.ErrBuilderReused
	}
	out, err := b.codec.Wrap(b.kind, b.seq, b.payload)
	if err != nil {
		return nil, err
	}
	b.built = true
	return out, nil
}
