// Package transport implements the two physical-layer framings the
// ground station speaks: KISS over a TNC socket and the Lithium radio's
// native serial framing. Both carry whole AX.25 frames.
package transport

import "io"

// Framer converts between AX.25 frames and one transport's wire form.
type Framer interface {
	// Wrap frames one AX.25 frame for the wire.
	Wrap(frame []byte) []byte
	// Unwrap extracts the AX.25 frame from one complete wire frame.
	Unwrap(wire []byte) ([]byte, error)
	// ReadFrame blocks on r until one complete wire frame has been
	// reassembled and returns its AX.25 payload. Incomplete trailing
	// data at EOF is discarded with io.EOF.
	ReadFrame(r io.Reader) ([]byte, error)
}
