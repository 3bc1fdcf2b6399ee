// Package radio couples the raw byte link to the radio (TNC socket pair
// or serial device) with its transport framing, the half-duplex
// turnaround delay, and the optional uplink cipher.
package radio

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/tarm/serial"

	"github.com/cygnusgs/groundlink/internal/core"
	"github.com/cygnusgs/groundlink/internal/crypto/speck"
	"github.com/cygnusgs/groundlink/internal/metrics"
	"github.com/cygnusgs/groundlink/internal/transport"
)

// Link is a raw byte connection to the radio hardware. The KISS TNC
// exposes separate receive and transmit sockets; a serial radio is one
// device for both directions.
type Link struct {
	RX io.Reader
	TX io.Writer

	closers []io.Closer
}

// Close releases the underlying connections.
func (l *Link) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewLink builds a link over arbitrary byte streams. Close releases the
// given closers in order.
func NewLink(rx io.Reader, tx io.Writer, closers ...io.Closer) *Link {
	return &Link{RX: rx, TX: tx, closers: closers}
}

// DialKISS connects to the TNC's receive and transmit TCP sockets.
func DialKISS(rxAddr, txAddr string) (*Link, error) {
	rx, err := net.Dial("tcp", rxAddr)
	if err != nil {
		return nil, fmt.Errorf("dial rx %s: %w", rxAddr, err)
	}
	tx, err := net.Dial("tcp", txAddr)
	if err != nil {
		rx.Close()
		return nil, fmt.Errorf("dial tx %s: %w", txAddr, err)
	}
	return &Link{RX: rx, TX: tx, closers: []io.Closer{rx, tx}}, nil
}

// OpenSerial opens the radio's serial device for both directions.
func OpenSerial(device string, baud int) (*Link, error) {
	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return &Link{RX: port, TX: port, closers: []io.Closer{port}}, nil
}

// Radio sends and receives AX.25 frames over one link. Receive is owned
// by the receiver task and Transmit by the controller task; neither
// method is safe for concurrent use with itself.
type Radio struct {
	framer     transport.Framer
	link       *Link
	cipher     *speck.Codec // nil disables uplink encryption
	turnaround time.Duration
	log        *slog.Logger
}

// New assembles a radio. cipher may be nil.
func New(framer transport.Framer, link *Link, cipher *speck.Codec, turnaround time.Duration, log *slog.Logger) *Radio {
	return &Radio{
		framer:     framer,
		link:       link,
		cipher:     cipher,
		turnaround: turnaround,
		log:        log,
	}
}

// Transmit frames and writes one AX.25 frame, sleeping the half-duplex
// turnaround first. Only TC frames pass through the cipher; telemetry
// and OA frames are never encrypted.
func (r *Radio) Transmit(kind core.Kind, frame []byte) error {
	time.Sleep(r.turnaround)
	if r.cipher != nil && kind == core.KindTC {
		enc, err := r.cipher.Encrypt(frame)
		if err != nil {
			return err
		}
		frame = enc
	}
	if _, err := r.link.TX.Write(r.framer.Wrap(frame)); err != nil {
		return fmt.Errorf("radio transmit: %w", err)
	}
	metrics.FramesSentTotal.WithLabelValues(kind.String()).Inc()
	return nil
}

// Receive blocks until one complete AX.25 frame arrives.
func (r *Radio) Receive() ([]byte, error) {
	frame, err := r.framer.ReadFrame(r.link.RX)
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// Close shuts the underlying link down, unblocking a pending Receive.
func (r *Radio) Close() error { return r.link.Close() }
