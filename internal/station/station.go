// Package station wires the receiver, the ARQ controller and the
// display into one running ground-station session. The three tasks
// share nothing but bounded channels; each mutable structure is owned
// by exactly one goroutine.
package station

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/cygnusgs/groundlink/internal/arq"
	"github.com/cygnusgs/groundlink/internal/core"
	"github.com/cygnusgs/groundlink/internal/display"
	"github.com/cygnusgs/groundlink/internal/metrics"
	"github.com/cygnusgs/groundlink/internal/radio"
)

const (
	inboundDepth = 64
	displayDepth = 256
)

// Station runs one ground-station session.
type Station struct {
	radio *radio.Radio
	ctrl  *arq.Controller
	disp  *display.Renderer
	log   *slog.Logger

	inbound  chan []byte
	displayQ chan []byte
}

// New assembles a station around an already-connected radio. The
// controller is attached separately because its transmit path runs
// through the station's display tee.
func New(r *radio.Radio, disp *display.Renderer, log *slog.Logger) *Station {
	return &Station{
		radio:    r,
		disp:     disp,
		log:      log,
		inbound:  make(chan []byte, inboundDepth),
		displayQ: make(chan []byte, displayDepth),
	}
}

// Attach installs the ARQ controller driving this session.
func (s *Station) Attach(ctrl *arq.Controller) { s.ctrl = ctrl }

// Controller exposes the command path for an external command source.
func (s *Station) Controller() *arq.Controller { return s.ctrl }

// txTee mirrors every transmitted frame onto the display queue so the
// operator sees both directions of the link.
type txTee struct {
	s    *Station
	next arq.Transmitter
}

func (t txTee) Transmit(kind core.Kind, frame []byte) error {
	if err := t.next.Transmit(kind, frame); err != nil {
		return err
	}
	t.s.offerDisplay(frame)
	return nil
}

// Tee wraps a transmitter with the display mirror.
func (s *Station) Tee(next arq.Transmitter) arq.Transmitter {
	return txTee{s: s, next: next}
}

// Run starts the receiver, controller and display tasks and blocks
// until the context is cancelled or the radio link dies. A dead link is
// fatal to the session; there is no reconnect.
func (s *Station) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errc := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.receiver()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := s.ctrl.Run(ctx, s.inbound)
		if errors.Is(err, core.ErrTransportClosed) && ctx.Err() != nil {
			// The shutdown path closes the link under the controller.
			err = nil
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			select {
			case errc <- err:
			default:
			}
		}
		cancel()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.displayLoop(ctx)
	}()

	<-ctx.Done()
	// Unblock the receiver's pending read.
	if err := s.radio.Close(); err != nil {
		s.log.Debug("radio close", "err", err)
	}
	wg.Wait()

	select {
	case err := <-errc:
		return err
	default:
		return ctx.Err()
	}
}

// receiver reassembles transport frames and feeds both queues. The
// inbound queue blocks when the controller falls behind; the display
// queue never does.
func (s *Station) receiver() {
	for {
		frame, err := s.radio.Receive()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				s.log.Error("receive failed", "err", err)
			}
			close(s.inbound)
			return
		}
		s.offerDisplay(frame)
		s.inbound <- frame
	}
}

// offerDisplay enqueues a frame for rendering, dropping the oldest
// queued frame when the display falls behind.
func (s *Station) offerDisplay(frame []byte) {
	select {
	case s.displayQ <- frame:
		return
	default:
	}
	select {
	case <-s.displayQ:
		metrics.DisplayDropsTotal.Inc()
	default:
	}
	select {
	case s.displayQ <- frame:
	default:
		metrics.DisplayDropsTotal.Inc()
	}
}

func (s *Station) displayLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Render whatever is already queued before exiting.
			for {
				select {
				case frame := <-s.displayQ:
					s.render(frame)
				default:
					return
				}
			}
		case frame := <-s.displayQ:
			s.render(frame)
		}
	}
}

func (s *Station) render(frame []byte) {
	if err := s.disp.Render(frame); err != nil {
		s.log.Debug("render failed", "err", err)
	}
}
