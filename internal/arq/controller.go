// Package arq implements the windowed acknowledge/retry controller that
// drives a downlink session: sequence-number bookkeeping, per-window
// ACK/NAK accumulation, retransmission on spacecraft NAKs, and the
// retry budget that aborts a dead downlink with CEASE_XMIT.
package arq

import (
	"context"
	"log/slog"
	"time"

	"github.com/cygnusgs/groundlink/internal/ax25"
	"github.com/cygnusgs/groundlink/internal/core"
	"github.com/cygnusgs/groundlink/internal/core/seqnum"
	"github.com/cygnusgs/groundlink/internal/metrics"
	"github.com/cygnusgs/groundlink/internal/spp"
)

// Transmitter is the controller's path to the radio. Implementations
// apply the turnaround delay, optional encryption, and transport
// framing.
type Transmitter interface {
	Transmit(kind core.Kind, frame []byte) error
}

// EventKind tags the session events the controller reports upward.
type EventKind int

const (
	// EventDownlinkComplete fires when the last expected payload of a
	// downlink has arrived and been acknowledged.
	EventDownlinkComplete EventKind = iota
	// EventDownlinkAborted fires when the retry budget ran out and
	// CEASE_XMIT was sent.
	EventDownlinkAborted
	// EventCountsUpdated fires when an XMIT_COUNT reply arrived.
	EventCountsUpdated
	// EventCommsUpdated fires when a GET_COMMS reply arrived.
	EventCommsUpdated
	// EventPacket fires for every verified telemetry packet.
	EventPacket
)

// Event is one session-level notification.
type Event struct {
	Kind   EventKind
	Packet *spp.Packet       // set for EventPacket
	Counts spp.PayloadCounts // set for EventCountsUpdated
	Comms  spp.CommsBlock    // set for EventCommsUpdated
}

// outstanding is one transmitted TC not yet acknowledged.
type outstanding struct {
	seq   uint16
	frame []byte
}

// request is one outbound command handed to the Run loop.
type request struct {
	payload []byte
	oa      core.Command
	errc    chan error
}

// Controller owns all ARQ state. Exactly one goroutine mutates it, the
// one driving Run; outside callers reach it only through SendCommand
// and SendOpenAccess, which post requests into the Run loop.
type Controller struct {
	codec    *spp.Codec
	framer   *ax25.Framer
	tx       Transmitter
	params   core.LinkParams
	log      *slog.Logger
	notify   func(Event)
	requests chan request

	groundSeq     uint16
	expectedScSeq uint16
	waiting       []outstanding
	toAck         []uint16
	toNak         []uint16
	retryCount    int
	dumpMode      bool
	pending       int
}

// New builds an idle controller. notify may be nil.
func New(codec *spp.Codec, framer *ax25.Framer, tx Transmitter, params core.LinkParams, log *slog.Logger, notify func(Event)) *Controller {
	params.ClampWindow()
	if notify == nil {
		notify = func(Event) {}
	}
	return &Controller{
		codec:         codec,
		framer:        framer,
		tx:            tx,
		params:        params,
		log:           log,
		notify:        notify,
		requests:      make(chan request),
		groundSeq:     1,
		expectedScSeq: 1,
		retryCount:    -1,
	}
}

// Run drives the controller from the inbound frame queue until ctx is
// cancelled or the queue closes. Queue silence longer than AckTimeout
// produces a timeout event so the retry machinery makes progress even
// with a dead radio.
func (c *Controller) Run(ctx context.Context, inbound <-chan []byte) error {
	timer := time.NewTimer(c.params.AckTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-inbound:
			if !ok {
				return core.ErrTransportClosed
			}
			c.HandleFrame(frame)
		case req := <-c.requests:
			if req.payload != nil {
				req.errc <- c.sendCommand(req.payload)
			} else {
				req.errc <- c.sendOpenAccess(req.oa)
			}
		case <-timer.C:
			c.HandleTimeout()
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(c.params.AckTimeout)
	}
}

// SendCommand hands an outbound TC payload to the Run loop and waits
// for the transmit result. Safe to call from any goroutine while Run is
// active.
func (c *Controller) SendCommand(ctx context.Context, payload []byte) error {
	return c.post(ctx, request{payload: payload, errc: make(chan error, 1)})
}

// SendOpenAccess hands an OA emergency command to the Run loop.
func (c *Controller) SendOpenAccess(ctx context.Context, cmd core.Command) error {
	return c.post(ctx, request{oa: cmd, errc: make(chan error, 1)})
}

func (c *Controller) post(ctx context.Context, req request) error {
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sendCommand seals payload into a TC packet and transmits it. Commands
// that expect a reply are recorded for retransmission on NAK; a bulk
// dump request (XMIT_HEALTH/XMIT_SCIENCE with a 0xFF count) switches the
// session into dump mode instead.
func (c *Controller) sendCommand(payload []byte) error {
	if len(payload) == 0 {
		return core.ErrPayloadMissing
	}
	expectAck := true
	switch core.Command(payload[0]) {
	case core.CmdXmitHealth, core.CmdXmitScience:
		if len(payload) < 2 {
			return core.ErrPayloadMissing
		}
		count := payload[1]
		if count == spp.DumpAll {
			c.dumpMode = true
			c.pending = 0
			expectAck = false
			break
		}
		c.dumpMode = false
		per := c.params.HealthPerPacket
		if core.Command(payload[0]) == core.CmdXmitScience {
			per = c.params.SciencePerPacket
		}
		c.pending = int(count) * per
		metrics.DownlinkPayloadsPending.Set(float64(c.pending))
	case core.CmdSetComms:
		// Track the window the spacecraft will use from now on.
		if len(payload) >= 2 {
			c.params.WindowSize = int(payload[1])
			c.params.ClampWindow()
		}
	}

	seq := c.groundSeq
	frame, err := c.buildTC(seq, payload)
	if err != nil {
		return err
	}
	if err := c.tx.Transmit(core.KindTC, frame); err != nil {
		return err
	}
	if expectAck {
		c.waiting = append(c.waiting, outstanding{seq: seq, frame: frame})
	}
	c.groundSeq = seqnum.Increment(c.groundSeq)
	return nil
}

// sendOpenAccess transmits an OA emergency command. OA packets carry no
// sequence number and are never tracked for acknowledgment.
func (c *Controller) sendOpenAccess(cmd core.Command) error {
	body, err := c.codec.WrapOA(cmd)
	if err != nil {
		return err
	}
	return c.tx.Transmit(core.KindOA, c.framer.Wrap(core.KindOA, body))
}

// HandleFrame processes one inbound AX.25 frame.
func (c *Controller) HandleFrame(frame []byte) {
	kind := c.codec.Classify(frame)
	metrics.FramesReceivedTotal.WithLabelValues(kind.String()).Inc()
	switch kind {
	case core.KindTM:
	case core.KindTC:
		// A TC frame coming back at us is the TNC echoing our own
		// uplink, not spacecraft traffic. Drop it.
		c.log.Debug("ignoring echoed uplink frame")
		return
	case core.KindOA:
		// The ground station never acts on inbound OA packets.
		c.log.Warn("ignoring inbound open-access packet")
		return
	default:
		c.log.Warn("unclassifiable frame", "len", len(frame))
		metrics.TransportErrorsTotal.Inc()
		c.fail()
		c.flush(false)
		return
	}

	_, sppBytes, err := c.framer.Unwrap(frame)
	if err != nil {
		c.log.Warn("frame rejected", "err", err)
		metrics.TransportErrorsTotal.Inc()
		c.fail()
		c.flush(false)
		return
	}
	p, err := c.codec.Unwrap(sppBytes)
	if err != nil {
		c.log.Warn("packet rejected", "err", err)
		metrics.TransportErrorsTotal.Inc()
		c.fail()
		c.flush(false)
		return
	}

	if !p.Valid() {
		c.log.Warn("MAC verification failed",
			"seq", p.Seq, "mask", p.ValidationMask)
		metrics.MacFailuresTotal.Inc()
		c.fail()
		c.flush(false)
		return
	}
	c.dispatch(p)
}

// HandleTimeout processes an ack-timeout expiry. With no downlink
// pending it is a no-op; otherwise it advances the same retry
// bookkeeping as a verification failure so total radio silence still
// terminates in CEASE_XMIT.
func (c *Controller) HandleTimeout() {
	if len(c.waiting) == 0 && c.pending == 0 && c.retryCount < 0 {
		return
	}
	c.log.Warn("receive timeout", "expected_seq", c.expectedScSeq)
	metrics.ReceiveTimeoutsTotal.Inc()
	c.fail()
	c.flush(false)
}

// fail is the shared bad-packet path: arm the retry budget on the first
// failure of the window and mark the expected sequence number for NAK.
func (c *Controller) fail() {
	if c.retryCount < 0 {
		c.retryCount = c.params.MaxRetries + 1
	}
	seq := c.expectedScSeq
	c.expectedScSeq = seqnum.Increment(c.expectedScSeq)
	if !c.dumpMode {
		c.toNak = append(c.toNak, seq)
	}
}

// dispatch routes one verified telemetry packet.
func (c *Controller) dispatch(p *spp.Packet) {
	c.notify(Event{Kind: EventPacket, Packet: p})
	complete := false
	switch p.Command() {
	case core.CmdAck:
		c.waiting = nil
		c.expectedScSeq = seqnum.Increment(p.Seq)
		complete = true

	case core.CmdNak:
		// Retransmit the whole outstanding window unchanged.
		for _, o := range c.waiting {
			if err := c.tx.Transmit(core.KindTC, o.frame); err != nil {
				c.log.Error("retransmit failed", "seq", o.seq, "err", err)
				return
			}
			metrics.RetransmissionsTotal.Inc()
		}
		complete = true

	case core.CmdXmitCount:
		c.waiting = nil
		c.expectedScSeq = seqnum.Increment(p.Seq)
		if counts, err := spp.ParsePayloadCounts(p.Payload); err == nil {
			c.notify(Event{Kind: EventCountsUpdated, Counts: counts})
		} else {
			c.log.Warn("bad XMIT_COUNT reply", "err", err)
		}
		c.queueAck(p.Seq)
		complete = true

	case core.CmdGetComms:
		c.waiting = nil
		c.expectedScSeq = seqnum.Increment(p.Seq)
		if comms, err := spp.ParseCommsBlock(p.Payload); err == nil {
			c.notify(Event{Kind: EventCommsUpdated, Comms: comms})
		} else {
			c.log.Warn("bad GET_COMMS reply", "err", err)
		}
		c.queueAck(p.Seq)
		complete = true

	case core.CmdReadMem, core.CmdMacTest:
		c.waiting = nil
		c.expectedScSeq = seqnum.Increment(p.Seq)
		c.queueAck(p.Seq)
		complete = true

	case core.CmdXmitHealth:
		complete = c.handlePayload(p, c.params.HealthPerPacket)

	case core.CmdXmitScience:
		complete = c.handlePayload(p, c.params.SciencePerPacket)

	default:
		c.log.Debug("unhandled telemetry command", "command", p.Command().String())
		return
	}
	c.flush(complete)
}

func (c *Controller) handlePayload(p *spp.Packet, perPacket int) bool {
	c.waiting = nil
	c.expectedScSeq = seqnum.Increment(p.Seq)
	c.queueAck(p.Seq)
	if c.dumpMode {
		return false
	}
	c.pending -= perPacket
	if c.pending < 0 {
		c.pending = 0
	}
	metrics.DownlinkPayloadsPending.Set(float64(c.pending))
	return c.pending == 0
}

func (c *Controller) queueAck(seq uint16) {
	if !c.dumpMode {
		c.toAck = append(c.toAck, seq)
	}
}

// flush closes the window when it is full or complete: a NAK (burning
// one retry) if anything failed, otherwise a cumulative ACK.
func (c *Controller) flush(complete bool) {
	if len(c.toAck)+len(c.toNak) == 0 {
		if complete {
			c.notify(Event{Kind: EventDownlinkComplete})
		}
		return
	}
	if len(c.toAck)+len(c.toNak) < c.params.WindowSize && !complete {
		return
	}

	if len(c.toNak) > 0 {
		c.retryCount--
		if c.retryCount == 0 {
			c.abort()
			return
		}
		if err := c.sendControl(spp.Nak(c.toNak)); err != nil {
			c.log.Error("NAK transmit failed", "err", err)
			return
		}
		metrics.NaksSentTotal.Inc()
	} else {
		c.retryCount = -1
		if err := c.sendControl(spp.Ack()); err != nil {
			c.log.Error("ACK transmit failed", "err", err)
			return
		}
		metrics.AcksSentTotal.Inc()
		if complete {
			c.notify(Event{Kind: EventDownlinkComplete})
		}
	}
	c.toAck = nil
	c.toNak = nil
}

// abort gives up on the downlink: CEASE_XMIT goes out and the session
// returns to idle. The link itself stays usable for fresh commands.
func (c *Controller) abort() {
	c.log.Error("retry budget exhausted, aborting downlink",
		"expected_seq", c.expectedScSeq)
	if err := c.sendControl(spp.CeaseXmit()); err != nil {
		c.log.Error("CEASE_XMIT transmit failed", "err", err)
	}
	metrics.DownlinksAbortedTotal.Inc()
	c.retryCount = -1
	c.pending = 0
	c.dumpMode = false
	c.waiting = nil
	c.toAck = nil
	c.toNak = nil
	metrics.DownlinkPayloadsPending.Set(0)
	c.notify(Event{Kind: EventDownlinkAborted})
}

// sendControl transmits an untracked TC such as ACK, NAK or CEASE_XMIT.
func (c *Controller) sendControl(payload []byte) error {
	frame, err := c.buildTC(c.groundSeq, payload)
	if err != nil {
		return err
	}
	if err := c.tx.Transmit(core.KindTC, frame); err != nil {
		return err
	}
	c.groundSeq = seqnum.Increment(c.groundSeq)
	return nil
}

func (c *Controller) buildTC(seq uint16, payload []byte) ([]byte, error) {
	sppBytes, err := c.codec.NewBuilder(core.KindTC).
		Sequence(seq).
		Payload(payload).
		Build()
	if err != nil {
		return nil, err
	}
	return c.framer.Wrap(core.KindTC, sppBytes), nil
}
