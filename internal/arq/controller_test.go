package arq

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cygnusgs/groundlink/internal/ax25"
	"github.com/cygnusgs/groundlink/internal/core"
	"github.com/cygnusgs/groundlink/internal/gpstime"
	"github.com/cygnusgs/groundlink/internal/spp"
)

// fakeRadio records every transmitted frame and decodes TC packets so
// tests can assert on the command stream.
type fakeRadio struct {
	t     *testing.T
	codec *spp.Codec

	mu     sync.Mutex
	frames [][]byte
	cmds   []core.Command
}

func (f *fakeRadio) Transmit(kind core.Kind, frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	if kind != core.KindTC {
		f.cmds = append(f.cmds, core.CmdNone)
		return nil
	}
	framer := groundFramer(false)
	_, sppBytes, err := framer.Unwrap(frame)
	if err != nil {
		f.t.Fatalf("transmitted undecodable frame: %v", err)
	}
	p, err := f.codec.Unwrap(sppBytes)
	if err != nil {
		f.t.Fatalf("transmitted undecodable packet: %v", err)
	}
	f.cmds = append(f.cmds, p.Command())
	return nil
}

func (f *fakeRadio) count(cmd core.Command) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.cmds {
		if c == cmd {
			n++
		}
	}
	return n
}

func testKeys() *core.Keys {
	k := &core.Keys{}
	for i := 0; i < 16; i++ {
		k.SpacecraftMAC[i] = byte(i)
		k.GroundMAC[i] = byte(0x80 + i)
		k.OA[i] = byte(0x40 + i)
	}
	return k
}

func groundFramer(fixed bool) *ax25.Framer {
	return ax25.NewFramer(
		ax25.Callsign{Name: "W4UVA", SSID: 11},
		ax25.Callsign{Name: "W4UVA", SSID: 0},
		fixed,
	)
}

func fixedClock() (uint16, float64) { return 2100, 12345.5 }

type harness struct {
	ctrl   *Controller
	radio  *fakeRadio
	codec  *spp.Codec
	framer *ax25.Framer
	events []Event
}

func newHarness(t *testing.T, params core.LinkParams) *harness {
	codec := spp.NewCodec(testKeys(), gpstime.Clock(fixedClock))
	framer := groundFramer(false)
	radio := &fakeRadio{t: t, codec: codec}
	h := &harness{radio: radio, codec: codec, framer: framer}
	h.ctrl = New(codec, framer, radio, params,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		func(e Event) { h.events = append(h.events, e) })
	return h
}

// tmFrame forges a spacecraft telemetry frame.
func (h *harness) tmFrame(t *testing.T, seq uint16, payload []byte) []byte {
	sppBytes, err := h.codec.Wrap(core.KindTM, seq, payload)
	if err != nil {
		t.Fatal(err)
	}
	return h.framer.Wrap(core.KindTM, sppBytes)
}

// tamper corrupts one payload byte so MAC verification fails.
func tamper(frame []byte) []byte {
	out := append([]byte(nil), frame...)
	out[len(out)-20] ^= 0x01
	return out
}

func (h *harness) eventCount(kind EventKind) int {
	n := 0
	for _, e := range h.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func defaultParams() core.LinkParams {
	return core.LinkParams{
		WindowSize:       1,
		MaxRetries:       4,
		AckTimeout:       5 * time.Second,
		Turnaround:       0,
		HealthPerPacket:  4,
		SciencePerPacket: 2,
	}
}

// One XMIT_HEALTH request answered by one valid reply: the downlink
// completes with exactly one ACK and nothing outstanding.
func TestSingleWindowDownlink(t *testing.T) {
	h := newHarness(t, defaultParams())

	if err := h.ctrl.sendCommand(spp.XmitHealth(1)); err != nil {
		t.Fatal(err)
	}
	if len(h.ctrl.waiting) != 1 {
		t.Fatalf("waiting = %d, want 1", len(h.ctrl.waiting))
	}
	if h.ctrl.pending != 4 {
		t.Fatalf("pending = %d, want 4", h.ctrl.pending)
	}

	h.ctrl.HandleFrame(h.tmFrame(t, 1, spp.XmitHealth(1)))

	if got := h.radio.count(core.CmdAck); got != 1 {
		t.Fatalf("ACKs sent = %d, want 1", got)
	}
	if len(h.ctrl.waiting) != 0 {
		t.Fatalf("waiting = %d, want 0", len(h.ctrl.waiting))
	}
	if h.ctrl.pending != 0 {
		t.Fatalf("pending = %d, want 0", h.ctrl.pending)
	}
	if h.eventCount(EventDownlinkComplete) != 1 {
		t.Fatal("downlink not reported complete")
	}
	if h.ctrl.retryCount != -1 {
		t.Fatalf("retryCount = %d, want -1", h.ctrl.retryCount)
	}
}

// Consecutive MAC failures burn the retry budget: MaxRetries NAKs, then
// one CEASE_XMIT, then idle.
func TestRetryExhaustionAbortsDownlink(t *testing.T) {
	params := defaultParams()
	params.MaxRetries = 3
	h := newHarness(t, params)

	if err := h.ctrl.sendCommand(spp.XmitHealth(2)); err != nil {
		t.Fatal(err)
	}

	bad := tamper(h.tmFrame(t, 1, spp.XmitHealth(1)))
	for i := 0; h.eventCount(EventDownlinkAborted) == 0; i++ {
		if i > 10 {
			t.Fatal("controller never aborted")
		}
		h.ctrl.HandleFrame(bad)
	}

	if got := h.radio.count(core.CmdNak); got != params.MaxRetries {
		t.Fatalf("NAKs sent = %d, want %d", got, params.MaxRetries)
	}
	if got := h.radio.count(core.CmdCeaseXmit); got != 1 {
		t.Fatalf("CEASE_XMIT sent = %d, want 1", got)
	}
	if h.ctrl.retryCount != -1 {
		t.Fatalf("retryCount = %d, want -1", h.ctrl.retryCount)
	}
	if len(h.ctrl.waiting) != 0 || len(h.ctrl.toNak) != 0 {
		t.Fatal("state not reset after abort")
	}

	// The session survives the abort: a fresh command still goes out.
	if err := h.ctrl.sendCommand(spp.Noop()); err != nil {
		t.Fatal(err)
	}
}

// Dump mode suppresses NAKs entirely and never aborts.
func TestDumpModeSuppressesNaks(t *testing.T) {
	h := newHarness(t, defaultParams())

	if err := h.ctrl.sendCommand(spp.XmitHealth(spp.DumpAll)); err != nil {
		t.Fatal(err)
	}
	if !h.ctrl.dumpMode {
		t.Fatal("dump mode not set")
	}
	if len(h.ctrl.waiting) != 0 {
		t.Fatal("dump request must not wait for an ACK")
	}

	bad := tamper(h.tmFrame(t, 1, spp.XmitHealth(1)))
	for i := 0; i < 3; i++ {
		h.ctrl.HandleFrame(bad)
	}

	if got := h.radio.count(core.CmdNak); got != 0 {
		t.Fatalf("NAKs sent in dump mode = %d, want 0", got)
	}
	if got := h.radio.count(core.CmdCeaseXmit); got != 0 {
		t.Fatalf("CEASE_XMIT sent in dump mode = %d", got)
	}
	if h.eventCount(EventDownlinkAborted) != 0 {
		t.Fatal("dump mode aborted")
	}

	// Valid dump packets are not individually acknowledged either.
	h.ctrl.HandleFrame(h.tmFrame(t, 4, spp.XmitHealth(1)))
	if got := h.radio.count(core.CmdAck); got != 0 {
		t.Fatalf("ACKs sent in dump mode = %d, want 0", got)
	}
}

// A timeout while a downlink is pending behaves exactly like one MAC
// failure; when nothing is pending it is ignored.
func TestTimeoutFollowsFailurePath(t *testing.T) {
	h := newHarness(t, defaultParams())

	// Idle: no downlink pending, timeout is a no-op.
	h.ctrl.HandleTimeout()
	if got := h.radio.count(core.CmdNak); got != 0 {
		t.Fatalf("idle timeout sent %d NAKs", got)
	}
	if h.ctrl.retryCount != -1 {
		t.Fatalf("idle timeout armed retryCount = %d", h.ctrl.retryCount)
	}

	if err := h.ctrl.sendCommand(spp.XmitHealth(1)); err != nil {
		t.Fatal(err)
	}
	h.ctrl.HandleTimeout()

	if h.ctrl.retryCount != h.ctrl.params.MaxRetries {
		t.Fatalf("retryCount = %d, want %d", h.ctrl.retryCount, h.ctrl.params.MaxRetries)
	}
	if got := h.radio.count(core.CmdNak); got != 1 {
		t.Fatalf("NAKs sent = %d, want 1", got)
	}
	if h.ctrl.expectedScSeq != 2 {
		t.Fatalf("expectedScSeq = %d, want 2", h.ctrl.expectedScSeq)
	}
}

// A spacecraft NAK retransmits the outstanding window byte-identical.
func TestNakRetransmitsWindow(t *testing.T) {
	h := newHarness(t, defaultParams())

	if err := h.ctrl.sendCommand(spp.Noop()); err != nil {
		t.Fatal(err)
	}
	sent := append([]byte(nil), h.radio.frames[0]...)

	h.ctrl.HandleFrame(h.tmFrame(t, 1, spp.Nak(nil)))

	if len(h.radio.frames) != 2 {
		t.Fatalf("frames sent = %d, want 2", len(h.radio.frames))
	}
	retransmitted := h.radio.frames[1]
	if string(retransmitted) != string(sent) {
		t.Fatal("retransmitted frame differs from the original")
	}
	// The window stays outstanding until an ACK arrives.
	if len(h.ctrl.waiting) != 1 {
		t.Fatalf("waiting = %d, want 1", len(h.ctrl.waiting))
	}

	h.ctrl.HandleFrame(h.tmFrame(t, 2, spp.Ack()))
	if len(h.ctrl.waiting) != 0 {
		t.Fatal("ACK did not clear the window")
	}
}

// An ACK advances the expected sequence number past the ACK itself.
func TestAckAdvancesExpectedSequence(t *testing.T) {
	h := newHarness(t, defaultParams())
	if err := h.ctrl.sendCommand(spp.Noop()); err != nil {
		t.Fatal(err)
	}
	h.ctrl.HandleFrame(h.tmFrame(t, 17, spp.Ack()))
	if h.ctrl.expectedScSeq != 18 {
		t.Fatalf("expectedScSeq = %d, want 18", h.ctrl.expectedScSeq)
	}
}

// XMIT_COUNT replies surface the payload inventory.
func TestXmitCountReply(t *testing.T) {
	h := newHarness(t, defaultParams())
	if err := h.ctrl.sendCommand(spp.XmitCount()); err != nil {
		t.Fatal(err)
	}
	h.ctrl.HandleFrame(h.tmFrame(t, 1, []byte{0x01, 0x00, 0x20, 0x00, 0x08}))

	var counts *spp.PayloadCounts
	for _, e := range h.events {
		if e.Kind == EventCountsUpdated {
			counts = &e.Counts
		}
	}
	if counts == nil {
		t.Fatal("no counts event")
	}
	if counts.Health != 0x20 || counts.Science != 8 {
		t.Fatalf("counts = %+v", *counts)
	}
	if got := h.radio.count(core.CmdAck); got != 1 {
		t.Fatalf("ACKs sent = %d, want 1", got)
	}
}

// A window larger than one accumulates packets before flushing.
func TestWindowAccumulation(t *testing.T) {
	params := defaultParams()
	params.WindowSize = 3
	h := newHarness(t, params)

	if err := h.ctrl.sendCommand(spp.XmitHealth(3)); err != nil {
		t.Fatal(err)
	}

	h.ctrl.HandleFrame(h.tmFrame(t, 1, spp.XmitHealth(1)))
	h.ctrl.HandleFrame(h.tmFrame(t, 2, spp.XmitHealth(1)))
	if got := h.radio.count(core.CmdAck); got != 0 {
		t.Fatalf("ACK flushed early, sent = %d", got)
	}

	h.ctrl.HandleFrame(h.tmFrame(t, 3, spp.XmitHealth(1)))
	if got := h.radio.count(core.CmdAck); got != 1 {
		t.Fatalf("ACKs sent = %d, want 1", got)
	}
	if h.eventCount(EventDownlinkComplete) != 1 {
		t.Fatal("downlink not complete")
	}
}

// OA commands bypass sequence tracking entirely.
func TestOpenAccessUntracked(t *testing.T) {
	h := newHarness(t, defaultParams())

	if err := h.ctrl.sendOpenAccess(core.CmdPingReturn); err != nil {
		t.Fatal(err)
	}
	if len(h.ctrl.waiting) != 0 {
		t.Fatal("OA command tracked for ACK")
	}
	if h.ctrl.groundSeq != 1 {
		t.Fatalf("groundSeq advanced to %d by an OA command", h.ctrl.groundSeq)
	}
	if len(h.radio.frames[0]) != 33 {
		t.Fatalf("OA frame length = %d, want 33", len(h.radio.frames[0]))
	}

	if err := h.ctrl.sendOpenAccess(core.CmdNoop); err == nil {
		t.Fatal("catalog command accepted on the OA path")
	}
}

// A TC frame heard on the receive side is the TNC echoing our own
// uplink; it must not count as a downlink failure.
func TestEchoedUplinkIgnored(t *testing.T) {
	h := newHarness(t, defaultParams())
	if err := h.ctrl.sendCommand(spp.XmitHealth(1)); err != nil {
		t.Fatal(err)
	}
	sent := len(h.radio.frames)

	echo := append([]byte(nil), h.radio.frames[0]...)
	h.ctrl.HandleFrame(echo)

	if len(h.radio.frames) != sent {
		t.Fatalf("echo triggered %d transmissions", len(h.radio.frames)-sent)
	}
	if h.ctrl.retryCount != -1 {
		t.Fatalf("echo armed retryCount = %d", h.ctrl.retryCount)
	}
	if len(h.ctrl.toNak) != 0 {
		t.Fatalf("echo queued %d NAKs", len(h.ctrl.toNak))
	}
	if h.ctrl.expectedScSeq != 1 {
		t.Fatalf("echo advanced expectedScSeq to %d", h.ctrl.expectedScSeq)
	}
}

// Malformed inbound frames follow the failure path instead of crashing.
func TestMalformedFrameFollowsFailurePath(t *testing.T) {
	h := newHarness(t, defaultParams())
	if err := h.ctrl.sendCommand(spp.XmitHealth(1)); err != nil {
		t.Fatal(err)
	}

	h.ctrl.HandleFrame([]byte{0x01, 0x02})

	if h.ctrl.retryCount != h.ctrl.params.MaxRetries {
		t.Fatalf("retryCount = %d", h.ctrl.retryCount)
	}
	if got := h.radio.count(core.CmdNak); got != 1 {
		t.Fatalf("NAKs sent = %d, want 1", got)
	}
}

// The Run loop serializes external command requests with inbound
// frames and shuts down when the inbound queue closes.
func TestRunLoop(t *testing.T) {
	h := newHarness(t, defaultParams())
	inbound := make(chan []byte, 4)

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(context.Background(), inbound) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.ctrl.SendCommand(ctx, spp.XmitHealth(1)); err != nil {
		t.Fatal(err)
	}
	if err := h.ctrl.SendOpenAccess(ctx, core.CmdPinToggle); err != nil {
		t.Fatal(err)
	}
	inbound <- h.tmFrame(t, 1, spp.XmitHealth(1))

	// Wait until the loop has processed the frame and acknowledged.
	deadline := time.After(5 * time.Second)
	for h.radio.count(core.CmdAck) == 0 {
		select {
		case <-deadline:
			t.Fatal("no ACK observed")
		case <-time.After(time.Millisecond):
		}
	}

	close(inbound)
	if err := <-done; err != core.ErrTransportClosed {
		t.Fatalf("Run returned %v", err)
	}
}
