package station

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cygnusgs/groundlink/internal/arq"
	"github.com/cygnusgs/groundlink/internal/ax25"
	"github.com/cygnusgs/groundlink/internal/core"
	"github.com/cygnusgs/groundlink/internal/display"
	"github.com/cygnusgs/groundlink/internal/radio"
	"github.com/cygnusgs/groundlink/internal/spp"
	"github.com/cygnusgs/groundlink/internal/transport"
)

// syncWriter lets the test read what the station wrote from another
// goroutine.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
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

func testFramer() *ax25.Framer {
	return ax25.NewFramer(
		ax25.Callsign{Name: "W4UVA", SSID: 11},
		ax25.Callsign{Name: "W4UVA", SSID: 0},
		false,
	)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// End to end over an in-memory pipe: a telemetry frame arrives, the
// controller acknowledges it, and the display records both directions.
func TestStationSession(t *testing.T) {
	keys := testKeys()
	codec := spp.NewCodec(keys, func() (uint16, float64) { return 2100, 100.5 })
	framer := testFramer()

	rxReader, rxWriter := io.Pipe()
	var txWire syncWriter
	link := radio.NewLink(rxReader, &txWire, rxReader)
	r := radio.New(transport.NewKiss(), link, nil, 0, discardLogger())

	var rendered syncWriter
	st := New(r, display.New(codec, framer, &rendered), discardLogger())

	params := core.LinkParams{
		WindowSize:      1,
		MaxRetries:      2,
		AckTimeout:      time.Minute,
		HealthPerPacket: 4,
	}
	ctrl := arq.New(codec, framer, st.Tee(r), params, discardLogger(), nil)
	st.Attach(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- st.Run(ctx) }()

	sendCtx, sendCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer sendCancel()
	if err := ctrl.SendCommand(sendCtx, spp.XmitHealth(1)); err != nil {
		t.Fatal(err)
	}

	reply, err := codec.Wrap(core.KindTM, 1, spp.XmitHealth(1))
	if err != nil {
		t.Fatal(err)
	}
	kiss := transport.NewKiss()
	if _, err := rxWriter.Write(kiss.Wrap(framer.Wrap(core.KindTM, reply))); err != nil {
		t.Fatal(err)
	}

	// Wait for the ACK to hit the wire: request, then ACK.
	deadline := time.After(5 * time.Second)
	for {
		if strings.Count(txWire.String(), "\xc0\x00") >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no ACK transmitted")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("Run returned %v", err)
	}

	// Both the inbound TM and the outbound frames were rendered.
	var kinds []string
	for _, line := range strings.Split(strings.TrimSpace(rendered.String()), "\n") {
		if line == "" {
			continue
		}
		var rec display.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad display line %q: %v", line, err)
		}
		kinds = append(kinds, rec.Kind)
	}
	var sawTM, sawTC bool
	for _, k := range kinds {
		switch k {
		case "TM":
			sawTM = true
		case "TC":
			sawTC = true
		}
	}
	if !sawTM || !sawTC {
		t.Fatalf("display kinds = %v, want both TM and TC", kinds)
	}
}

func TestOfferDisplayDropsOldest(t *testing.T) {
	st := &Station{
		displayQ: make(chan []byte, 2),
		log:      discardLogger(),
	}
	st.offerDisplay([]byte{1})
	st.offerDisplay([]byte{2})
	st.offerDisplay([]byte{3}) // full: drops {1}

	got := <-st.displayQ
	if got[0] != 2 {
		t.Fatalf("head = %d, want 2", got[0])
	}
	got = <-st.displayQ
	if got[0] != 3 {
		t.Fatalf("next = %d, want 3", got[0])
	}
	select {
	case f := <-st.displayQ:
		t.Fatalf("queue not empty: %v", f)
	default:
	}
}
