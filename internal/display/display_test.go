package display

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cygnusgs/groundlink/internal/ax25"
	"github.com/cygnusgs/groundlink/internal/core"
	"github.com/cygnusgs/groundlink/internal/spp"
)

func testSetup() (*spp.Codec, *ax25.Framer) {
	keys := &core.Keys{}
	for i := 0; i < 16; i++ {
		keys.SpacecraftMAC[i] = byte(i)
		keys.GroundMAC[i] = byte(0x80 + i)
		keys.OA[i] = byte(0x40 + i)
	}
	codec := spp.NewCodec(keys, func() (uint16, float64) { return 2100, 100.25 })
	framer := ax25.NewFramer(
		ax25.Callsign{Name: "W4UVA", SSID: 11},
		ax25.Callsign{Name: "W4UVA", SSID: 0},
		false,
	)
	return codec, framer
}

func TestRenderTelemetry(t *testing.T) {
	codec, framer := testSetup()
	var out bytes.Buffer
	r := New(codec, framer, &out)

	sppBytes, err := codec.Wrap(core.KindTM, 42, spp.XmitHealth(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Render(framer.Wrap(core.KindTM, sppBytes)); err != nil {
		t.Fatal(err)
	}

	var rec Record
	if err := json.Unmarshal(out.Bytes(), &rec); err != nil {
		t.Fatalf("output is not one JSON line: %v", err)
	}
	if rec.Kind != "TM" || rec.Seq != 42 || rec.Command != "XMIT_HEALTH" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.MacOK == nil || !*rec.MacOK {
		t.Fatal("mac_ok not reported true")
	}
	if rec.Source != "W4UVA-0" {
		t.Fatalf("source = %q", rec.Source)
	}
}

func TestRenderUnparseableFrame(t *testing.T) {
	codec, framer := testSetup()
	var out bytes.Buffer
	r := New(codec, framer, &out)

	if err := r.Render([]byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatal(err)
	}
	line := out.String()
	if !strings.Contains(line, `"kind":"UN"`) {
		t.Fatalf("line = %s", line)
	}
	if !strings.Contains(line, `"raw":"010203"`) {
		t.Fatalf("line = %s", line)
	}
}

func TestRenderOpenAccess(t *testing.T) {
	codec, framer := testSetup()
	var out bytes.Buffer
	r := New(codec, framer, &out)

	body, err := codec.WrapOA(core.CmdPingReturn)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Render(framer.Wrap(core.KindOA, body)); err != nil {
		t.Fatal(err)
	}

	var rec Record
	if err := json.Unmarshal(out.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Kind != "OA" || rec.Command != "PING_RETURN" {
		t.Fatalf("record = %+v", rec)
	}
}
