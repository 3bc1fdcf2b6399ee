package gpstime

import (
	"math"
	"testing"
	"time"
)

func TestFromUTCEpoch(t *testing.T) {
	// At the GPS epoch itself, with no leap offset, week and SOW are zero.
	week, sow := FromUTC(time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC), 0)
	if week != 0 || sow != 0 {
		t.Errorf("epoch: got week=%d sow=%f, want 0, 0", week, sow)
	}

	// Exactly one week later.
	week, sow = FromUTC(time.Date(1980, 1, 13, 0, 0, 0, 0, time.UTC), 0)
	if week != 1 || sow != 0 {
		t.Errorf("epoch+1w: got week=%d sow=%f, want 1, 0", week, sow)
	}
}

func TestFromUTCLeapSeconds(t *testing.T) {
	// Leap seconds shift SOW forward.
	_, sow0 := FromUTC(time.Date(2018, 6, 3, 12, 0, 0, 0, time.UTC), 0)
	_, sow18 := FromUTC(time.Date(2018, 6, 3, 12, 0, 0, 0, time.UTC), 18)
	if diff := sow18 - sow0; math.Abs(diff-18) > 1e-9 {
		t.Errorf("leap second offset: got %f, want 18", diff)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		week uint16
		sow  float64
	}{
		{0, 0},
		{2000, 12345.5},
		{1999, 604799.9999999},
		{42, 0.0000001},
		{1024, 345678.1234567},
	}
	for _, tc := range cases {
		b := Encode(nil, tc.week, tc.sow)
		if len(b) != EncodedLen {
			t.Fatalf("Encode length = %d, want %d", len(b), EncodedLen)
		}
		week, sow, err := Decode(b)
		if err != nil {
			t.Fatalf("Decode(%v): %v", b, err)
		}
		if week != tc.week {
			t.Errorf("week = %d, want %d", week, tc.week)
		}
		if math.Abs(sow-tc.sow) > 1e-7 {
			t.Errorf("sow = %.7f, want %.7f", sow, tc.sow)
		}
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	if _, _, err := Decode(make([]byte, 9)); err == nil {
		t.Error("Decode of 9 bytes should fail")
	}
}

func TestEncodeKnownBytes(t *testing.T) {
	// week 0x07D0, whole 0x00012345, fraction 1234567.
	b := Encode(nil, 2000, 74565.1234567)
	want := []byte{0x07, 0xD0, 0x00, 0x01, 0x23, 0x45, 0x00, 0x12, 0xD6, 0x87}
	for i := range want {
		if b[i] != want[i] {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X (full %x)", i, b[i], want[i], b)
		}
	}
}
