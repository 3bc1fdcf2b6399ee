// Package gpstime converts UTC timestamps to GPS week / seconds-of-week
// and implements the 10-byte wire encoding used in the SPP header.
//
// The wire format is not IEEE floating point: seconds-of-week travels as
// a 4-byte integer whole part plus a 4-byte integer holding the first
// seven decimal digits of the fraction. Encoding and decoding go through
// the decimal string so a round trip reproduces the value to 1e-7.
package gpstime

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EncodedLen is the size of the wire encoding: u16 week, u32 whole
// seconds, u32 fractional digits, all big-endian.
const EncodedLen = 10

const secondsPerWeek = 604800

var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// Clock yields the current (week, seconds-of-week). The controller and
// codec take a Clock so tests can pin time.
type Clock func() (week uint16, sow float64)

// SystemClock returns a Clock reading the host UTC time with the given
// leap-second offset.
func SystemClock(leapSeconds int) Clock {
	return func() (uint16, float64) {
		return FromUTC(time.Now().UTC(), leapSeconds)
	}
}

// FromUTC converts a UTC timestamp to GPS week and seconds-of-week.
// GPS time runs ahead of UTC by the accumulated leap seconds, which
// cannot be predicted and are therefore configuration.
func FromUTC(t time.Time, leapSeconds int) (uint16, float64) {
	d := t.UTC().Sub(gpsEpoch) + time.Duration(leapSeconds)*time.Second
	totalSec := d.Seconds()
	week := int(totalSec) / secondsPerWeek
	sow := totalSec - float64(week)*secondsPerWeek
	return uint16(week), sow
}

// Encode appends the 10-byte wire form of (week, sow) to dst.
func Encode(dst []byte, week uint16, sow float64) []byte {
	whole, fract := splitSow(sow)
	dst = binary.BigEndian.AppendUint16(dst, week)
	dst = binary.BigEndian.AppendUint32(dst, whole)
	dst = binary.BigEndian.AppendUint32(dst, fract)
	return dst
}

// Decode parses the 10-byte wire form back to (week, sow).
func Decode(b []byte) (uint16, float64, error) {
	if len(b) < EncodedLen {
		return 0, 0, fmt.Errorf("gps timestamp needs %d bytes, have %d", EncodedLen, len(b))
	}
	week := binary.BigEndian.Uint16(b[0:2])
	whole := binary.BigEndian.Uint32(b[2:6])
	fract := binary.BigEndian.Uint32(b[6:10])
	sow, err := strconv.ParseFloat(fmt.Sprintf("%d.%07d", whole, fract), 64)
	if err != nil {
		return 0, 0, err
	}
	return week, sow, nil
}

// splitSow renders sow with exactly seven fractional digits and returns
// the two integer halves. Going through the decimal string mirrors the
// wire format's fixed-point semantics.
func splitSow(sow float64) (uint32, uint32) {
	s := strconv.FormatFloat(sow, 'f', 7, 64)
	wholeStr, fractStr, _ := strings.Cut(s, ".")
	whole, _ := strconv.ParseUint(wholeStr, 10, 32)
	fract, _ := strconv.ParseUint(fractStr, 10, 32)
	return uint32(whole), uint32(fract)
}
