package core

import "errors"

// Sentinel errors shared across the stack. Frame-level errors are
// recovered locally by the receive path; transport errors are fatal to
// the task that hit them.
var (
	// Framing errors
	ErrFrameTooShort  = errors.New("groundlink: frame too short")
	ErrBadKissEscape  = errors.New("groundlink: malformed KISS escape sequence")
	ErrBadFrameHeader = errors.New("groundlink: malformed transport frame header")
	ErrNotSppPacket   = errors.New("groundlink: not an SPP packet")

	// Packet build errors
	ErrSequenceZero   = errors.New("groundlink: sequence number must not be zero")
	ErrPayloadMissing = errors.New("groundlink: packet payload not set")
	ErrBuilderReused  = errors.New("groundlink: packet builder already built")
	ErrBlockAlignment = errors.New("groundlink: cipher region shorter than one block")

	// Session errors
	ErrDownlinkAborted = errors.New("groundlink: downlink aborted, retry budget exhausted")
	ErrTransportClosed = errors.New("groundlink: radio transport closed")

	// Configuration errors
	ErrConfigInvalid = errors.New("groundlink: invalid configuration")
	ErrBadKeyLength  = errors.New("groundlink: key material has wrong length")
)
