// Package seqnum implements 16-bit sequence number arithmetic. Zero is
// reserved and never a valid sequence number, so both directions wrap
// through 1, not 0.
package seqnum

// Increment advances a sequence number, wrapping 65535 back to 1.
func Increment(n uint16) uint16 {
	if n == 0xFFFF {
		return 1
	}
	return n + 1
}

// Decrement steps a sequence number back, pinning 1 at 1 so zero is
// never produced.
func Decrement(n uint16) uint16 {
	if n <= 1 {
		return 1
	}
	return n - 1
}
