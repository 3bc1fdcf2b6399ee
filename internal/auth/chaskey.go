// Package auth implements the keyed MAC protecting SPP packets.
//
// The primitive is Chaskey (Mouha et al.), a permutation-based MAC for
// microcontrollers: 128-bit key, 128-bit state, 8-round ARX permutation,
// 16-byte tag. The spacecraft runs the same algorithm on an MSP430, so
// the block handling and padding here must match the reference C
// implementation bit for bit.
package auth

import "encoding/binary"

// TagLen is the digest length appended to every TM/TC packet.
const TagLen = 16

type state [4]uint32

func round(v *state) {
	v[0] += v[1]
	v[1] = bitsRotl(v[1], 5) ^ v[0]
	v[0] = bitsRotl(v[0], 16)
	v[2] += v[3]
	v[3] = bitsRotl(v[3], 8) ^ v[2]
	v[0] += v[3]
	v[3] = bitsRotl(v[3], 13) ^ v[0]
	v[2] += v[1]
	v[1] = bitsRotl(v[1], 7) ^ v[2]
	v[2] = bitsRotl(v[2], 16)
}

func permute(v *state) {
	for i := 0; i < 8; i++ {
		round(v)
	}
}

func bitsRotl(x uint32, b uint) uint32 {
	return x<<b | x>>(32-b)
}

// timesTwo multiplies by x in GF(2^128) with the Chaskey reduction
// polynomial; used to derive the two finalization subkeys.
func timesTwo(in state) state {
	var out state
	c := uint32(0)
	if in[3]>>31 != 0 {
		c = 0x87
	}
	out[0] = in[0]<<1 ^ c
	out[1] = in[1]<<1 | in[0]>>31
	out[2] = in[2]<<1 | in[1]>>31
	out[3] = in[3]<<1 | in[2]>>31
	return out
}

func loadKey(key [16]byte) state {
	var k state
	for i := 0; i < 4; i++ {
		k[i] = binary.LittleEndian.Uint32(key[4*i:])
	}
	return k
}

// Sign computes the 16-byte Chaskey tag of msg under key.
func Sign(msg []byte, key [16]byte) [TagLen]byte {
	k := loadKey(key)
	k1 := timesTwo(k)
	k2 := timesTwo(k1)

	v := k

	// All complete blocks except the final one.
	n := len(msg)
	full := 0
	if n != 0 {
		full = (n - 1) / 16
	}
	for i := 0; i < full; i++ {
		b := msg[16*i:]
		v[0] ^= binary.LittleEndian.Uint32(b[0:])
		v[1] ^= binary.LittleEndian.Uint32(b[4:])
		v[2] ^= binary.LittleEndian.Uint32(b[8:])
		v[3] ^= binary.LittleEndian.Uint32(b[12:])
		permute(&v)
	}

	// Final block: complete blocks close with k1, everything else is
	// padded with 0x01 then zeros and closes with k2.
	var last [16]byte
	var l state
	rest := msg[16*full:]
	if n != 0 && len(rest) == 16 {
		copy(last[:], rest)
		l = k1
	} else {
		copy(last[:], rest)
		last[len(rest)] = 0x01
		l = k2
	}
	v[0] ^= binary.LittleEndian.Uint32(last[0:])
	v[1] ^= binary.LittleEndian.Uint32(last[4:])
	v[2] ^= binary.LittleEndian.Uint32(last[8:])
	v[3] ^= binary.LittleEndian.Uint32(last[12:])

	for i := range v {
		v[i] ^= l[i]
	}
	permute(&v)
	for i := range v {
		v[i] ^= l[i]
	}

	var tag [TagLen]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(tag[4*i:], v[i])
	}
	return tag
}

// Verify recomputes the tag over scope and compares it byte for byte
// against the received digest. The result is a validity bitmask, not a
// boolean, so future failure classes can set further bits; any byte
// mismatch sets bit 0. A mask of 0 means valid.
func Verify(scope []byte, digest []byte, key [16]byte) uint8 {
	want := Sign(scope, key)
	var mask uint8
	if len(digest) != TagLen {
		return mask | 0x01
	}
	for i, b := range digest {
		if b != want[i] {
			mask |= 0x01
		}
	}
	return mask
}
