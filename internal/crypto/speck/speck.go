// Package speck implements the Speck64/128 block cipher and the CBC
// frame codec applied to uplink command frames.
//
// Speck (Beaulieu et al.) is the lightweight cipher the spacecraft's
// radio processor can afford: 64-bit blocks, 128-bit key, add-rotate-xor
// rounds. This is link obfuscation for a university spacecraft, not a
// modern AEAD; see Codec for the protocol-level caveats.
package speck

import "encoding/binary"

// BlockSize is the cipher block size in bytes.
const BlockSize = 8

const rounds = 27

// Cipher is an expanded Speck64/128 key.
type Cipher struct {
	rk [rounds]uint32
}

// New expands a 16-byte key. Key words are read little-endian, matching
// the reference implementation's byte order.
func New(key [16]byte) *Cipher {
	k := binary.LittleEndian.Uint32(key[0:4])
	var l [3 + rounds - 1]uint32
	for i := 0; i < 3; i++ {
		l[i] = binary.LittleEndian.Uint32(key[4+4*i:])
	}
	c := &Cipher{}
	for i := 0; i < rounds; i++ {
		c.rk[i] = k
		if i < rounds-1 {
			l[i+3] = (k + ror(l[i], 8)) ^ uint32(i)
			k = rol(k, 3) ^ l[i+3]
		}
	}
	return c
}

func ror(x uint32, r uint) uint32 { return x>>r | x<<(32-r) }
func rol(x uint32, r uint) uint32 { return x<<r | x>>(32-r) }

func (c *Cipher) encryptWords(x, y uint32) (uint32, uint32) {
	for i := 0; i < rounds; i++ {
		x = (ror(x, 8) + y) ^ c.rk[i]
		y = rol(y, 3) ^ x
	}
	return x, y
}

func (c *Cipher) decryptWords(x, y uint32) (uint32, uint32) {
	for i := rounds - 1; i >= 0; i-- {
		y = ror(y^x, 3)
		x = rol((x^c.rk[i])-y, 8)
	}
	return x, y
}

// EncryptBlock encrypts one 8-byte block, dst and src may overlap.
func (c *Cipher) EncryptBlock(dst, src []byte) {
	y := binary.LittleEndian.Uint32(src[0:4])
	x := binary.LittleEndian.Uint32(src[4:8])
	x, y = c.encryptWords(x, y)
	binary.LittleEndian.PutUint32(dst[0:4], y)
	binary.LittleEndian.PutUint32(dst[4:8], x)
}

// DecryptBlock decrypts one 8-byte block, dst and src may overlap.
func (c *Cipher) DecryptBlock(dst, src []byte) {
	y := binary.LittleEndian.Uint32(src[0:4])
	x := binary.LittleEndian.Uint32(src[4:8])
	x, y = c.decryptWords(x, y)
	binary.LittleEndian.PutUint32(dst[0:4], y)
	binary.LittleEndian.PutUint32(dst[4:8], x)
}
