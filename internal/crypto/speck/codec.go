package speck

import (
	"github.com/cygnusgs/groundlink/internal/core"
)

// headerLen is the AX.25 header prefix that stays in the clear so the
// spacecraft can route the frame before decrypting it.
const headerLen = 16

// Codec encrypts uplink command frames in CBC mode over the region past
// the AX.25 header. Only complete 8-byte blocks are transformed; the
// trailing partial block (zero filler on fixed-length frames) is left as
// is, so encrypted and plaintext frames have identical length.
//
// The IV is a fixed configured value reapplied to every frame, so equal
// plaintext frames encrypt identically. That is a known property of the
// deployed link, kept for compatibility.
type Codec struct {
	cipher *Cipher
	iv     [BlockSize]byte
}

// NewCodec builds a frame codec from the shared cipher key and IV.
func NewCodec(key [16]byte, iv [8]byte) *Codec {
	return &Codec{cipher: New(key), iv: iv}
}

// Encrypt returns a copy of frame with every complete 8-byte block after
// the 16-byte header encrypted in CBC mode. The header and any trailing
// partial block pass through unchanged.
func (c *Codec) Encrypt(frame []byte) ([]byte, error) {
	if len(frame) < headerLen+BlockSize {
		return nil, core.ErrBlockAlignment
	}
	out := make([]byte, len(frame))
	copy(out, frame)
	body := out[headerLen:]
	prev := c.iv
	for len(body) >= BlockSize {
		for i := 0; i < BlockSize; i++ {
			body[i] ^= prev[i]
		}
		c.cipher.EncryptBlock(body[:BlockSize], body[:BlockSize])
		copy(prev[:], body[:BlockSize])
		body = body[BlockSize:]
	}
	return out, nil
}

// Decrypt inverts Encrypt.
func (c *Codec) Decrypt(frame []byte) ([]byte, error) {
	if len(frame) < headerLen+BlockSize {
		return nil, core.ErrBlockAlignment
	}
	out := make([]byte, len(frame))
	copy(out, frame)
	body := out[headerLen:]
	prev := c.iv
	for len(body) >= BlockSize {
		var ct [BlockSize]byte
		copy(ct[:], body[:BlockSize])
		c.cipher.DecryptBlock(body[:BlockSize], body[:BlockSize])
		for i := 0; i < BlockSize; i++ {
			body[i] ^= prev[i]
		}
		prev = ct
		body = body[BlockSize:]
	}
	return out, nil
}
