package book

import "fmt"

// packedWord is a little-endian limb array used to assemble bit-packed wire
// words wider than 64 bits. Field offsets count from bit zero of the integer
// value; serialization is big-endian bytes of that integer, matching how a
// storage word is laid out on the wire.
type packedWord []uint64

func newPackedWord(bits uint) packedWord {
	return make(packedWord, (bits+63)/64)
}

func widthMask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<width - 1
}

// set writes the low width bits of v at the given bit offset. Bits of v above
// width are discarded.
func (w packedWord) set(offset, width uint, v uint64) {
	mask := widthMask(width)
	v &= mask
	limb, shift := offset/64, offset%64
	w[limb] = w[limb]&^(mask<<shift) | v<<shift
	if shift+width > 64 {
		spill := 64 - shift
		w[limb+1] = w[limb+1]&^(mask>>spill) | v>>spill
	}
}

func (w packedWord) get(offset, width uint) uint64 {
	mask := widthMask(width)
	limb, shift := offset/64, offset%64
	v := w[limb] >> shift
	if shift+width > 64 {
		v |= w[limb+1] << (64 - shift)
	}
	return v & mask
}

// bytesBE serializes the word as an n-byte big-endian integer.
func (w packedWord) bytesBE(n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		limb := i / 8
		if limb < len(w) {
			out[n-1-i] = byte(w[limb] >> (8 * uint(i%8)))
		}
	}
	return out
}

func packedWordFromBytesBE(b []byte, bits uint) (packedWord, error) {
	w := newPackedWord(bits)
	for i := 0; i < len(b); i++ {
		byteIdx := len(b) - 1 - i
		limb := uint(i) / 8
		shift := 8 * (uint(i) % 8)
		if limb >= uint(len(w)) {
			if b[byteIdx] != 0 {
				return nil, fmt.Errorf("packed word: byte %d outside %d bits", byteIdx, bits)
			}
			continue
		}
		w[limb] |= uint64(b[byteIdx]) << shift
	}
	if rem := bits % 64; rem != 0 {
		if w[len(w)-1]&^widthMask(rem) != 0 {
			return nil, fmt.Errorf("packed word: bits set above %d", bits)
		}
	}
	return w, nil
}
