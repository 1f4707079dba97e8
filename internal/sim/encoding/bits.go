package encoding

import "fmt"

// PackBits packs a bit slice eight to a byte, bit i in byte i/8 at position
// i%8 (least significant first). Trailing pad bits are zero.
func PackBits(bits []uint8) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b != 0 {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// UnpackBits is the inverse of PackBits for exactly n bits.
func UnpackBits(packed []byte, n int) ([]uint8, error) {
	if n < 0 || len(packed) != (n+7)/8 {
		return nil, fmt.Errorf("packed length %d does not hold %d bits", len(packed), n)
	}
	out := make([]uint8, n)
	for i := range out {
		out[i] = (packed[i/8] >> uint(i%8)) & 1
	}
	return out, nil
}
