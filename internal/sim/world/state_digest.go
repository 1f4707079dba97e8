package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"ninex.world/internal/sim/encoding"
)

// Digest hashes the configuration header, the tick and every organism's
// genome and history in scan order. Two worlds with equal digests evolve
// identically under the same behavior.
func (w *World) Digest() string {
	h := sha256.New()
	var tmp [8]byte

	w.digestHeader(h, &tmp)
	w.digestOrganisms(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) digestHeader(h hashWriter, tmp *[8]byte) {
	h.Write([]byte(w.cfg.ID))
	digestWriteU64(h, tmp, w.tick.Load())
	digestWriteI64(h, tmp, w.cfg.Seed)
	digestWriteU64(h, tmp, uint64(w.cfg.GenomeAddressSize))
	digestWriteU64(h, tmp, uint64(w.cfg.Width))
	digestWriteU64(h, tmp, uint64(w.cfg.Height))
	digestWriteU64(h, tmp, uint64(w.cfg.BitHistorySize))
	h.Write([]byte(w.cfg.Behavior))
}

func (w *World) digestOrganisms(h hashWriter, tmp *[8]byte) {
	for x := range w.grid {
		for y := range w.grid[x] {
			o := w.grid[x][y]
			digestWriteU64(h, tmp, uint64(x))
			digestWriteU64(h, tmp, uint64(y))
			h.Write(encoding.PackBits(o.Genome().Bits()))
			h.Write(encoding.PackBits(o.History().Slice()))
		}
	}
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
