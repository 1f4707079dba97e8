package world

import "ninex.world/internal/sim/genes"

// Display decodes the display gene of the organism at (x, y) with the red
// channel reduced modulo RedModulus. Coordinates outside the grid read as
// black.
func (w *World) Display(x, y int) genes.DisplayGene {
	o := w.Organism(x, y)
	if o == nil {
		return genes.DisplayGene{}
	}
	d := o.Display(w.decoder)
	if w.cfg.RedModulus > 0 {
		d.Red %= w.cfg.RedModulus
	}
	return d
}

// RGB returns the display gene clamped to 8-bit channels.
func (w *World) RGB(x, y int) (r, g, b uint8) {
	d := w.Display(x, y)
	return clamp8(d.Red), clamp8(d.Green), clamp8(d.Blue)
}

func clamp8(v uint64) uint8 {
	if v > 0xFF {
		return 0xFF
	}
	return uint8(v)
}

func packRGB(d genes.DisplayGene) uint32 {
	return uint32(clamp8(d.Red))<<16 | uint32(clamp8(d.Green))<<8 | uint32(clamp8(d.Blue))
}
