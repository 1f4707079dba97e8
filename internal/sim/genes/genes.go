// Package genes decodes typed views of a genome. Each gene kind owns one
// slot in the table at the front of the genome; the slot holds the gene's
// start address, and the fields are read relative to that address.
//
// Nothing here is cached: every call re-reads the genome.
package genes

import "ninex.world/internal/sim/genome"

// Table slots.
const (
	IndexDisplay    = 0
	IndexMove       = 1
	IndexMeet       = 2
	IndexHistoryBit = 3
)

// ColorSize is the width in bits of each display channel.
const ColorSize = 8

type DisplayGene struct {
	Red   uint64 `json:"red"`
	Green uint64 `json:"green"`
	Blue  uint64 `json:"blue"`
}

type MoveGene struct {
	AddressA uint64 `json:"address_a"`
	AddressB uint64 `json:"address_b"`
}

type MeetGene struct {
	AddressA uint64 `json:"address_a"`
	AddressB uint64 `json:"address_b"`
	Size     uint64 `json:"size"`
}

type HistoryBitGene struct {
	Address uint64 `json:"address"`
}

// Decoder reads genes from genomes whose address space is AddressSize bits
// wide (genome length 2^AddressSize).
type Decoder struct {
	AddressSize int
}

func NewDecoder(addressSize int) Decoder {
	return Decoder{AddressSize: addressSize}
}

// StartAddress decodes the start address stored in table slot index.
func (d Decoder) StartAddress(v genome.View, index int) int {
	return int(genome.Unsigned(v, index*d.AddressSize, d.AddressSize))
}

func (d Decoder) field(v genome.View, start, offset, width int) uint64 {
	return genome.Unsigned(v, start+offset, width)
}

func (d Decoder) Display(v genome.View) DisplayGene {
	s := d.StartAddress(v, IndexDisplay)
	return DisplayGene{
		Red:   d.field(v, s, 0*ColorSize, ColorSize),
		Green: d.field(v, s, 1*ColorSize, ColorSize),
		Blue:  d.field(v, s, 2*ColorSize, ColorSize),
	}
}

func (d Decoder) Move(v genome.View) MoveGene {
	s := d.StartAddress(v, IndexMove)
	return MoveGene{
		AddressA: d.field(v, s, 0*d.AddressSize, d.AddressSize),
		AddressB: d.field(v, s, 1*d.AddressSize, d.AddressSize),
	}
}

func (d Decoder) Meet(v genome.View) MeetGene {
	s := d.StartAddress(v, IndexMeet)
	return MeetGene{
		AddressA: d.field(v, s, 0*d.AddressSize, d.AddressSize),
		AddressB: d.field(v, s, 1*d.AddressSize, d.AddressSize),
		Size:     d.field(v, s, 2*d.AddressSize, d.AddressSize),
	}
}

func (d Decoder) HistoryBit(v genome.View) HistoryBitGene {
	s := d.StartAddress(v, IndexHistoryBit)
	return HistoryBitGene{Address: d.field(v, s, 0, d.AddressSize)}
}
