package organism

import "ninex.world/internal/sim/genome"

// Neighborhood is the square of organisms around one cell. Offsets wrap
// around the world edges; (0, 0) is the acting organism.
type Neighborhood interface {
	Radius() int
	At(dx, dy int) *Organism
	// AddressSize is the number of bits needed to address every genome bit
	// of the neighborhood.
	AddressSize() int
}

// Cells lists the neighborhood row by row from the top-left corner.
func Cells(n Neighborhood) []*Organism {
	r := n.Radius()
	side := 2*r + 1
	out := make([]*Organism, 0, side*side)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			out = append(out, n.At(dx, dy))
		}
	}
	return out
}

// JointGenome presents the genomes of a neighborhood, in Cells order, as a
// single wrap-around bit string.
type JointGenome struct {
	cells []*Organism
	each  int
}

func NewJointGenome(n Neighborhood) *JointGenome {
	cells := Cells(n)
	each := 0
	if len(cells) > 0 && cells[0] != nil {
		each = cells[0].genome.Len()
	}
	return &JointGenome{cells: cells, each: each}
}

func (j *JointGenome) Len() int { return len(j.cells) * j.each }

func (j *JointGenome) BitAt(index int) uint8 {
	if j.each == 0 {
		return 0
	}
	i := genome.Wrap(index, j.Len())
	return j.cells[i/j.each].genome.BitAt(i % j.each)
}

// Locate maps a joint index to the owning organism and its local address.
func (j *JointGenome) Locate(index int) (*Organism, int) {
	if j.each == 0 {
		return nil, 0
	}
	i := genome.Wrap(index, j.Len())
	return j.cells[i/j.each], i % j.each
}
