package world

import (
	"errors"
	"fmt"

	"ninex.world/internal/sim/organism"
)

var ErrInvalidConfig = errors.New("invalid world config")

// Config is fixed for a run. Zero fields take their defaults when a world is
// constructed, except NeighborhoodRadius: 0 is a self-only neighborhood and
// a negative radius takes the default.
type Config struct {
	ID   string
	Seed int64

	// Genome length is 2^GenomeAddressSize bits.
	GenomeAddressSize  int
	Width              int
	Height             int
	NeighborhoodRadius int
	BitHistorySize     int
	Iterations         int

	// Expression function: rows including the input row, and the address
	// spread applied to each 3-bit neighborhood code.
	EFELength int
	EFESpread int

	// Behavior names a built-in organism behavior ("reference", "history-gene").
	Behavior string

	// Operational parameters. These are included in snapshots for deterministic replay/resume.
	TickRateHz         int
	SnapshotEveryTicks int
	RedModulus         uint64
}

const (
	DefaultNeighborhoodRadius = 1

	maxGenomeAddressSize = 24
)

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.GenomeAddressSize <= 0 {
		c.GenomeAddressSize = 8
	}
	if c.Width <= 0 {
		c.Width = 128
	}
	if c.Height <= 0 {
		c.Height = 64
	}
	if c.NeighborhoodRadius < 0 {
		c.NeighborhoodRadius = DefaultNeighborhoodRadius
	}
	if c.BitHistorySize <= 0 {
		c.BitHistorySize = 32
	}
	if c.Iterations <= 0 {
		c.Iterations = 1024
	}
	if c.EFELength <= 0 {
		c.EFELength = 8
	}
	if c.EFESpread <= 0 && c.GenomeAddressSize <= maxGenomeAddressSize {
		c.EFESpread = c.GenomeSize() / 8
		if c.EFESpread <= 0 {
			c.EFESpread = 1
		}
	}
	if c.Behavior == "" {
		c.Behavior = organism.BehaviorReference
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 30
	}
	if c.SnapshotEveryTicks <= 0 {
		c.SnapshotEveryTicks = 256
	}
	if c.RedModulus == 0 {
		c.RedModulus = 8192
	}
}

// Validate reports the first field that cannot describe a runnable world.
func (c Config) Validate() error {
	if c.GenomeAddressSize < 1 || c.GenomeAddressSize > maxGenomeAddressSize {
		return fmt.Errorf("%w: genome_address_size %d not in [1, %d]", ErrInvalidConfig, c.GenomeAddressSize, maxGenomeAddressSize)
	}
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("%w: world size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if side := 2*c.NeighborhoodRadius + 1; side > c.Width || side > c.Height {
		return fmt.Errorf("%w: neighborhood radius %d does not fit a %dx%d world", ErrInvalidConfig, c.NeighborhoodRadius, c.Width, c.Height)
	}
	if c.BitHistorySize < 1 {
		return fmt.Errorf("%w: bit_history_size %d", ErrInvalidConfig, c.BitHistorySize)
	}
	if c.EFELength < 1 || c.EFESpread < 1 {
		return fmt.Errorf("%w: efe length %d spread %d", ErrInvalidConfig, c.EFELength, c.EFESpread)
	}
	if _, err := organism.Lookup(c.Behavior); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// GenomeSize is 2^GenomeAddressSize.
func (c Config) GenomeSize() int { return 1 << uint(c.GenomeAddressSize) }

// NeighborhoodSizeInCells is (1 + 2r)^2.
func NeighborhoodSizeInCells(radius int) int {
	side := 1 + 2*radius
	return side * side
}

// NeighborhoodAddressSize is the smallest k >= 1 with 2^k >= cells*genomeSize.
func NeighborhoodAddressSize(cells, genomeSize int) int {
	min := cells * genomeSize
	k := 1
	for 1<<uint(k) < min {
		k++
	}
	return k
}
