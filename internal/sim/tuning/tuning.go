package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ninex.world/internal/sim/world"
)

// Tuning is the on-disk run configuration (configs/ninex.yaml).
type Tuning struct {
	WorldID string `yaml:"world_id" json:"world_id"`
	Seed    int64  `yaml:"seed" json:"seed"`

	GenomeAddressSize  int `yaml:"genome_address_size" json:"genome_address_size"`
	Width              int `yaml:"width" json:"width"`
	Height             int `yaml:"height" json:"height"`
	NeighborhoodRadius int `yaml:"neighborhood_radius" json:"neighborhood_radius"`
	BitHistorySize     int `yaml:"bit_history_size" json:"bit_history_size"`
	Iterations         int `yaml:"iterations" json:"iterations"`

	EFE      EFE    `yaml:"efe" json:"efe"`
	Behavior string `yaml:"behavior" json:"behavior"`

	TickRateHz         int    `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	SnapshotEveryTicks int    `yaml:"snapshot_every_ticks" json:"snapshot_every_ticks"`
	RedModulus         uint64 `yaml:"red_modulus" json:"red_modulus"`

	Poster Poster `yaml:"poster" json:"poster"`
	Movie  Movie  `yaml:"movie" json:"movie"`
}

type EFE struct {
	Length int `yaml:"length" json:"length"`
	Spread int `yaml:"spread" json:"spread"`
}

// Poster lays out Width x Height frames sampled evenly over the run.
type Poster struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
	Margin  int    `yaml:"margin" json:"margin"`
	Scale   int    `yaml:"scale" json:"scale"`
}

// Movie writes one JPEG per iteration as <Dir>/<Prefix>.NNNN.jpg.
type Movie struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Dir     string `yaml:"dir" json:"dir"`
	Prefix  string `yaml:"prefix" json:"prefix"`
	Scale   int    `yaml:"scale" json:"scale"`
	Quality int    `yaml:"quality" json:"quality"`
}

// Defaults mirrors the world defaults plus the output settings.
func Defaults() Tuning {
	return Tuning{
		WorldID:            "world_1",
		GenomeAddressSize:  8,
		Width:              128,
		Height:             64,
		NeighborhoodRadius: 1,
		BitHistorySize:     32,
		Iterations:         1024,
		EFE:                EFE{Length: 8},
		Behavior:           "reference",
		TickRateHz:         30,
		SnapshotEveryTicks: 256,
		RedModulus:         8192,
		Poster:             Poster{Path: "poster.png", Width: 6, Height: 4, Margin: 8, Scale: 1},
		Movie:              Movie{Dir: "frames", Prefix: "frame", Scale: 4, Quality: 90},
	}
}

// Load reads path over Defaults, so omitted keys keep their default value.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func (t Tuning) WorldConfig() world.Config {
	return world.Config{
		ID:                 t.WorldID,
		Seed:               t.Seed,
		GenomeAddressSize:  t.GenomeAddressSize,
		Width:              t.Width,
		Height:             t.Height,
		NeighborhoodRadius: t.NeighborhoodRadius,
		BitHistorySize:     t.BitHistorySize,
		Iterations:         t.Iterations,
		EFELength:          t.EFE.Length,
		EFESpread:          t.EFE.Spread,
		Behavior:           t.Behavior,
		TickRateHz:         t.TickRateHz,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
		RedModulus:         t.RedModulus,
	}
}
