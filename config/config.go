// Package config loads and validates soup.toml, the driver's
// configuration surface.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full configuration surface a driver needs to run: soup
// dimensions, pair-selection and interpreter parameters, and batching.
type Config struct {
	Soup  SoupConfig  `toml:"soup"`
	Pair  PairConfig  `toml:"pair"`
	Batch BatchConfig `toml:"batch"`
}

// SoupConfig controls the soup's shape.
type SoupConfig struct {
	Width      int `toml:"width"`
	Height     int `toml:"height"`
	RegionSize int `toml:"region_size"`
}

// PairConfig controls pair selection and interpreter execution.
type PairConfig struct {
	Alignment     int     `toml:"alignment"`
	LocalityLimit float64 `toml:"locality_limit"` // percent of soup; 0 disables the window (treated as unconstrained)
	Head1Offset   *int    `toml:"head1_offset"`   // unset means "use RegionSize", see Resolve; an explicit 0 is preserved
	MaxSteps      int     `toml:"max_steps"`
	MutationRate  float64 `toml:"mutation_rate"`
}

// BatchConfig controls how many pairs run per tick and how many ticks may
// be outstanding before the driver applies back-pressure.
type BatchConfig struct {
	PairsPerStep int `toml:"pairs_per_step"`
	MaxPending   int `toml:"max_pending"`
	Workers      int `toml:"workers"` // 0 means pool.DefaultWorkers()
}

// Default returns the configuration the driver uses when no file is
// supplied, matching the defaults table.
func Default() Config {
	return Config{
		Soup: SoupConfig{
			Width:      64,
			Height:     32768,
			RegionSize: 64,
		},
		Pair: PairConfig{
			Alignment:     64,
			LocalityLimit: 0,
			Head1Offset:   nil,
			MaxSteps:      8192,
			MutationRate:  0.00024,
		},
		Batch: BatchConfig{
			PairsPerStep: 100,
			MaxPending:   50,
			Workers:      0,
		},
	}
}

// Load parses path as TOML into Default()'s values, so a partial file
// only overrides the fields it sets, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse error in %s: %w", path, err)
	}

	cfg = cfg.Resolve()
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve fills in values that depend on other fields: an unset
// Head1Offset defaults to RegionSize (the start of region B). Head1Offset
// is a pointer specifically so that a TOML file can request the boundary
// case head1_offset = 0 (head1 starts at the same position as head0)
// without it being mistaken for "unset" — only a genuinely absent key
// triggers the RegionSize default.
func (c Config) Resolve() Config {
	if c.Pair.Head1Offset == nil {
		v := c.Soup.RegionSize
		c.Pair.Head1Offset = &v
	}
	return c
}
