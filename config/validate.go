package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// schemaSrc constrains the structural and range properties of Config: all
// counts positive, locality/mutation expressed as bounded fractions or
// percentages. Power-of-two constraints on RegionSize/MaxSteps/Alignment
// aren't expressible cleanly in CUE's constraint language, so those are
// checked separately in Validate with plain arithmetic.
const schemaSrc = `
Soup: {
	Width:      int & >0
	Height:     int & >0
	RegionSize: int & >0
}
Pair: {
	Alignment:     int & >0
	LocalityLimit: number & >=0
	Head1Offset:   int & >=0
	MaxSteps:      int & >0
	MutationRate:  number & >=0 & <=1
}
Batch: {
	PairsPerStep: int & >0
	MaxPending:   int & >0
	Workers:      int & >=0
}
`

// Validate checks cfg against the CUE schema above and the power-of-two
// constraints the schema can't express, returning the first violation
// found. cfg must already be Resolve()d: the schema requires Head1Offset
// to be a concrete int, and Resolve is what turns the pointer field into
// one.
func Validate(cfg Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc)
	if schema.Err() != nil {
		return fmt.Errorf("config: internal schema error: %w", schema.Err())
	}

	if cfg.Pair.Head1Offset == nil {
		return fmt.Errorf("config: pair.head1_offset is unresolved; call Config.Resolve before Validate")
	}

	val := ctx.Encode(cfg)
	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config: schema violation: %w", err)
	}

	if !isPowerOfTwo(cfg.Soup.RegionSize) {
		return fmt.Errorf("config: soup.region_size (%d) must be a power of two", cfg.Soup.RegionSize)
	}
	if !isPowerOfTwo(cfg.Pair.MaxSteps) {
		return fmt.Errorf("config: pair.max_steps (%d) must be a power of two", cfg.Pair.MaxSteps)
	}
	if !isPowerOfTwo(cfg.Pair.Alignment) {
		return fmt.Errorf("config: pair.alignment (%d) must be a power of two", cfg.Pair.Alignment)
	}
	if cfg.Pair.Alignment > cfg.Soup.RegionSize {
		return fmt.Errorf("config: pair.alignment (%d) must not exceed soup.region_size (%d)", cfg.Pair.Alignment, cfg.Soup.RegionSize)
	}
	if (cfg.Soup.Width*cfg.Soup.Height)%cfg.Soup.RegionSize != 0 {
		return fmt.Errorf("config: soup.region_size (%d) must evenly divide soup.width*soup.height (%d)", cfg.Soup.RegionSize, cfg.Soup.Width*cfg.Soup.Height)
	}

	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
