// Package diversity tracks how repetitive a batch of soup regions is, by
// hashing each region's raw bytes (its genotype) and its opcode-category
// shape (its phenotype) and reporting what share of a batch shares the
// most common hash of each kind. Grounded on the phenotypeCounts /
// genotypeCounts / dominant-percentage metrics in
// other_examples/TTrapper-evosoup__main.go. None of this is on the
// interpreter's hot path: it runs once per batch, over region bytes the
// pool already touched.
package diversity

import "github.com/zeebo/xxh3"

// Genotype is a content hash of a region's raw bytes: two regions with
// identical bytes share a genotype regardless of what they do when run.
type Genotype uint64

// HashGenotype hashes a region's bytes into a Genotype. Byte-identical
// regions always hash identically; this is a fast, non-cryptographic hash
// chosen purely for collision-avoidance at soup scale, not security.
func HashGenotype(region []byte) Genotype {
	return Genotype(xxh3.Hash(region))
}

// Sample accumulates genotype/phenotype counts over one batch of regions.
type Sample struct {
	genotypes  map[Genotype]int
	phenotypes map[Genotype]int // keyed by a coarser hash of opcode-count shape
	total      int
}

// NewSample returns an empty accumulator.
func NewSample() *Sample {
	return &Sample{
		genotypes:  make(map[Genotype]int),
		phenotypes: make(map[Genotype]int),
	}
}

// Add records one region's genotype (its raw bytes) and phenotype (the
// normalized shape of its opcode category counts, which is what
// TTrapper-evosoup calls a "phenotype key").
func (s *Sample) Add(region []byte, normalizedCounts [5]int) {
	s.total++
	s.genotypes[HashGenotype(region)]++
	s.phenotypes[phenotypeHash(normalizedCounts)]++
}

// phenotypeHash folds a small fixed-size int array into a Genotype-shaped
// key so it can share the same map machinery as genotype hashing.
func phenotypeHash(counts [5]int) Genotype {
	var buf [5 * 8]byte
	for i, c := range counts {
		v := uint64(int64(c))
		for b := 0; b < 8; b++ {
			buf[i*8+b] = byte(v >> (8 * b))
		}
	}
	return Genotype(xxh3.Hash(buf[:]))
}

// Summary is the diversity report for one batch.
type Summary struct {
	Total              int
	DistinctGenotypes  int
	DominantGenotype   float64 // fraction of total sharing the most common genotype
	DistinctPhenotypes int
	DominantPhenotype  float64 // fraction of total sharing the most common phenotype
}

// Summarize computes the dominant-share metrics TTrapper-evosoup logs
// every generation (domGenoPct, domPhenoPct).
func (s *Sample) Summarize() Summary {
	sum := Summary{Total: s.total}
	sum.DistinctGenotypes = len(s.genotypes)
	sum.DistinctPhenotypes = len(s.phenotypes)

	if s.total == 0 {
		return sum
	}

	domGeno := dominantCount(s.genotypes)
	domPheno := dominantCount(s.phenotypes)
	sum.DominantGenotype = float64(domGeno) / float64(s.total)
	sum.DominantPhenotype = float64(domPheno) / float64(s.total)
	return sum
}

func dominantCount(counts map[Genotype]int) int {
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	return max
}
