package diversity

import "testing"

func TestHashGenotype_IdenticalBytesSameHash(t *testing.T) {
	a := []byte("replicator-body")
	b := []byte("replicator-body")

	if HashGenotype(a) != HashGenotype(b) {
		t.Errorf("identical region bytes hashed to different genotypes")
	}
}

func TestHashGenotype_DifferentBytesDifferentHash(t *testing.T) {
	a := []byte("replicator-body-a")
	b := []byte("replicator-body-b")

	if HashGenotype(a) == HashGenotype(b) {
		t.Errorf("distinct region bytes collided (statistically should not happen in a small test)")
	}
}

func TestSample_AllIdenticalOneDistinctDominant(t *testing.T) {
	s := NewSample()
	region := []byte("AAAA")
	shape := [5]int{10, 0, 5, 0, 2}

	for i := 0; i < 10; i++ {
		s.Add(region, shape)
	}

	sum := s.Summarize()
	if sum.Total != 10 {
		t.Errorf("Total = %d, want 10", sum.Total)
	}
	if sum.DistinctGenotypes != 1 {
		t.Errorf("DistinctGenotypes = %d, want 1", sum.DistinctGenotypes)
	}
	if sum.DominantGenotype != 1.0 {
		t.Errorf("DominantGenotype = %v, want 1.0", sum.DominantGenotype)
	}
}

func TestSample_AllDistinctLowDominance(t *testing.T) {
	s := NewSample()
	for i := 0; i < 5; i++ {
		region := []byte{byte(i), byte(i + 1), byte(i + 2)}
		s.Add(region, [5]int{i, 0, 0, 0, 0})
	}

	sum := s.Summarize()
	if sum.DistinctGenotypes != 5 {
		t.Errorf("DistinctGenotypes = %d, want 5", sum.DistinctGenotypes)
	}
	if sum.DominantGenotype > 0.21 {
		t.Errorf("DominantGenotype = %v, want <= 1/5", sum.DominantGenotype)
	}
}

func TestSample_EmptySummary(t *testing.T) {
	s := NewSample()
	sum := s.Summarize()
	if sum.Total != 0 || sum.DominantGenotype != 0 || sum.DominantPhenotype != 0 {
		t.Errorf("empty summary should be all zero, got %+v", sum)
	}
}
