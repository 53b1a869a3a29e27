package ensemble

import (
	"math/rand"
)

// SamplingStrategy handles data and feature sampling for tree building.
// Per-tree generators are derived from the base seed so trees built
// concurrently stay deterministic under a fixed seed.
type SamplingStrategy struct {
	seed            int64
	featureFraction float64
	baggingFraction float64
}

// NewSamplingStrategy creates a new sampling strategy
func NewSamplingStrategy(seed int64, featureFraction, baggingFraction float64) *SamplingStrategy {
	return &SamplingStrategy{
		seed:            seed,
		featureFraction: featureFraction,
		baggingFraction: baggingFraction,
	}
}

// TreeRNG returns an independent generator for one tree
func (s *SamplingStrategy) TreeRNG(treeIndex int) *rand.Rand {
	return rand.New(rand.NewSource(s.seed + int64(treeIndex)*2654435761))
}

// SampleFeatures draws numSample distinct feature indices with a partial
// Fisher-Yates shuffle.
func SampleFeatures(rng *rand.Rand, numFeatures, numSample int) []int {
	if numSample < 1 {
		numSample = 1
	}
	if numSample > numFeatures {
		numSample = numFeatures
	}

	perm := make([]int, numFeatures)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < numSample; i++ {
		j := i + rng.Intn(numFeatures-i)
		perm[i], perm[j] = perm[j], perm[i]
	}

	return perm[:numSample]
}

// Bootstrap draws n row indices with replacement
func Bootstrap(rng *rand.Rand, n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = rng.Intn(n)
	}
	return indices
}

// SampleInstances samples rows without replacement according to the
// bagging fraction. A fraction of 1 or less than or equal to 0 keeps every
// row.
func (s *SamplingStrategy) SampleInstances(rng *rand.Rand, numInstances int) []int {
	if s.baggingFraction >= 1.0 || s.baggingFraction <= 0 {
		instances := make([]int, numInstances)
		for i := range instances {
			instances[i] = i
		}
		return instances
	}

	numSample := int(float64(numInstances) * s.baggingFraction)
	if numSample < 1 {
		numSample = 1
	}

	perm := make([]int, numInstances)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < numSample; i++ {
		j := i + rng.Intn(numInstances-i)
		perm[i], perm[j] = perm[j], perm[i]
	}

	return perm[:numSample]
}

// FeatureCount resolves the per-split feature budget for numFeatures
func (s *SamplingStrategy) FeatureCount(numFeatures int) int {
	if s.featureFraction >= 1.0 || s.featureFraction <= 0 {
		return numFeatures
	}
	n := int(float64(numFeatures) * s.featureFraction)
	if n < 1 {
		n = 1
	}
	return n
}
