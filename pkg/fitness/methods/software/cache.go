package software

import (
	"gonum.org/v1/gonum/floats"

	"batfit/pkg/fitness/chromosome"
	"batfit/pkg/fitness/core"
	"batfit/pkg/fitness/reduce"
)

// vectorCache is one immutable generation of the reference dataset, widened to
// float64 and laid out vector index major.
type vectorCache struct {
	generation uint64
	chromoLen  int
	dim        int
	data       []float64
}

// newVectorCache copies vectors in index order. Callers validate the shape first.
func newVectorCache(vectors []float32, chromoLen, dim int, generation uint64) *vectorCache {
	data := make([]float64, chromoLen*dim)
	for i := range data {
		data[i] = float64(vectors[i])
	}
	return &vectorCache{
		generation: generation,
		chromoLen:  chromoLen,
		dim:        dim,
		data:       data,
	}
}

func (c *vectorCache) info() core.CacheInfo {
	if c == nil {
		return core.CacheInfo{}
	}
	return core.CacheInfo{
		Loaded:     true,
		Generation: c.generation,
		ChromoLen:  c.chromoLen,
		Dim:        c.dim,
	}
}

func (c *vectorCache) row(g int) []float64 {
	base := g * c.dim
	return c.data[base : base+c.dim]
}

// accumulate fills sumA and sumB (both of length dim) with the partition sums
// selected by genes.
func (c *vectorCache) accumulate(genes []uint32, sumA, sumB []float64) {
	for d := range sumA {
		sumA[d] = 0
		sumB[d] = 0
	}
	for g := 0; g < c.chromoLen; g++ {
		if chromosome.Bit(genes, g) {
			floats.Add(sumB, c.row(g))
		} else {
			floats.Add(sumA, c.row(g))
		}
	}
}

// score evaluates one buffered chromosome.
func (c *vectorCache) score(genes []uint32, sumA, sumB []float64) float64 {
	c.accumulate(genes, sumA, sumB)
	return reduce.SquaredDistance(sumA, sumB)
}
