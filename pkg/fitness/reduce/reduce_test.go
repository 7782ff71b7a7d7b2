package reduce

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSquaredDistance(t *testing.T) {
	got := SquaredDistance([]float64{0, 3}, []float64{3, 0})
	assert.Equal(t, 18.0, got)

	assert.Equal(t, 0.0, SquaredDistance(nil, nil))
	assert.Equal(t, 25.0, SquaredDistance([]float64{3, 4}, []float64{0, 0}))
}

func TestSquaredDistanceCompensation(t *testing.T) {
	// A unit term followed by many terms below half an ulp of 1: a naive sum drops them all.
	a := make([]float64, 10001)
	b := make([]float64, 10001)
	a[0] = 1
	for i := 1; i < len(a); i++ {
		a[i] = 1e-8
	}

	naive := 0.0
	for i := range a {
		naive += a[i] * a[i]
	}
	assert.Equal(t, 1.0, naive)

	got := SquaredDistance(a, b)
	assert.Greater(t, got, 1.0)
	assert.True(t, WithinTolerance(got, 1+1e-12, 0, 1e-15), "got %v", got)
}

func TestGroupedSquaredDistance32(t *testing.T) {
	a := []float32{1, 2, 3, 4, 5, 6, 7}
	b := []float32{0, 0, 0, 0, 0, 0, 0}

	assert.Equal(t, float32(140), GroupedSquaredDistance32(a, b, 4))
	assert.Equal(t, float32(140), GroupedSquaredDistance32(a, b, 1))
	assert.Equal(t, float32(140), GroupedSquaredDistance32(a, b, 0))
	assert.Equal(t, NaiveSquaredDistance32(a, b), GroupedSquaredDistance32(a, b, 1))
}

func TestGroupedMatchesCompensatedWithinTolerance(t *testing.T) {
	a32 := make([]float32, 97)
	b32 := make([]float32, 97)
	a64 := make([]float64, 97)
	b64 := make([]float64, 97)
	for d := range a32 {
		a32[d] = float32(math.Sin(float64(d))) * 37
		b32[d] = float32(math.Cos(float64(d))) * 11
		a64[d] = float64(a32[d])
		b64[d] = float64(b32[d])
	}

	hw := float64(GroupedSquaredDistance32(a32, b32, 4))
	ref := SquaredDistance(a64, b64)
	assert.True(t, WithinTolerance(hw, ref, 1e-4, 1e-4), "hw %v ref %v", hw, ref)
}

func TestWithinTolerance(t *testing.T) {
	assert.True(t, WithinTolerance(18.0, 18.0, 0, 0))
	assert.True(t, WithinTolerance(18.00001, 18.0, 1e-4, 0))
	assert.False(t, WithinTolerance(18.1, 18.0, 1e-4, 1e-4))
	assert.True(t, WithinTolerance(1e6+50, 1e6, 1e-4, 1e-4))
	assert.False(t, WithinTolerance(math.NaN(), 0, 1, 1))
}
