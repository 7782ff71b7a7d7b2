package software

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batfit/pkg/fitness/chromosome"
	"batfit/pkg/fitness/core"
	"batfit/pkg/fitness/reduce"
)

// v0=(1,0), v1=(0,1), v2=(2,0), v3=(0,2)
var exampleVectors = []float32{1, 0, 0, 1, 2, 0, 0, 2}

func newLoaded(t *testing.T, vectors []float32, chromoLen, dim int) *SoftwareMethod {
	t.Helper()
	m := NewSoftwareMethod(core.DefaultLimits(), 4)
	require.NoError(t, m.Initialize())
	signal, err := m.LoadCache(vectors, chromoLen, dim)
	require.NoError(t, err)
	require.Equal(t, core.CompletionSignal, signal)
	return m
}

func randomDataset(rng *rand.Rand, chromoLen, dim int) []float32 {
	v := make([]float32, chromoLen*dim)
	for i := range v {
		v[i] = rng.Float32()*20 - 10
	}
	return v
}

func randomChunks(rng *rand.Rand, chromoLen, numBats int) []uint32 {
	c := make([]*chromosome.Chromosome, numBats)
	for b := range c {
		c[b] = chromosome.New(chromoLen)
		for g := 0; g < chromoLen; g++ {
			if rng.Intn(2) == 1 {
				c[b].Set(g)
			}
		}
	}
	chunks, _ := chromosome.Pack(c)
	return chunks
}

func TestEndToEndExample(t *testing.T) {
	m := newLoaded(t, exampleVectors, 4, 2)

	scores, err := m.EvaluateBatch(context.Background(), []uint32{0b0101}, 4, 2, 1)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.InDelta(t, 18.0, scores[0], 1e-9)

	sumA, sumB, err := m.PartitionSums([]uint32{0b0101})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 3}, sumA)
	assert.Equal(t, []float64{3, 0}, sumB)
}

func TestEmptyPartitions(t *testing.T) {
	m := newLoaded(t, exampleVectors, 4, 2)

	// all zero: A = everything = (3,3); all one: B = everything
	scores, err := m.EvaluateBatch(context.Background(), []uint32{0, 0b1111}, 4, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{18, 18}, scores)

	sumA, sumB, err := m.PartitionSums([]uint32{0})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3}, sumA)
	assert.Equal(t, []float64{0, 0}, sumB)
}

func TestZeroLengthChromosome(t *testing.T) {
	m := newLoaded(t, nil, 0, 3)

	scores, err := m.EvaluateBatch(context.Background(), []uint32{}, 0, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, scores)
}

func TestEmptyBatch(t *testing.T) {
	m := newLoaded(t, exampleVectors, 4, 2)

	scores, err := m.EvaluateBatch(context.Background(), nil, 4, 2, 0)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestOrderPreservation(t *testing.T) {
	m := newLoaded(t, exampleVectors, 4, 2)

	// 0b0101 -> 18, 0b0001 -> A=(2,3) B=(1,0) -> 1+9 = 10, 0b0011 -> A=(2,2) B=(1,1) -> 2
	batch := []uint32{0b0101, 0b0001, 0b0011}
	for i := 0; i < 20; i++ {
		scores, err := m.EvaluateBatch(context.Background(), batch, 4, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, []float64{18, 10, 2}, scores)
	}
}

func TestDeterminismAndCompleteness(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const chromoLen, dim, numBats = 100, 10, 64
	vectors := randomDataset(rng, chromoLen, dim)
	chunks := randomChunks(rng, chromoLen, numBats)
	m := newLoaded(t, vectors, chromoLen, dim)

	first, err := m.EvaluateBatch(context.Background(), chunks, chromoLen, dim, numBats)
	require.NoError(t, err)
	second, err := m.EvaluateBatch(context.Background(), chunks, chromoLen, dim, numBats)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	total := make([]float64, dim)
	for g := 0; g < chromoLen; g++ {
		for d := 0; d < dim; d++ {
			total[d] += float64(vectors[g*dim+d])
		}
	}

	per := core.ChunksPerChromosome(chromoLen)
	for b := 0; b < numBats; b++ {
		genes := chunks[b*per : (b+1)*per]
		sumA, sumB, err := m.PartitionSums(genes)
		require.NoError(t, err)
		for d := 0; d < dim; d++ {
			assert.True(t, reduce.WithinTolerance(sumA[d]+sumB[d], total[d], 1e-9, 1e-9),
				"bat %d dim %d: %v + %v != %v", b, d, sumA[d], sumB[d], total[d])
		}
		assert.Equal(t, reduce.SquaredDistance(sumA, sumB), first[b])
	}
}

func TestConfigurationErrors(t *testing.T) {
	m := NewSoftwareMethod(core.Limits{MaxGenes: 8, MaxDim: 2}, 1)
	require.NoError(t, m.Initialize())

	_, err := m.LoadCache(make([]float32, 9*2), 9, 2)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	_, err = m.LoadCache(make([]float32, 3), 1, 3)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	_, err = m.LoadCache(make([]float32, 5), 4, 2)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.False(t, m.CacheInfo().Loaded, "rejected loads must not touch the cache")

	_, err = m.LoadCache(exampleVectors, 4, 2)
	require.NoError(t, err)

	// a rejected reload keeps the previous generation
	_, err = m.LoadCache(make([]float32, 9*2), 9, 2)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	info := m.CacheInfo()
	assert.Equal(t, uint64(1), info.Generation)
	assert.Equal(t, 4, info.ChromoLen)

	_, err = m.EvaluateBatch(context.Background(), []uint32{1}, 4, 3, 1)
	assert.ErrorIs(t, err, core.ErrConfiguration, "dim mismatch")
	_, err = m.EvaluateBatch(context.Background(), []uint32{1, 2}, 4, 2, 1)
	assert.ErrorIs(t, err, core.ErrConfiguration, "chunk count mismatch")
}

func TestSequencingErrors(t *testing.T) {
	m := NewSoftwareMethod(core.DefaultLimits(), 2)

	_, err := m.LoadCache(exampleVectors, 4, 2)
	assert.ErrorIs(t, err, core.ErrNotInitialized)

	require.NoError(t, m.Initialize())
	_, err = m.EvaluateBatch(context.Background(), []uint32{5}, 4, 2, 1)
	assert.ErrorIs(t, err, core.ErrSequencing, "evaluate before load")

	_, err = m.LoadCache(exampleVectors, 4, 2)
	require.NoError(t, err)

	// simulate a batch in flight
	m.phase.RLock()
	_, err = m.LoadCache(exampleVectors, 4, 2)
	m.phase.RUnlock()
	assert.ErrorIs(t, err, core.ErrSequencing, "load during batch")

	// simulate a load in progress
	m.phase.Lock()
	_, err = m.EvaluateBatch(context.Background(), []uint32{5}, 4, 2, 1)
	m.phase.Unlock()
	assert.ErrorIs(t, err, core.ErrSequencing, "evaluate during load")
}

func TestCacheInfoDoesNotBlockLoads(t *testing.T) {
	m := newLoaded(t, exampleVectors, 4, 2)

	// a load in progress must not stall cache info
	m.phase.Lock()
	done := make(chan core.CacheInfo, 1)
	go func() { done <- m.CacheInfo() }()
	select {
	case info := <-done:
		assert.Equal(t, uint64(1), info.Generation)
	case <-time.After(time.Second):
		t.Fatal("CacheInfo blocked behind a load")
	}
	m.phase.Unlock()

	// polling cache info never turns a load into a sequencing error
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					m.CacheInfo()
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		_, err := m.LoadCache(exampleVectors, 4, 2)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, uint64(201), m.CacheInfo().Generation)
}

func TestZeroLengthBatchIsBounded(t *testing.T) {
	m := newLoaded(t, nil, 0, 3)

	scores, err := m.EvaluateBatch(context.Background(), nil, 0, 3, core.DefaultMaxBats)
	require.NoError(t, err)
	assert.Len(t, scores, core.DefaultMaxBats)

	_, err = m.EvaluateBatch(context.Background(), nil, 0, 3, 1<<62)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestReloadReplacesCache(t *testing.T) {
	m := newLoaded(t, exampleVectors, 4, 2)

	_, err := m.LoadCache([]float32{1, 1, 1}, 3, 1)
	require.NoError(t, err)
	info := m.CacheInfo()
	assert.Equal(t, uint64(2), info.Generation)
	assert.Equal(t, 3, info.ChromoLen)
	assert.Equal(t, 1, info.Dim)

	scores, err := m.EvaluateBatch(context.Background(), []uint32{0b001}, 3, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, scores) // A=2, B=1
}

func TestCanceledContext(t *testing.T) {
	m := newLoaded(t, exampleVectors, 4, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.EvaluateBatch(ctx, []uint32{1, 2, 3}, 4, 2, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShutdownDropsCache(t *testing.T) {
	m := newLoaded(t, exampleVectors, 4, 2)
	require.NoError(t, m.Shutdown())
	assert.False(t, m.CacheInfo().Loaded)

	_, err := m.EvaluateBatch(context.Background(), []uint32{5}, 4, 2, 1)
	assert.ErrorIs(t, err, core.ErrNotInitialized)
}
