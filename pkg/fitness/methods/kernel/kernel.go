// Package kernel is a functional model of the synthesized fitness kernel.
//
// The model keeps the accelerator's control interface: a static float32 cache,
// scalar control fields and a pair of streams. Each call to Start is one
// invocation. Numerics follow the hardware: float32 accumulation in blocks of
// PartialUnroll dimensions and a ReductionGroups-way interleaved reduction.
package kernel

import (
	"context"
	"sync/atomic"

	"github.com/viterin/vek/vek32"

	"batfit/pkg/fitness/core"
	"batfit/pkg/fitness/reduce"
)

// Mode selects what an invocation does
type Mode uint32

const (
	ModeCompute Mode = 0
	ModeLoad    Mode = 1
)

func (m Mode) String() string {
	switch m {
	case ModeCompute:
		return "compute"
	case ModeLoad:
		return "load"
	default:
		return "unknown"
	}
}

const (
	// PartialUnroll is the number of dimensions added per accumulation step
	PartialUnroll = 10

	// ReductionGroups is the number of interleaved partial sums in the reduction
	ReductionGroups = 4
)

// Stats counts completed invocations
type Stats struct {
	Loads       uint64 `json:"loads"`
	Batches     uint64 `json:"batches"`
	Chromosomes uint64 `json:"chromosomes"`
}

// Kernel models one accelerator instance. Control fields are read at Start.
// A Kernel runs one invocation at a time; callers serialize Start.
type Kernel struct {
	ChromoLen int
	Dim       int
	NumBats   int
	Mode      Mode

	limits core.Limits
	cache  []float32

	loaded     bool
	loadedLen  int
	loadedDim  int
	generation uint64

	state atomic.Int32
	stats Stats
}

// New allocates the static cache for limits.
func New(limits core.Limits) (*Kernel, error) {
	if err := limits.Check(); err != nil {
		return nil, err
	}
	return &Kernel{
		limits: limits,
		cache:  make([]float32, limits.Capacity()),
	}, nil
}

// State returns the phase of the running invocation, or StateIdle.
func (k *Kernel) State() core.State {
	return core.State(k.state.Load())
}

func (k *Kernel) setState(s core.State) {
	k.state.Store(int32(s))
}

// Info describes the dataset held in the cache
func (k *Kernel) Info() core.CacheInfo {
	if !k.loaded {
		return core.CacheInfo{Generation: k.generation}
	}
	return core.CacheInfo{
		Loaded:     true,
		Generation: k.generation,
		ChromoLen:  k.loadedLen,
		Dim:        k.loadedDim,
	}
}

// Stats returns the invocation counters
func (k *Kernel) Stats() Stats {
	return k.stats
}

// Start runs one invocation. In load mode it copies ChromoLen*Dim values from
// vectors into the cache and writes the completion signal to out. In compute
// mode it reads NumBats chromosomes from in and writes one score per chromosome
// to out. Control fields are checked before the cache is touched.
func (k *Kernel) Start(ctx context.Context, in <-chan uint32, out chan<- float32, vectors []float32) error {
	defer k.setState(core.StateIdle)

	switch k.Mode {
	case ModeLoad:
		return k.load(ctx, out, vectors)
	case ModeCompute:
		return k.compute(ctx, in, out)
	default:
		return core.Errorf(core.ErrConfiguration, "unknown mode %d", uint32(k.Mode))
	}
}

func (k *Kernel) load(ctx context.Context, out chan<- float32, vectors []float32) error {
	if err := k.limits.ValidateDataset(vectors, k.ChromoLen, k.Dim); err != nil {
		return err
	}

	k.setState(core.StateLoading)
	n := copy(k.cache, vectors[:k.ChromoLen*k.Dim])
	for i := n; i < len(k.cache); i++ {
		k.cache[i] = 0
	}
	k.loaded = true
	k.loadedLen = k.ChromoLen
	k.loadedDim = k.Dim
	k.generation++
	k.stats.Loads++

	return send(ctx, out, core.CompletionSignal)
}

func (k *Kernel) compute(ctx context.Context, in <-chan uint32, out chan<- float32) error {
	if err := k.limits.Validate(k.ChromoLen, k.Dim); err != nil {
		return err
	}
	if k.NumBats < 0 || k.NumBats > k.limits.BatchLimit() {
		return core.Errorf(core.ErrConfiguration, "num_bats %d outside [0, %d]", k.NumBats, k.limits.BatchLimit())
	}
	if !k.loaded {
		return core.Errorf(core.ErrSequencing, "compute invocation before any cache load")
	}
	if k.ChromoLen != k.loadedLen || k.Dim != k.loadedDim {
		return core.Errorf(core.ErrConfiguration, "control %dx%d does not match cache %dx%d",
			k.ChromoLen, k.Dim, k.loadedLen, k.loadedDim)
	}

	chunks := make([]uint32, core.ChunksPerChromosome(k.ChromoLen))
	sumA := make([]float32, k.Dim)
	sumB := make([]float32, k.Dim)

	for bat := 0; bat < k.NumBats; bat++ {
		k.setState(core.StateReadingChromosome)
		for i := range chunks {
			c, err := receive(ctx, in)
			if err != nil {
				return err
			}
			chunks[i] = c
		}

		k.setState(core.StateAccumulating)
		k.accumulate(chunks, sumA, sumB)

		k.setState(core.StateReducing)
		score := reduce.GroupedSquaredDistance32(sumA, sumB, ReductionGroups)

		k.setState(core.StateEmitting)
		if err := send(ctx, out, score); err != nil {
			return err
		}
		k.stats.Chromosomes++
	}
	k.stats.Batches++
	return nil
}

func (k *Kernel) accumulate(chunks []uint32, sumA, sumB []float32) {
	for d := range sumA {
		sumA[d] = 0
		sumB[d] = 0
	}
	dim := k.Dim
	for g := 0; g < k.ChromoLen; g++ {
		target := sumA
		if chunks[g/core.BitsPerChunk]>>(uint(g)%core.BitsPerChunk)&1 == 1 {
			target = sumB
		}
		row := k.cache[g*dim : g*dim+dim]
		for base := 0; base < dim; base += PartialUnroll {
			end := base + PartialUnroll
			if end > dim {
				end = dim
			}
			vek32.Add_Inplace(target[base:end], row[base:end])
		}
	}
}

func receive(ctx context.Context, in <-chan uint32) (uint32, error) {
	select {
	case c, ok := <-in:
		if !ok {
			return 0, core.Errorf(core.ErrInvalidInput, "chromosome stream closed early")
		}
		return c, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func send(ctx context.Context, out chan<- float32, v float32) error {
	select {
	case out <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
