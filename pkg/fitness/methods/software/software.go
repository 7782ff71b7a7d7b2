package software

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"batfit/pkg/fitness/chromosome"
	"batfit/pkg/fitness/core"
)

// SoftwareMethod implements the FitnessMethod interface on the host CPU with
// float64 accumulation.
type SoftwareMethod struct {
	limits  core.Limits
	workers int

	initialized atomic.Bool

	// phase separates loads from batches: a load holds it exclusively, batches
	// share it. Both sides use Try* so overlapping phases fail instead of waiting.
	// cache is swapped under phase and read without it by CacheInfo.
	phase      sync.RWMutex
	cache      atomic.Pointer[vectorCache]
	generation uint64
}

// NewSoftwareMethod creates a new software fitness method. workers <= 0 uses
// one worker per logical CPU.
func NewSoftwareMethod(limits core.Limits, workers int) *SoftwareMethod {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &SoftwareMethod{
		limits:  limits,
		workers: workers,
	}
}

// Name returns the human-readable name of the method
func (m *SoftwareMethod) Name() string {
	return "software"
}

// IsAvailable returns true if this method is available on the current system
func (m *SoftwareMethod) IsAvailable() bool {
	return m.limits.Check() == nil
}

// Initialize performs any necessary setup for the method
func (m *SoftwareMethod) Initialize() error {
	if err := m.limits.Check(); err != nil {
		return err
	}
	m.initialized.Store(true)
	return nil
}

// Shutdown drops the cache and marks the method uninitialized
func (m *SoftwareMethod) Shutdown() error {
	m.phase.Lock()
	defer m.phase.Unlock()

	m.initialized.Store(false)
	m.cache.Store(nil)
	return nil
}

// LoadCache validates the dataset, copies it into a new cache generation and
// swaps it in.
func (m *SoftwareMethod) LoadCache(vectors []float32, chromoLen, dim int) (float32, error) {
	if !m.initialized.Load() {
		return 0, core.ErrNotInitialized
	}
	if err := m.limits.ValidateDataset(vectors, chromoLen, dim); err != nil {
		return 0, err
	}
	if !m.phase.TryLock() {
		return 0, core.Errorf(core.ErrSequencing, "cache load requested while a batch is in flight")
	}
	defer m.phase.Unlock()

	m.generation++
	m.cache.Store(newVectorCache(vectors, chromoLen, dim, m.generation))
	return core.CompletionSignal, nil
}

// EvaluateBatch scores every chromosome in chunks against the current cache.
func (m *SoftwareMethod) EvaluateBatch(ctx context.Context, chunks []uint32, chromoLen, dim, numBats int) ([]float64, error) {
	if !m.initialized.Load() {
		return nil, core.ErrNotInitialized
	}
	if !m.phase.TryRLock() {
		return nil, core.Errorf(core.ErrSequencing, "evaluation requested while the cache is loading")
	}
	defer m.phase.RUnlock()

	cache := m.cache.Load()
	if err := m.limits.ValidateBatch(cache.info(), chunks, chromoLen, dim, numBats); err != nil {
		return nil, err
	}
	genes, err := chromosome.Split(chunks, chromoLen, numBats)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, numBats)
	p := pool.New().WithMaxGoroutines(m.workers).WithContext(ctx).WithFirstError()
	for i := range genes {
		i := i
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sumA := make([]float64, dim)
			sumB := make([]float64, dim)
			scores[i] = cache.score(genes[i], sumA, sumB)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// PartitionSums returns sumA and sumB for a single chromosome.
func (m *SoftwareMethod) PartitionSums(genes []uint32) ([]float64, []float64, error) {
	if !m.phase.TryRLock() {
		return nil, nil, core.Errorf(core.ErrSequencing, "cache is loading")
	}
	defer m.phase.RUnlock()

	cache := m.cache.Load()
	if cache == nil {
		return nil, nil, core.Errorf(core.ErrSequencing, "no cache loaded")
	}
	if err := m.limits.ValidateBatch(cache.info(), genes, cache.chromoLen, cache.dim, 1); err != nil {
		return nil, nil, err
	}
	sumA := make([]float64, cache.dim)
	sumB := make([]float64, cache.dim)
	cache.accumulate(genes, sumA, sumB)
	return sumA, sumB, nil
}

// CacheInfo describes the currently loaded dataset. It never contends with a
// load or a batch.
func (m *SoftwareMethod) CacheInfo() core.CacheInfo {
	return m.cache.Load().info()
}

// GetCapabilities returns the capabilities and limits of the method
func (m *SoftwareMethod) GetCapabilities() *core.Capabilities {
	caps := &core.Capabilities{
		Name:             m.Name(),
		HardwareNumerics: false,
		Limits:           m.limits,
		Workers:          m.workers,
		Reduction:        "float64, ascending dimension order, Neumaier compensated",
	}
	if err := m.limits.Check(); err != nil {
		caps.Reason = err.Error()
	}
	return caps
}
