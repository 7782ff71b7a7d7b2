package kernel

import (
	"context"
	"sync"
	"sync/atomic"

	"batfit/pkg/fitness/core"
)

// KernelMethod implements the FitnessMethod interface on top of the kernel
// model, so host code can run against accelerator numerics without a device.
type KernelMethod struct {
	limits core.Limits

	initialized atomic.Bool

	// phase separates loads from batches, invoke serializes kernel invocations
	phase  sync.RWMutex
	invoke sync.Mutex
	kernel *Kernel

	// info is replaced after every load and read without either lock
	info atomic.Pointer[core.CacheInfo]
}

// NewKernelMethod creates a kernel-model fitness method
func NewKernelMethod(limits core.Limits) *KernelMethod {
	return &KernelMethod{limits: limits}
}

// Name returns the human-readable name of the method
func (m *KernelMethod) Name() string {
	return "kernel"
}

// IsAvailable returns true if the model can be allocated for the configured limits
func (m *KernelMethod) IsAvailable() bool {
	return m.limits.Check() == nil
}

// Initialize allocates the static cache
func (m *KernelMethod) Initialize() error {
	m.phase.Lock()
	defer m.phase.Unlock()
	m.invoke.Lock()
	defer m.invoke.Unlock()

	if m.kernel == nil {
		k, err := New(m.limits)
		if err != nil {
			return err
		}
		m.kernel = k
	}
	m.initialized.Store(true)
	return nil
}

// Shutdown releases the static cache
func (m *KernelMethod) Shutdown() error {
	m.phase.Lock()
	defer m.phase.Unlock()
	m.invoke.Lock()
	defer m.invoke.Unlock()

	m.initialized.Store(false)
	m.kernel = nil
	m.info.Store(nil)
	return nil
}

// LoadCache runs a load-mode invocation.
func (m *KernelMethod) LoadCache(vectors []float32, chromoLen, dim int) (float32, error) {
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

	m.invoke.Lock()
	defer m.invoke.Unlock()

	k := m.kernel
	if k == nil {
		return 0, core.ErrNotInitialized
	}
	k.Mode = ModeLoad
	k.ChromoLen = chromoLen
	k.Dim = dim
	k.NumBats = 0

	out := make(chan float32, 1)
	if err := k.Start(context.Background(), nil, out, vectors); err != nil {
		return 0, err
	}
	info := k.Info()
	m.info.Store(&info)
	return <-out, nil
}

// EvaluateBatch runs a compute-mode invocation over the packed chromosomes.
func (m *KernelMethod) EvaluateBatch(ctx context.Context, chunks []uint32, chromoLen, dim, numBats int) ([]float64, error) {
	if !m.initialized.Load() {
		return nil, core.ErrNotInitialized
	}
	if !m.phase.TryRLock() {
		return nil, core.Errorf(core.ErrSequencing, "evaluation requested while the cache is loading")
	}
	defer m.phase.RUnlock()

	m.invoke.Lock()
	defer m.invoke.Unlock()

	k := m.kernel
	if k == nil {
		return nil, core.ErrNotInitialized
	}
	if err := m.limits.ValidateBatch(k.Info(), chunks, chromoLen, dim, numBats); err != nil {
		return nil, err
	}

	in := make(chan uint32, len(chunks))
	for _, c := range chunks {
		in <- c
	}
	close(in)
	out := make(chan float32, numBats)

	k.Mode = ModeCompute
	k.ChromoLen = chromoLen
	k.Dim = dim
	k.NumBats = numBats
	if err := k.Start(ctx, in, out, nil); err != nil {
		return nil, err
	}

	scores := make([]float64, numBats)
	for i := range scores {
		scores[i] = float64(<-out)
	}
	return scores, nil
}

// CacheInfo describes the dataset held by the model. It never contends with a
// load or a batch.
func (m *KernelMethod) CacheInfo() core.CacheInfo {
	if info := m.info.Load(); info != nil {
		return *info
	}
	return core.CacheInfo{}
}

// Stats returns the model's invocation counters
func (m *KernelMethod) Stats() Stats {
	m.invoke.Lock()
	defer m.invoke.Unlock()

	if m.kernel == nil {
		return Stats{}
	}
	return m.kernel.Stats()
}

// GetCapabilities returns the capabilities and limits of the method
func (m *KernelMethod) GetCapabilities() *core.Capabilities {
	caps := &core.Capabilities{
		Name:             m.Name(),
		HardwareNumerics: true,
		Limits:           m.limits,
		Workers:          1,
		BlockWidth:       PartialUnroll,
		Reduction:        "float32, 4 interleaved groups summed in order",
	}
	if err := m.limits.Check(); err != nil {
		caps.Reason = err.Error()
	}
	return caps
}
