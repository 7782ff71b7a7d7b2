// Package memo remembers chromosome scores for the current cache generation.
//
// Optimizers revisit the same partitions often, so a memo in front of a method
// lets repeated chromosomes skip evaluation. Entries are keyed by the sha1 of the
// chromosome's chunk words with padding bits cleared, and are dropped whenever
// the underlying cache generation changes.
package memo

import (
	"context"
	"crypto/sha1"
	"sync"
	"sync/atomic"

	"batfit/pkg/fitness/chromosome"
	"batfit/pkg/fitness/core"
)

// DefaultCapacity bounds the number of remembered scores
const DefaultCapacity = 1 << 16

type key [sha1.Size]byte

// Stats reports memo effectiveness
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// Method wraps a FitnessMethod with a score memo. It satisfies FitnessMethod.
type Method struct {
	inner    core.FitnessMethod
	capacity int

	mu         sync.Mutex
	generation uint64
	scores     map[key]float64

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New wraps inner. capacity <= 0 selects DefaultCapacity.
func New(inner core.FitnessMethod, capacity int) *Method {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Method{
		inner:    inner,
		capacity: capacity,
		scores:   make(map[key]float64),
	}
}

// Unwrap returns the wrapped method
func (m *Method) Unwrap() core.FitnessMethod {
	return m.inner
}

func (m *Method) Name() string      { return m.inner.Name() }
func (m *Method) IsAvailable() bool { return m.inner.IsAvailable() }
func (m *Method) Initialize() error { return m.inner.Initialize() }

func (m *Method) Shutdown() error {
	m.reset(0)
	return m.inner.Shutdown()
}

func (m *Method) CacheInfo() core.CacheInfo { return m.inner.CacheInfo() }

func (m *Method) GetCapabilities() *core.Capabilities {
	return m.inner.GetCapabilities()
}

// LoadCache forwards the load and forgets every remembered score on success.
func (m *Method) LoadCache(vectors []float32, chromoLen, dim int) (float32, error) {
	signal, err := m.inner.LoadCache(vectors, chromoLen, dim)
	if err != nil {
		return signal, err
	}
	m.reset(m.inner.CacheInfo().Generation)
	return signal, nil
}

// EvaluateBatch answers remembered chromosomes directly and forwards the rest,
// in submission order, as one smaller batch.
func (m *Method) EvaluateBatch(ctx context.Context, chunks []uint32, chromoLen, dim, numBats int) ([]float64, error) {
	info := m.inner.CacheInfo()
	if !info.Loaded {
		return m.inner.EvaluateBatch(ctx, chunks, chromoLen, dim, numBats)
	}
	if err := m.inner.GetCapabilities().Limits.ValidateBatch(info, chunks, chromoLen, dim, numBats); err != nil {
		return nil, err
	}
	genes, err := chromosome.Split(chunks, chromoLen, numBats)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, numBats)
	keys := make([]key, numBats)
	pending := make(map[key][]int)
	var order []key

	m.mu.Lock()
	if m.generation != info.Generation {
		m.generation = info.Generation
		m.scores = make(map[key]float64)
	}
	for i, g := range genes {
		keys[i] = sha1.Sum(chromosome.EncodeChunks(chromosome.Canonical(g, chromoLen)))
		if score, ok := m.scores[keys[i]]; ok {
			scores[i] = score
			m.hits.Add(1)
			continue
		}
		if _, queued := pending[keys[i]]; !queued {
			order = append(order, keys[i])
		}
		pending[keys[i]] = append(pending[keys[i]], i)
	}
	m.mu.Unlock()

	if len(order) == 0 {
		return scores, nil
	}
	m.misses.Add(uint64(len(order)))

	per := core.ChunksPerChromosome(chromoLen)
	forward := make([]uint32, 0, per*len(order))
	for _, k := range order {
		forward = append(forward, genes[pending[k][0]]...)
	}
	fresh, err := m.inner.EvaluateBatch(ctx, forward, chromoLen, dim, len(order))
	if err != nil {
		return nil, err
	}

	current := m.inner.CacheInfo().Generation

	m.mu.Lock()
	defer m.mu.Unlock()
	// a load that slipped in between must not poison the new generation
	store := m.generation == info.Generation && current == info.Generation
	for j, k := range order {
		for _, i := range pending[k] {
			scores[i] = fresh[j]
		}
		if !store {
			continue
		}
		if len(m.scores) >= m.capacity {
			m.scores = make(map[key]float64)
		}
		m.scores[k] = fresh[j]
	}
	return scores, nil
}

// Stats returns hit and miss counters
func (m *Method) Stats() Stats {
	m.mu.Lock()
	entries := len(m.scores)
	m.mu.Unlock()
	return Stats{
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
		Entries: entries,
	}
}

func (m *Method) reset(generation uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation = generation
	m.scores = make(map[key]float64)
}
