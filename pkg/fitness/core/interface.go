package core

import "context"

// FitnessMethod defines the interface that all fitness evaluation backends must follow
type FitnessMethod interface {
	// Name returns the human-readable name of the method
	Name() string

	// IsAvailable returns true if this method can run on the current system
	IsAvailable() bool

	// Initialize performs any necessary setup for the method
	Initialize() error

	// Shutdown releases the method's resources and drops the cache
	Shutdown() error

	// LoadCache replaces the reference dataset. vectors holds chromoLen*dim values,
	// vector index major. The returned signal is CompletionSignal on success.
	LoadCache(vectors []float32, chromoLen, dim int) (float32, error)

	// EvaluateBatch scores numBats chromosomes packed as ChunksPerChromosome(chromoLen)
	// 32-bit chunks each. Scores are returned in submission order.
	EvaluateBatch(ctx context.Context, chunks []uint32, chromoLen, dim, numBats int) ([]float64, error)

	// CacheInfo describes the currently loaded dataset
	CacheInfo() CacheInfo

	// GetCapabilities returns the capabilities and limits of the method
	GetCapabilities() *Capabilities
}

// CacheInfo describes one cache generation
type CacheInfo struct {
	// Loaded is false until the first successful LoadCache
	Loaded bool `json:"loaded"`

	// Generation increments on every successful load
	Generation uint64 `json:"generation"`

	ChromoLen int `json:"chromo_len"`
	Dim       int `json:"dim"`
}

// Capabilities describes the capabilities of a fitness method
type Capabilities struct {
	// Name of the method
	Name string `json:"name"`

	// Whether results follow the accelerator's float32 numerics
	HardwareNumerics bool `json:"hardware_numerics"`

	// Static capacity of the vector cache
	Limits Limits `json:"limits"`

	// Number of chromosomes evaluated concurrently within a batch
	Workers int `json:"workers"`

	// Dimensions accumulated per step
	BlockWidth int `json:"block_width"`

	// Reduction order used for the final sum
	Reduction string `json:"reduction"`

	// Reason for unavailability (if applicable)
	Reason string `json:"reason,omitempty"`
}

// BatchResult represents the result of one EvaluateBatch call with metadata
type BatchResult struct {
	BatchID   string    `json:"batch_id"`
	Scores    []float64 `json:"scores"`
	LatencyUs uint64    `json:"latency_us"`
	Method    string    `json:"method"`
}
