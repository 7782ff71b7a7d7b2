package core

const (
	// BitsPerChunk is the width of one chromosome transport word
	BitsPerChunk = 32

	// DefaultMaxGenes and DefaultMaxDim match the accelerator's synthesized cache
	DefaultMaxGenes = 1000
	DefaultMaxDim   = 100

	// DefaultMaxBats bounds the chromosomes accepted in one batch
	DefaultMaxBats = 1000

	// CompletionSignal is emitted once a cache load finishes
	CompletionSignal float32 = 0.0

	DefaultAbsTolerance = 1e-4
	DefaultRelTolerance = 1e-4
)

// Limits is the static capacity of a vector cache
type Limits struct {
	MaxGenes int `json:"max_genes"`
	MaxDim   int `json:"max_dim"`

	// MaxBats caps num_bats per batch, 0 selects DefaultMaxBats
	MaxBats int `json:"max_bats,omitempty"`
}

// DefaultLimits returns the accelerator's capacity
func DefaultLimits() Limits {
	return Limits{MaxGenes: DefaultMaxGenes, MaxDim: DefaultMaxDim, MaxBats: DefaultMaxBats}
}

// BatchLimit returns the largest accepted num_bats
func (l Limits) BatchLimit() int {
	if l.MaxBats > 0 {
		return l.MaxBats
	}
	return DefaultMaxBats
}

// Capacity returns the number of cache elements
func (l Limits) Capacity() int {
	return l.MaxGenes * l.MaxDim
}

// Check rejects limits that cannot describe any cache.
func (l Limits) Check() error {
	if l.MaxGenes <= 0 || l.MaxDim <= 0 {
		return Errorf(ErrConfiguration, "limits must be positive (max_genes=%d, max_dim=%d)", l.MaxGenes, l.MaxDim)
	}
	if l.MaxBats < 0 {
		return Errorf(ErrConfiguration, "negative max_bats %d", l.MaxBats)
	}
	return nil
}

// Validate checks a chromo_len/dim pair against the limits.
func (l Limits) Validate(chromoLen, dim int) error {
	if chromoLen < 0 || dim < 0 {
		return Errorf(ErrConfiguration, "negative size (chromo_len=%d, dim=%d)", chromoLen, dim)
	}
	if chromoLen > l.MaxGenes {
		return Errorf(ErrConfiguration, "chromo_len %d exceeds max genes %d", chromoLen, l.MaxGenes)
	}
	if dim > l.MaxDim {
		return Errorf(ErrConfiguration, "dim %d exceeds max dim %d", dim, l.MaxDim)
	}
	if chromoLen*dim > l.Capacity() {
		return Errorf(ErrConfiguration, "dataset of %d elements exceeds cache capacity %d", chromoLen*dim, l.Capacity())
	}
	return nil
}

// ValidateDataset checks a dataset before it is copied into a cache.
func (l Limits) ValidateDataset(vectors []float32, chromoLen, dim int) error {
	if err := l.Validate(chromoLen, dim); err != nil {
		return err
	}
	if len(vectors) != chromoLen*dim {
		return Errorf(ErrConfiguration, "got %d values, want chromo_len*dim = %d", len(vectors), chromoLen*dim)
	}
	return nil
}

// ChunksPerChromosome returns ceil(chromoLen/32)
func ChunksPerChromosome(chromoLen int) int {
	return (chromoLen + BitsPerChunk - 1) / BitsPerChunk
}

// ValidateBatch checks a packed chromosome stream against the loaded cache and
// the batch limit.
func (l Limits) ValidateBatch(info CacheInfo, chunks []uint32, chromoLen, dim, numBats int) error {
	if !info.Loaded {
		return Errorf(ErrSequencing, "evaluation requested before any cache load")
	}
	if chromoLen != info.ChromoLen || dim != info.Dim {
		return Errorf(ErrConfiguration, "batch shape %dx%d does not match cache %dx%d",
			chromoLen, dim, info.ChromoLen, info.Dim)
	}
	if numBats < 0 {
		return Errorf(ErrConfiguration, "negative num_bats %d", numBats)
	}
	if numBats > l.BatchLimit() {
		return Errorf(ErrConfiguration, "num_bats %d exceeds max bats %d", numBats, l.BatchLimit())
	}
	if want := numBats * ChunksPerChromosome(chromoLen); len(chunks) != want {
		return Errorf(ErrConfiguration, "got %d chunks, want %d for %d chromosomes of %d genes",
			len(chunks), want, numBats, chromoLen)
	}
	return nil
}

// State is the phase of a loader or evaluator invocation
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReadingChromosome
	StateAccumulating
	StateReducing
	StateEmitting
)

var stateNames = map[State]string{
	StateIdle:              "IDLE",
	StateLoading:           "LOADING",
	StateReadingChromosome: "READING_CHROMOSOME",
	StateAccumulating:      "ACCUMULATING",
	StateReducing:          "REDUCING",
	StateEmitting:          "EMITTING",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}
