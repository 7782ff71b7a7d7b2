// Package service is the transport-neutral front of a fitness method. The HTTP,
// gRPC and MCP servers all call through it so counters, metrics and logs stay
// consistent across transports.
package service

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"batfit/internal/logging"
	"batfit/internal/metrics"
	"batfit/pkg/fitness/core"
	"batfit/pkg/fitness/factory"
)

const recentBatches = 32

// LoadResult is returned by a successful cache load
type LoadResult struct {
	Signal     float32 `json:"signal"`
	Generation uint64  `json:"generation"`
	LatencyUs  uint64  `json:"latency_us"`
}

// BatchSummary is a short record of one evaluated batch
type BatchSummary struct {
	BatchID   string    `json:"batch_id"`
	NumBats   int       `json:"num_bats"`
	LatencyUs uint64    `json:"latency_us"`
	Best      float64   `json:"best"`
	At        time.Time `json:"at"`
	Error     string    `json:"error,omitempty"`
}

// Health is the liveness view of the service
type Health struct {
	Status    string         `json:"status"`
	Method    string         `json:"method"`
	Hardware  bool           `json:"hardware_numerics"`
	Uptime    string         `json:"uptime"`
	Cache     core.CacheInfo `json:"cache"`
	Limits    core.Limits    `json:"limits"`
	StartedAt string         `json:"started_at"`
}

// Snapshot is the counter view of the service
type Snapshot struct {
	TotalLoads        uint64         `json:"total_loads"`
	TotalBatches      uint64         `json:"total_batches"`
	FailedBatches     uint64         `json:"failed_batches"`
	TotalChromosomes  uint64         `json:"total_chromosomes"`
	AverageLatencyUs  float64        `json:"average_latency_us"`
	ChromosomesPerSec float64        `json:"chromosomes_per_sec"`
	CacheGeneration   uint64         `json:"cache_generation"`
	Uptime            string         `json:"uptime"`
	Recent            []BatchSummary `json:"recent"`
}

// Service wraps the selected FitnessMethod with bookkeeping
type Service struct {
	method  core.FitnessMethod
	report  *factory.DetectionReport
	metrics *metrics.Metrics
	log     *logging.Logger

	startTime time.Time
	mu        sync.RWMutex

	totalLoads       uint64
	totalBatches     uint64
	failedBatches    uint64
	totalChromosomes uint64
	totalLatencyNs   uint64
	recent           []BatchSummary
}

// New wraps an initialized method. report may be nil; m may be nil to disable
// Prometheus collection.
func New(method core.FitnessMethod, report *factory.DetectionReport, m *metrics.Metrics) *Service {
	return &Service{
		method:    method,
		report:    report,
		metrics:   m,
		log:       logging.Default(),
		startTime: time.Now(),
	}
}

// Method returns the wrapped method
func (s *Service) Method() core.FitnessMethod {
	return s.method
}

// Report returns the detection report the service was started with
func (s *Service) Report() *factory.DetectionReport {
	return s.report
}

// LoadCache replaces the reference dataset.
func (s *Service) LoadCache(vectors []float32, chromoLen, dim int) (*LoadResult, error) {
	start := time.Now()
	signal, err := s.method.LoadCache(vectors, chromoLen, dim)
	latency := time.Since(start)
	if err != nil {
		s.log.Warn("load_cache chromo_len=%d dim=%d rejected: %v", chromoLen, dim, err)
		if s.metrics != nil {
			s.metrics.ObserveError("load_cache", err)
		}
		return nil, err
	}

	info := s.method.CacheInfo()
	s.mu.Lock()
	s.totalLoads++
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.Loads.Inc()
		s.metrics.CacheGeneration.Set(float64(info.Generation))
	}
	s.log.Info("load_cache generation=%d chromo_len=%d dim=%d in %s", info.Generation, chromoLen, dim, latency)

	return &LoadResult{
		Signal:     signal,
		Generation: info.Generation,
		LatencyUs:  uint64(latency.Microseconds()),
	}, nil
}

// Evaluate scores one batch and tags it with a fresh batch id.
func (s *Service) Evaluate(ctx context.Context, chunks []uint32, chromoLen, dim, numBats int) (*core.BatchResult, error) {
	batchID := uuid.NewString()
	start := time.Now()
	scores, err := s.method.EvaluateBatch(ctx, chunks, chromoLen, dim, numBats)
	latency := time.Since(start)
	if err == nil {
		err = checkFinite(scores)
	}

	summary := BatchSummary{
		BatchID:   batchID,
		NumBats:   numBats,
		LatencyUs: uint64(latency.Microseconds()),
		At:        start,
	}

	s.mu.Lock()
	if err != nil {
		s.failedBatches++
		summary.Error = err.Error()
	} else {
		s.totalBatches++
		s.totalChromosomes += uint64(len(scores))
		s.totalLatencyNs += uint64(latency.Nanoseconds())
		summary.Best = best(scores)
	}
	s.recent = append(s.recent, summary)
	if len(s.recent) > recentBatches {
		s.recent = s.recent[len(s.recent)-recentBatches:]
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("evaluate_batch %s num_bats=%d failed: %v", batchID, numBats, err)
		if s.metrics != nil {
			s.metrics.ObserveError("evaluate_batch", err)
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.Batches.Inc()
		s.metrics.Chromosomes.Add(float64(len(scores)))
		s.metrics.BatchLatency.Observe(latency.Seconds())
	}
	s.log.Debug("evaluate_batch %s num_bats=%d in %s", batchID, numBats, latency)

	return &core.BatchResult{
		BatchID:   batchID,
		Scores:    scores,
		LatencyUs: uint64(latency.Microseconds()),
		Method:    s.method.Name(),
	}, nil
}

// CacheInfo describes the loaded dataset
func (s *Service) CacheInfo() core.CacheInfo {
	return s.method.CacheInfo()
}

// Health reports liveness and the cache state
func (s *Service) Health() Health {
	caps := s.method.GetCapabilities()
	info := s.method.CacheInfo()

	status := "healthy"
	if !info.Loaded {
		status = "idle"
	}
	return Health{
		Status:    status,
		Method:    s.method.Name(),
		Hardware:  caps.HardwareNumerics,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Cache:     info,
		Limits:    caps.Limits,
		StartedAt: s.startTime.Format(time.RFC3339),
	}
}

// Stats returns a copy of the counters
func (s *Service) Stats() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		TotalLoads:       s.totalLoads,
		TotalBatches:     s.totalBatches,
		FailedBatches:    s.failedBatches,
		TotalChromosomes: s.totalChromosomes,
		CacheGeneration:  s.method.CacheInfo().Generation,
		Uptime:           time.Since(s.startTime).Round(time.Second).String(),
		Recent:           append([]BatchSummary(nil), s.recent...),
	}
	if s.totalBatches > 0 {
		snap.AverageLatencyUs = float64(s.totalLatencyNs) / float64(s.totalBatches) / 1e3
	}
	if s.totalLatencyNs > 0 {
		snap.ChromosomesPerSec = float64(s.totalChromosomes) / (float64(s.totalLatencyNs) / 1e9)
	}
	return snap
}

// checkFinite rejects batches whose scores overflowed the method's numerics.
// Such scores cannot be encoded as JSON.
func checkFinite(scores []float64) error {
	for i, v := range scores {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return core.Errorf(core.ErrInvalidInput, "score %d is %v: dataset values overflow the method's numerics", i, v)
		}
	}
	return nil
}

// best returns the highest score in a batch
func best(scores []float64) float64 {
	var b float64
	for i, v := range scores {
		if i == 0 || v > b {
			b = v
		}
	}
	return b
}
