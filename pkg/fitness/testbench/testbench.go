// Package testbench drives a fitness method with seeded random data and checks
// every score against a plain float32 CPU reference.
package testbench

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"

	"batfit/pkg/fitness/chromosome"
	"batfit/pkg/fitness/core"
	"batfit/pkg/fitness/reduce"
)

// Params controls one testbench run
type Params struct {
	Seed      int64   `json:"seed"`
	ChromoLen int     `json:"chromo_len"`
	Dim       int     `json:"dim"`
	NumBats   int     `json:"num_bats"`
	Low       float32 `json:"low"`
	High      float32 `json:"high"`
	Tol       float64 `json:"tol"`
	RelTol    float64 `json:"rel_tol"`
}

// DefaultParams mirrors the accelerator's bring-up run
func DefaultParams() Params {
	return Params{
		Seed:      42,
		ChromoLen: 100,
		Dim:       10,
		NumBats:   3,
		Low:       -10,
		High:      10,
		Tol:       1e-3,
		RelTol:    core.DefaultRelTolerance,
	}
}

// BatResult compares one method score with the reference
type BatResult struct {
	Index int     `json:"index"`
	Got   float64 `json:"got"`
	Want  float64 `json:"want"`
	Diff  float64 `json:"diff"`
	OK    bool    `json:"ok"`
}

// Report is the outcome of a run
type Report struct {
	Method   string      `json:"method"`
	Params   Params      `json:"params"`
	Signal   float32     `json:"signal"`
	Received int         `json:"received"`
	Errors   int         `json:"errors"`
	Results  []BatResult `json:"results"`
}

// Passed reports whether every score matched and none went missing
func (r *Report) Passed() bool {
	return r.Errors == 0 && r.Received == r.Params.NumBats
}

// Dataset is the seeded input of a run
type Dataset struct {
	Vectors []float32
	Chunks  []uint32
}

// Generate builds the random vectors and chromosomes for p.
func Generate(p Params) Dataset {
	rng := rand.New(rand.NewSource(p.Seed))

	vectors := make([]float32, p.ChromoLen*p.Dim)
	for i := range vectors {
		vectors[i] = p.Low + rng.Float32()*(p.High-p.Low)
	}

	bats := make([]*chromosome.Chromosome, p.NumBats)
	for b := range bats {
		bats[b] = chromosome.New(p.ChromoLen)
		for g := 0; g < p.ChromoLen; g++ {
			if rng.Intn(2) == 1 {
				bats[b].Set(g)
			}
		}
	}
	chunks, _ := chromosome.Pack(bats)
	return Dataset{Vectors: vectors, Chunks: chunks}
}

// Reference computes one score left to right in float32.
func Reference(vectors []float32, genes []uint32, chromoLen, dim int) float32 {
	sumA := make([]float32, dim)
	sumB := make([]float32, dim)
	for g := 0; g < chromoLen; g++ {
		base := g * dim
		bit := chromosome.Bit(genes, g)
		for d := 0; d < dim; d++ {
			if bit {
				sumB[d] += vectors[base+d]
			} else {
				sumA[d] += vectors[base+d]
			}
		}
	}
	return reduce.NaiveSquaredDistance32(sumA, sumB)
}

// Run loads the generated dataset into method, evaluates one batch and checks
// every score. method must already be initialized.
func Run(ctx context.Context, method core.FitnessMethod, p Params) (*Report, error) {
	if p.NumBats < 0 {
		return nil, core.Errorf(core.ErrConfiguration, "negative num_bats %d", p.NumBats)
	}
	data := Generate(p)
	report := &Report{Method: method.Name(), Params: p}

	signal, err := method.LoadCache(data.Vectors, p.ChromoLen, p.Dim)
	if err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}
	report.Signal = signal

	scores, err := method.EvaluateBatch(ctx, data.Chunks, p.ChromoLen, p.Dim, p.NumBats)
	if err != nil {
		return nil, fmt.Errorf("evaluate batch: %w", err)
	}

	per := core.ChunksPerChromosome(p.ChromoLen)
	for i, got := range scores {
		want := float64(Reference(data.Vectors, data.Chunks[i*per:(i+1)*per], p.ChromoLen, p.Dim))
		res := BatResult{
			Index: i,
			Got:   got,
			Want:  want,
			Diff:  math.Abs(got - want),
			OK:    reduce.WithinTolerance(got, want, p.Tol, p.RelTol),
		}
		if !res.OK {
			report.Errors++
		}
		report.Results = append(report.Results, res)
		report.Received++
	}
	if report.Received != p.NumBats {
		report.Errors++
	}
	return report, nil
}

// Write prints the report in the testbench's console format.
func (r *Report) Write(w io.Writer) {
	fmt.Fprintf(w, "========================================\n")
	fmt.Fprintf(w, "   Fitness Testbench (%s)\n", r.Method)
	fmt.Fprintf(w, "========================================\n\n")
	fmt.Fprintf(w, "Parameters:\n")
	fmt.Fprintf(w, "  chromo_len: %d\n", r.Params.ChromoLen)
	fmt.Fprintf(w, "  dim: %d\n", r.Params.Dim)
	fmt.Fprintf(w, "  num_bats: %d\n", r.Params.NumBats)
	fmt.Fprintf(w, "  num_chunks: %d\n\n", core.ChunksPerChromosome(r.Params.ChromoLen))
	fmt.Fprintf(w, "Cache loading completed. Signal: %g\n\n", r.Signal)

	for _, res := range r.Results {
		status := "[OK]"
		if !res.OK {
			status = "[ERROR: Mismatch!]"
		}
		fmt.Fprintf(w, "  Batch %d:\n", res.Index)
		fmt.Fprintf(w, "    HW result: %g\n", res.Got)
		fmt.Fprintf(w, "    CPU result: %g\n", res.Want)
		fmt.Fprintf(w, "    Difference: %g  %s\n", res.Diff, status)
	}

	fmt.Fprintf(w, "\nResults received: %d/%d\n", r.Received, r.Params.NumBats)
	fmt.Fprintf(w, "Errors: %d\n", r.Errors)
	if r.Passed() {
		fmt.Fprintf(w, "\nSUCCESS: All tests passed!\n")
	} else {
		fmt.Fprintf(w, "\nFAILURE: %d test(s) failed!\n", r.Errors)
	}
}
