package testbench

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batfit/pkg/fitness/core"
	"batfit/pkg/fitness/methods/kernel"
	"batfit/pkg/fitness/methods/software"
)

// skewedMethod corrupts the scores of the wrapped method
type skewedMethod struct {
	core.FitnessMethod
	offset float64
	drop   int
}

func (s *skewedMethod) EvaluateBatch(ctx context.Context, chunks []uint32, chromoLen, dim, numBats int) ([]float64, error) {
	scores, err := s.FitnessMethod.EvaluateBatch(ctx, chunks, chromoLen, dim, numBats)
	if err != nil {
		return nil, err
	}
	for i := range scores {
		scores[i] += s.offset
	}
	return scores[:len(scores)-s.drop], nil
}

func TestRunPassesForBuiltinMethods(t *testing.T) {
	for _, m := range []core.FitnessMethod{
		software.NewSoftwareMethod(core.DefaultLimits(), 2),
		kernel.NewKernelMethod(core.DefaultLimits()),
	} {
		require.NoError(t, m.Initialize())
		report, err := Run(context.Background(), m, DefaultParams())
		require.NoError(t, err)
		assert.True(t, report.Passed(), "%s: %+v", m.Name(), report.Results)
		assert.Equal(t, 3, report.Received)
		assert.Equal(t, core.CompletionSignal, report.Signal)
	}
}

func TestRunLargerBatch(t *testing.T) {
	p := DefaultParams()
	p.Seed = 7
	p.ChromoLen = 1000
	p.Dim = 100
	p.NumBats = 20

	m := kernel.NewKernelMethod(core.DefaultLimits())
	require.NoError(t, m.Initialize())
	report, err := Run(context.Background(), m, p)
	require.NoError(t, err)
	assert.True(t, report.Passed())
}

func TestRunDetectsMismatch(t *testing.T) {
	inner := software.NewSoftwareMethod(core.DefaultLimits(), 1)
	require.NoError(t, inner.Initialize())

	report, err := Run(context.Background(), &skewedMethod{FitnessMethod: inner, offset: 1000}, DefaultParams())
	require.NoError(t, err)
	assert.False(t, report.Passed())
	assert.Equal(t, 3, report.Errors)

	var buf bytes.Buffer
	report.Write(&buf)
	assert.Contains(t, buf.String(), "[ERROR: Mismatch!]")
	assert.Contains(t, buf.String(), "FAILURE: 3 test(s) failed!")
}

func TestRunDetectsMissingResults(t *testing.T) {
	inner := software.NewSoftwareMethod(core.DefaultLimits(), 1)
	require.NoError(t, inner.Initialize())

	report, err := Run(context.Background(), &skewedMethod{FitnessMethod: inner, drop: 1}, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Received)
	assert.Equal(t, 1, report.Errors)
	assert.False(t, report.Passed())
}

func TestRunPropagatesConfigurationErrors(t *testing.T) {
	m := software.NewSoftwareMethod(core.Limits{MaxGenes: 10, MaxDim: 10}, 1)
	require.NoError(t, m.Initialize())

	_, err := Run(context.Background(), m, DefaultParams())
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestGenerateIsSeeded(t *testing.T) {
	a := Generate(DefaultParams())
	b := Generate(DefaultParams())
	assert.Equal(t, a, b)
	assert.Len(t, a.Vectors, 1000)
	assert.Len(t, a.Chunks, 12)
	for _, v := range a.Vectors {
		assert.GreaterOrEqual(t, v, float32(-10))
		assert.LessOrEqual(t, v, float32(10))
	}
}

func TestReportWriteSuccess(t *testing.T) {
	m := software.NewSoftwareMethod(core.DefaultLimits(), 1)
	require.NoError(t, m.Initialize())
	report, err := Run(context.Background(), m, DefaultParams())
	require.NoError(t, err)

	var buf bytes.Buffer
	report.Write(&buf)
	assert.Contains(t, buf.String(), "Results received: 3/3")
	assert.Contains(t, buf.String(), "SUCCESS: All tests passed!")
}
