package series

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPctChange(t *testing.T) {
	s := FromValues([]float64{100, 110, 121})

	out := s.PctChange(1)

	assert.False(t, Valid(out[0]), "first element has no base")
	assert.InDelta(t, 0.10, out[1], 1e-12)
	assert.InDelta(t, 0.10, out[2], 1e-12)
}

func TestPctChangeZeroBase(t *testing.T) {
	s := FromValues([]float64{0, 10, 20})

	out := s.PctChange(1)

	assert.False(t, Valid(out[1]), "zero base must yield missing, not Inf")
	assert.InDelta(t, 1.0, out[2], 1e-12)
}

func TestPctChangeMissingBase(t *testing.T) {
	s := Series{math.NaN(), 10, 20}

	out := s.PctChange(2)

	assert.False(t, Valid(out[2]), "missing base propagates")
}

func TestForwardFill(t *testing.T) {
	s := Series{math.NaN(), 1, math.NaN(), math.NaN(), 2, math.NaN()}

	out := s.ForwardFill()

	assert.False(t, Valid(out[0]), "leading gap stays missing")
	assert.Equal(t, Series{math.NaN(), 1, 1, 1, 2, 2}[1:], out[1:])
}

func TestDivEpsZeroDenominator(t *testing.T) {
	a := FromValues([]float64{1, 2})
	b := FromValues([]float64{0, 4})

	out := DivEps(a, b)

	// Safe division never raises and never returns Inf; a zero denominator
	// yields numerator / Eps.
	require.True(t, Valid(out[0]))
	assert.False(t, math.IsInf(out[0], 0))
	assert.InDelta(t, 1.0/Eps, out[0], 1e-3)
	assert.InDelta(t, 0.5, out[1], 1e-6)
}

func TestSafeDivZero(t *testing.T) {
	assert.Equal(t, 0.0, SafeDivZero(5, 0))
	assert.Equal(t, 0.0, SafeDivZero(math.NaN(), 3))
	assert.Equal(t, 0.0, SafeDivZero(5, math.NaN()))
	assert.InDelta(t, 2.5, SafeDivZero(5, 2), 1e-12)
}

func TestRowMeanSkipsMissing(t *testing.T) {
	wheat := Series{100, math.NaN(), 120}
	corn := Series{200, 210, math.NaN()}

	out := RowMean(wheat, corn)

	assert.InDelta(t, 150, out[0], 1e-12)
	assert.InDelta(t, 210, out[1], 1e-12, "single present value is its own mean")
	assert.InDelta(t, 120, out[2], 1e-12)
}

func TestClip(t *testing.T) {
	s := Series{-10, 0, 5, 10, math.NaN()}

	out := s.Clip(0, 5)

	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 0.0, out[1])
	assert.Equal(t, 5.0, out[2])
	assert.Equal(t, 5.0, out[3])
	assert.False(t, Valid(out[4]))
}

func TestAsinhSymmetric(t *testing.T) {
	s := Series{-3, 0, 3}

	out := s.Asinh()

	assert.InDelta(t, -out[2], out[0], 1e-12, "asinh compresses both tails symmetrically")
	assert.Equal(t, 0.0, out[1])
}

func TestQuantile(t *testing.T) {
	s := FromValues([]float64{1, 2, 3, 4, 5})

	assert.InDelta(t, 3.0, s.Quantile(0.5), 1e-12)
	assert.InDelta(t, 1.0, s.Quantile(0.0), 1e-12)
	assert.InDelta(t, 5.0, s.Quantile(1.0), 1e-12)
	assert.InDelta(t, 1.2, s.Quantile(0.05), 1e-12)
}

func TestQuantileEmpty(t *testing.T) {
	s := New(3)
	assert.False(t, Valid(s.Quantile(0.5)))
}

func TestExpandingQuantilePointInTime(t *testing.T) {
	s := FromValues([]float64{1, 100, 2, 3})

	out := s.ExpandingQuantile(1.0)

	// The max quantile at each point only sees history up to that point
	assert.InDelta(t, 1.0, out[0], 1e-12)
	assert.InDelta(t, 100.0, out[1], 1e-12)
	assert.InDelta(t, 100.0, out[2], 1e-12)
	assert.InDelta(t, 100.0, out[3], 1e-12)
}

func TestPercentileRank(t *testing.T) {
	out := PercentileRank([]float64{10, 30, 20})

	assert.InDelta(t, 1.0/3.0, out[0], 1e-12)
	assert.InDelta(t, 1.0, out[1], 1e-12)
	assert.InDelta(t, 2.0/3.0, out[2], 1e-12)
}

func TestPercentileRankTiesAndMissing(t *testing.T) {
	out := PercentileRank([]float64{10, 10, math.NaN(), 20})

	// Ties share the average rank; the missing value does not count
	assert.InDelta(t, 0.5, out[0], 1e-12)
	assert.InDelta(t, 0.5, out[1], 1e-12)
	assert.True(t, math.IsNaN(out[2]))
	assert.InDelta(t, 1.0, out[3], 1e-12)
}
