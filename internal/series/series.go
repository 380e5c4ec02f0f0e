package series

import (
	"math"
	"sort"
)

// Eps is the perturbation used by the epsilon-style safe divide.
const Eps = 1e-8

// Series is a numeric time series. Missing values are represented as NaN so
// that rolling statistics can skip them without a parallel validity mask.
type Series []float64

// Missing returns the missing-value marker.
func Missing() float64 {
	return math.NaN()
}

// Valid reports whether v is an observed value.
func Valid(v float64) bool {
	return !math.IsNaN(v)
}

// New returns a series of length n with every value missing.
func New(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// FromValues copies values into a new series.
func FromValues(values []float64) Series {
	s := make(Series, len(values))
	copy(s, values)
	return s
}

// Clone returns a copy of the series.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// ValidCount returns the number of observed values.
func (s Series) ValidCount() int {
	n := 0
	for _, v := range s {
		if Valid(v) {
			n++
		}
	}
	return n
}

// ForwardFill propagates the last observed value across later missing slots.
// Leading missing values stay missing.
func (s Series) ForwardFill() Series {
	out := make(Series, len(s))
	last := math.NaN()
	for i, v := range s {
		if Valid(v) {
			last = v
		}
		out[i] = last
	}
	return out
}

// PctChange returns the percent change over n periods:
// (v[t] - v[t-n]) / v[t-n]. The result is missing when either endpoint is
// missing or the base value is zero.
func (s Series) PctChange(n int) Series {
	out := New(len(s))
	for t := n; t < len(s); t++ {
		base := s[t-n]
		if !Valid(s[t]) || !Valid(base) || base == 0 {
			continue
		}
		out[t] = (s[t] - base) / base
	}
	return out
}

// Sub returns the elementwise difference a - b. Missing propagates.
func Sub(a, b Series) Series {
	out := New(len(a))
	for i := range a {
		if Valid(a[i]) && Valid(b[i]) {
			out[i] = a[i] - b[i]
		}
	}
	return out
}

// SubScalar returns c - s elementwise.
func SubScalar(c float64, s Series) Series {
	out := New(len(s))
	for i, v := range s {
		if Valid(v) {
			out[i] = c - v
		}
	}
	return out
}

// DivEps returns the elementwise ratio a / (b + Eps). Perturbing the
// denominator keeps a zero denominator finite instead of raising or
// producing Inf. Missing propagates.
func DivEps(a, b Series) Series {
	out := New(len(a))
	for i := range a {
		if Valid(a[i]) && Valid(b[i]) {
			out[i] = a[i] / (b[i] + Eps)
		}
	}
	return out
}

// SafeDivZero divides a by b, falling back to a literal 0.0 when either
// operand is missing or the denominator is zero. This is the fundamentals
// convention; the epsilon convention above belongs to the market domains.
func SafeDivZero(a, b float64) float64 {
	if !Valid(a) || !Valid(b) || b == 0 {
		return 0.0
	}
	return a / b
}

// DivZero applies SafeDivZero elementwise.
func DivZero(a, b Series) Series {
	out := make(Series, len(a))
	for i := range a {
		out[i] = SafeDivZero(a[i], b[i])
	}
	return out
}

// RowMean returns the elementwise mean across the given series, skipping
// missing values. A row where every input is missing stays missing.
func RowMean(cols ...Series) Series {
	if len(cols) == 0 {
		return nil
	}
	out := New(len(cols[0]))
	for i := range out {
		sum := 0.0
		n := 0
		for _, c := range cols {
			if Valid(c[i]) {
				sum += c[i]
				n++
			}
		}
		if n > 0 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// Clip bounds every observed value to [lo, hi].
func (s Series) Clip(lo, hi float64) Series {
	out := make(Series, len(s))
	for i, v := range s {
		switch {
		case !Valid(v):
			out[i] = v
		case v < lo:
			out[i] = lo
		case v > hi:
			out[i] = hi
		default:
			out[i] = v
		}
	}
	return out
}

// Asinh applies the inverse hyperbolic sine elementwise. Unlike a log
// transform it is defined for negative values and compresses both tails
// symmetrically.
func (s Series) Asinh() Series {
	out := make(Series, len(s))
	for i, v := range s {
		if Valid(v) {
			out[i] = math.Asinh(v)
		} else {
			out[i] = v
		}
	}
	return out
}

// Quantile returns the q-th quantile (0 <= q <= 1) of the observed values
// using linear interpolation. Missing when no values are observed.
func (s Series) Quantile(q float64) float64 {
	valid := make([]float64, 0, len(s))
	for _, v := range s {
		if Valid(v) {
			valid = append(valid, v)
		}
	}
	return quantileSorted(valid, q)
}

// ExpandingQuantile returns, at each position t, the q-th quantile of the
// observed values in s[0..t]. Used for the point-in-time winsorization mode.
func (s Series) ExpandingQuantile(q float64) Series {
	out := New(len(s))
	valid := make([]float64, 0, len(s))
	for t, v := range s {
		if Valid(v) {
			// Insert keeping the slice sorted
			pos := sort.SearchFloat64s(valid, v)
			valid = append(valid, 0)
			copy(valid[pos+1:], valid[pos:])
			valid[pos] = v
		}
		if len(valid) > 0 {
			out[t] = interpolateSorted(valid, q)
		}
	}
	return out
}

func quantileSorted(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return interpolateSorted(sorted, q)
}

func interpolateSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// PercentileRank returns the percentile rank in (0, 1] of each observed
// value relative to the other observed values, using average ranks for ties.
// Missing values stay missing and do not count toward the denominator.
func PercentileRank(values []float64) []float64 {
	type indexed struct {
		value float64
		pos   int
	}

	obs := make([]indexed, 0, len(values))
	for i, v := range values {
		if Valid(v) {
			obs = append(obs, indexed{value: v, pos: i})
		}
	}

	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(obs) == 0 {
		return out
	}

	sort.SliceStable(obs, func(i, j int) bool { return obs[i].value < obs[j].value })

	n := float64(len(obs))
	for i := 0; i < len(obs); {
		j := i
		for j < len(obs) && obs[j].value == obs[i].value {
			j++
		}
		// Average rank across the tie group, 1-based
		avgRank := float64(i+1+j) / 2.0
		for k := i; k < j; k++ {
			out[obs[k].pos] = avgRank / n
		}
		i = j
	}
	return out
}
