package series

import "math"

// Rolling is a trailing window view over a series. The window at row t
// covers rows [t-window+1, t] inclusive; it never reaches past t, which is
// what keeps every rolling statistic leakage-free. A statistic is missing
// until the window holds at least minPeriods observed values.
type Rolling struct {
	s          Series
	window     int
	minPeriods int
}

// Rolling returns a trailing window of the given size. minPeriods values
// below 1 are treated as 1.
func (s Series) Rolling(window, minPeriods int) Rolling {
	if minPeriods < 1 {
		minPeriods = 1
	}
	return Rolling{s: s, window: window, minPeriods: minPeriods}
}

// Mean returns the rolling mean of the observed values in each window.
func (r Rolling) Mean() Series {
	out := New(len(r.s))
	for t := range r.s {
		sum, n := r.windowSum(t)
		if n >= r.minPeriods {
			out[t] = sum / float64(n)
		}
	}
	return out
}

// Std returns the rolling sample standard deviation of the observed values
// in each window. At least two observed values are required regardless of
// minPeriods.
func (r Rolling) Std() Series {
	out := New(len(r.s))
	for t := range r.s {
		out[t] = r.windowStd(t)
	}
	return out
}

// Slope returns the rolling ordinary-least-squares slope of the observed
// values against their integer position within the window. Fewer than two
// observed points, or a degenerate index spread, yields missing rather than
// an error.
func (r Rolling) Slope() Series {
	out := New(len(r.s))
	for t := range r.s {
		start := t - r.window + 1
		if start < 0 {
			start = 0
		}

		var sumX, sumY, sumXX, sumXY float64
		n := 0
		for i := start; i <= t; i++ {
			if !Valid(r.s[i]) {
				continue
			}
			x := float64(i - start)
			sumX += x
			sumY += r.s[i]
			sumXX += x * x
			sumXY += x * r.s[i]
			n++
		}

		if n < r.minPeriods || n < 2 {
			continue
		}

		// slope = (n*Σxy - Σx*Σy) / (n*Σxx - (Σx)²); singular when the
		// denominator collapses to zero
		den := float64(n)*sumXX - sumX*sumX
		if den == 0 || math.IsNaN(den) {
			continue
		}
		out[t] = (float64(n)*sumXY - sumX*sumY) / den
	}
	return out
}

// ZScore returns the rolling z-score (v - mean) / std over the window. A
// missing std, or one below Eps, is substituted with 1.0 so low-variance
// stretches do not blow up the score.
func (r Rolling) ZScore() Series {
	out := New(len(r.s))
	for t, v := range r.s {
		if !Valid(v) {
			continue
		}

		sum, n := r.windowSum(t)
		if n < r.minPeriods {
			continue
		}
		mean := sum / float64(n)

		std := r.windowStd(t)
		if !Valid(std) || std < Eps {
			std = 1.0
		}
		out[t] = (v - mean) / std
	}
	return out
}

// windowSum returns the sum and count of observed values in the window
// ending at t.
func (r Rolling) windowSum(t int) (float64, int) {
	start := t - r.window + 1
	if start < 0 {
		start = 0
	}
	sum := 0.0
	n := 0
	for i := start; i <= t; i++ {
		if Valid(r.s[i]) {
			sum += r.s[i]
			n++
		}
	}
	return sum, n
}

// windowStd returns the sample standard deviation of observed values in the
// window ending at t, or missing when the floor is not met.
func (r Rolling) windowStd(t int) float64 {
	sum, n := r.windowSum(t)
	if n < r.minPeriods || n < 2 {
		return math.NaN()
	}
	mean := sum / float64(n)

	start := t - r.window + 1
	if start < 0 {
		start = 0
	}
	ss := 0.0
	for i := start; i <= t; i++ {
		if Valid(r.s[i]) {
			d := r.s[i] - mean
			ss += d * d
		}
	}
	return math.Sqrt(ss / float64(n-1))
}
