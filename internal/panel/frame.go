package panel

import (
	"sort"
	"time"

	"github.com/quantward/featurepipe/internal/series"
)

// Observation is one raw fetched fact, long format. Entity is empty for
// entity-less macro series.
type Observation struct {
	Entity      string
	EntityLabel string
	Metric      string
	Date        time.Time
	Value       float64
}

// Frame is a wide panel: a shared ordered date index with one named series
// per metric. Rebuilt fully on every run; it is never mutated incrementally.
type Frame struct {
	dates   []time.Time
	order   []string
	columns map[string]series.Series
}

// NewFrame creates an empty frame over the given date index.
func NewFrame(dates []time.Time) *Frame {
	return &Frame{
		dates:   dates,
		columns: make(map[string]series.Series),
	}
}

// Dates returns the date index.
func (f *Frame) Dates() []time.Time {
	return f.dates
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	return len(f.dates)
}

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Column returns the named series.
func (f *Frame) Column(name string) (series.Series, bool) {
	s, ok := f.columns[name]
	return s, ok
}

// SetColumn adds or replaces a column. The series length must match the
// date index.
func (f *Frame) SetColumn(name string, s series.Series) {
	if len(s) != len(f.dates) {
		panic("panel: column length does not match date index")
	}
	if _, exists := f.columns[name]; !exists {
		f.order = append(f.order, name)
	}
	f.columns[name] = s
}

// Pivot reshapes long-format observations into a wide frame, one column per
// metric over the union of observed dates. Duplicate (date, metric) pairs
// can occur when data is republished; observations are sorted by
// (metric, date) and the first occurrence wins. This is a deterministic
// tie-break, not an aggregation. Column labels are the exact metric names,
// no case normalization.
func Pivot(obs []Observation) *Frame {
	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Metric != sorted[j].Metric {
			return sorted[i].Metric < sorted[j].Metric
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	dateSet := make(map[time.Time]struct{})
	for _, o := range sorted {
		dateSet[o.Date] = struct{}{}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rowIndex := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		rowIndex[d] = i
	}

	f := NewFrame(dates)
	type cell struct {
		metric string
		date   time.Time
	}
	seen := make(map[cell]struct{}, len(sorted))
	for _, o := range sorted {
		key := cell{metric: o.Metric, date: o.Date}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		col, ok := f.columns[o.Metric]
		if !ok {
			col = series.New(len(dates))
			f.SetColumn(o.Metric, col)
		}
		col[rowIndex[o.Date]] = o.Value
	}

	return f
}

// Densify reindexes the frame onto every calendar day between the observed
// min and max date, forward-fills each column independently, and drops
// leading rows where every column is still missing. A single-observation
// metric fills forward until data ends; that is the best available knowledge
// as of each date and is intentionally not smoothed or decayed.
func (f *Frame) Densify() *Frame {
	if len(f.dates) == 0 {
		return f
	}

	first := f.dates[0]
	last := f.dates[len(f.dates)-1]

	var calendar []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		calendar = append(calendar, d)
	}

	oldIndex := make(map[time.Time]int, len(f.dates))
	for i, d := range f.dates {
		oldIndex[d] = i
	}

	dense := NewFrame(calendar)
	for _, name := range f.order {
		src := f.columns[name]
		col := series.New(len(calendar))
		for i, d := range calendar {
			if j, ok := oldIndex[d]; ok {
				col[i] = src[j]
			}
		}
		dense.SetColumn(name, col.ForwardFill())
	}

	return dense.dropLeadingEmptyRows()
}

// dropLeadingEmptyRows removes rows before the first date on which any
// column has a value. After forward filling, an all-missing row can only
// occur before the earliest real observation.
func (f *Frame) dropLeadingEmptyRows() *Frame {
	start := 0
	for ; start < len(f.dates); start++ {
		any := false
		for _, name := range f.order {
			if series.Valid(f.columns[name][start]) {
				any = true
				break
			}
		}
		if any {
			break
		}
	}

	if start == 0 {
		return f
	}

	trimmed := NewFrame(f.dates[start:])
	for _, name := range f.order {
		trimmed.SetColumn(name, f.columns[name][start:])
	}
	return trimmed
}

// RowAt returns the date and values of row i, in column order.
func (f *Frame) RowAt(i int) (time.Time, []float64) {
	values := make([]float64, len(f.order))
	for c, name := range f.order {
		values[c] = f.columns[name][i]
	}
	return f.dates[i], values
}

// Select returns a new frame restricted to the named columns, preserving
// the given order. Unknown names are skipped.
func (f *Frame) Select(names []string) *Frame {
	out := NewFrame(f.dates)
	for _, name := range names {
		if col, ok := f.columns[name]; ok {
			out.SetColumn(name, col)
		}
	}
	return out
}
