package panel

import (
	"sort"
	"time"

	"github.com/quantward/featurepipe/internal/series"
)

// EntityKey identifies one row of an entity panel.
type EntityKey struct {
	Entity string
	Period time.Time
}

// EntityFrame is a panel keyed by (entity, fiscal period) instead of by a
// shared date index. Rows are sorted by entity then period so that
// per-entity rolling statistics see periods in order.
type EntityFrame struct {
	keys    []EntityKey
	labels  map[string]string // entity -> display label
	order   []string
	columns map[string]series.Series
}

// PivotEntities reshapes long-format observations into an entity panel.
// The duplicate tie-break mirrors Pivot: sort by (metric, entity, period),
// first occurrence wins.
func PivotEntities(obs []Observation) *EntityFrame {
	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Metric != sorted[j].Metric {
			return sorted[i].Metric < sorted[j].Metric
		}
		if sorted[i].Entity != sorted[j].Entity {
			return sorted[i].Entity < sorted[j].Entity
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	keySet := make(map[EntityKey]struct{})
	labels := make(map[string]string)
	for _, o := range sorted {
		keySet[EntityKey{Entity: o.Entity, Period: o.Date}] = struct{}{}
		if o.EntityLabel != "" {
			labels[o.Entity] = o.EntityLabel
		}
	}

	keys := make([]EntityKey, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Entity != keys[j].Entity {
			return keys[i].Entity < keys[j].Entity
		}
		return keys[i].Period.Before(keys[j].Period)
	})

	rowIndex := make(map[EntityKey]int, len(keys))
	for i, k := range keys {
		rowIndex[k] = i
	}

	f := &EntityFrame{
		keys:    keys,
		labels:  labels,
		columns: make(map[string]series.Series),
	}

	type cell struct {
		metric string
		key    EntityKey
	}
	seen := make(map[cell]struct{}, len(sorted))
	for _, o := range sorted {
		key := EntityKey{Entity: o.Entity, Period: o.Date}
		c := cell{metric: o.Metric, key: key}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}

		col, ok := f.columns[o.Metric]
		if !ok {
			col = series.New(len(keys))
			f.SetColumn(o.Metric, col)
		}
		col[rowIndex[key]] = o.Value
	}

	return f
}

// Keys returns the row keys in (entity, period) order.
func (f *EntityFrame) Keys() []EntityKey {
	return f.keys
}

// Label returns the display label recorded for an entity, if any.
func (f *EntityFrame) Label(entity string) string {
	return f.labels[entity]
}

// NumRows returns the number of rows.
func (f *EntityFrame) NumRows() int {
	return len(f.keys)
}

// Columns returns the column names in insertion order.
func (f *EntityFrame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Column returns the named series.
func (f *EntityFrame) Column(name string) (series.Series, bool) {
	s, ok := f.columns[name]
	return s, ok
}

// SetColumn adds or replaces a column.
func (f *EntityFrame) SetColumn(name string, s series.Series) {
	if len(s) != len(f.keys) {
		panic("panel: column length does not match entity index")
	}
	if _, exists := f.columns[name]; !exists {
		f.order = append(f.order, name)
	}
	f.columns[name] = s
}

// EntityGroups returns row indices per entity, each in period order. Rows
// are already sorted by (entity, period), so groups are contiguous.
func (f *EntityFrame) EntityGroups() map[string][]int {
	groups := make(map[string][]int)
	for i, k := range f.keys {
		groups[k.Entity] = append(groups[k.Entity], i)
	}
	return groups
}

// PeriodGroups returns row indices per fiscal period, across all entities.
// This is the cross-sectional view used by the peer-relative ranking stage.
func (f *EntityFrame) PeriodGroups() map[time.Time][]int {
	groups := make(map[time.Time][]int)
	for i, k := range f.keys {
		groups[k.Period] = append(groups[k.Period], i)
	}
	return groups
}

// GroupApply computes a new column by applying fn to each entity's
// subseries of src in period order and scattering the result back.
func (f *EntityFrame) GroupApply(src series.Series, fn func(series.Series) series.Series) series.Series {
	out := series.New(len(f.keys))
	for _, idx := range f.EntityGroups() {
		sub := make(series.Series, len(idx))
		for j, i := range idx {
			sub[j] = src[i]
		}
		res := fn(sub)
		for j, i := range idx {
			out[i] = res[j]
		}
	}
	return out
}

// RowAt returns the key and values of row i, in column order.
func (f *EntityFrame) RowAt(i int) (EntityKey, []float64) {
	values := make([]float64, len(f.order))
	for c, name := range f.order {
		values[c] = f.columns[name][i]
	}
	return f.keys[i], values
}
