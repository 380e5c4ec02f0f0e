package transform

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/quantward/featurepipe/internal/panel"
	"github.com/quantward/featurepipe/pkg/logger"
)

// mirrorTimeSeries copies a finished time-series feature table into the
// analytics warehouse. The mirror is best effort: a failure is logged and
// the run continues, the Postgres table is already committed.
func (p *Pipeline) mirrorTimeSeries(ctx context.Context, d Domain, f *panel.Frame, cols []string, log *logger.Logger) {
	if p.mirror == nil {
		return
	}

	colDefs := make([]string, 0, len(cols)+1)
	colDefs = append(colDefs, "timestamp Date")
	for _, col := range cols {
		colDefs = append(colDefs, fmt.Sprintf("`%s` Nullable(Float64)", col))
	}
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = ReplacingMergeTree ORDER BY timestamp",
		d.TargetTable, strings.Join(colDefs, ", "),
	)
	if err := p.mirror.Exec(ctx, ddl); err != nil {
		log.WithError(err).Warn("Warehouse mirror create table failed, skipping mirror")
		return
	}

	if err := p.mirror.Exec(ctx, "TRUNCATE TABLE IF EXISTS "+d.TargetTable); err != nil {
		log.WithError(err).Warn("Warehouse mirror truncate failed, skipping mirror")
		return
	}

	batch, err := p.mirror.PrepareBatch(ctx, "INSERT INTO "+d.TargetTable)
	if err != nil {
		log.WithError(err).Warn("Warehouse mirror prepare batch failed, skipping mirror")
		return
	}

	sel := f.Select(cols)
	for i := 0; i < sel.NumRows(); i++ {
		date, values := sel.RowAt(i)
		row := make([]interface{}, 0, len(values)+1)
		row = append(row, date)
		for _, v := range values {
			row = append(row, nullableFloat(v))
		}
		if err := batch.Append(row...); err != nil {
			log.WithError(err).Warn("Warehouse mirror append failed, skipping mirror")
			return
		}
	}

	if err := batch.Send(); err != nil {
		log.WithError(err).Warn("Warehouse mirror send failed")
		return
	}

	log.WithField("rows", sel.NumRows()).Debug("Mirrored features to warehouse")
}

// mirrorEntities copies an entity-keyed feature table into the warehouse.
// ReplacingMergeTree keyed on (entity_key, fiscal_period) collapses
// re-mirrored rows on merge, matching the upsert semantics in Postgres.
func (p *Pipeline) mirrorEntities(ctx context.Context, d Domain, f *panel.EntityFrame, cols []string, log *logger.Logger) {
	if p.mirror == nil {
		return
	}

	colDefs := make([]string, 0, len(cols)+3)
	colDefs = append(colDefs,
		"entity_key String",
		"entity_label String",
		"fiscal_period Date",
	)
	for _, col := range cols {
		colDefs = append(colDefs, fmt.Sprintf("`%s` Nullable(Float64)", col))
	}
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = ReplacingMergeTree ORDER BY (entity_key, fiscal_period)",
		d.TargetTable, strings.Join(colDefs, ", "),
	)
	if err := p.mirror.Exec(ctx, ddl); err != nil {
		log.WithError(err).Warn("Warehouse mirror create table failed, skipping mirror")
		return
	}

	batch, err := p.mirror.PrepareBatch(ctx, "INSERT INTO "+d.TargetTable)
	if err != nil {
		log.WithError(err).Warn("Warehouse mirror prepare batch failed, skipping mirror")
		return
	}

	for i := 0; i < f.NumRows(); i++ {
		key := f.Keys()[i]
		row := make([]interface{}, 0, len(cols)+3)
		row = append(row, key.Entity, f.Label(key.Entity), key.Period)
		for _, col := range cols {
			c, _ := f.Column(col)
			row = append(row, nullableFloat(c[i]))
		}
		if err := batch.Append(row...); err != nil {
			log.WithError(err).Warn("Warehouse mirror append failed, skipping mirror")
			return
		}
	}

	if err := batch.Send(); err != nil {
		log.WithError(err).Warn("Warehouse mirror send failed")
		return
	}

	log.WithField("rows", f.NumRows()).Debug("Mirrored features to warehouse")
}

// nullableFloat maps missing and non-finite values onto a ClickHouse
// Nullable(Float64) column.
func nullableFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
