package transform

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantward/featurepipe/internal/panel"
	"github.com/quantward/featurepipe/internal/series"
)

// repository reads raw observations and writes feature tables over a single
// acquired connection, so one Run holds exactly one connection for its
// whole duration.
type repository struct {
	conn *pgxpool.Conn
}

func newRepository(conn *pgxpool.Conn) *repository {
	return &repository{conn: conn}
}

// FetchSeries loads successful time-series observations from a source
// table. Failed rows and rows missing a value or timestamp are filtered in
// the query.
func (r *repository) FetchSeries(ctx context.Context, table string) ([]panel.Observation, error) {
	query := fmt.Sprintf(`
		SELECT metric_name, observed_at, value
		FROM %s
		WHERE status = 'success' AND value IS NOT NULL AND observed_at IS NOT NULL
		ORDER BY metric_name, observed_at
	`, pgx.Identifier{table}.Sanitize())

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obs []panel.Observation
	for rows.Next() {
		var o panel.Observation
		if err := rows.Scan(&o.Metric, &o.Date, &o.Value); err != nil {
			return nil, err
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

// FetchEntitySeries loads successful entity-keyed observations from a
// source table.
func (r *repository) FetchEntitySeries(ctx context.Context, table string) ([]panel.Observation, error) {
	query := fmt.Sprintf(`
		SELECT entity_key, COALESCE(entity_label, ''), fiscal_period, metric_name, value
		FROM %s
		WHERE status = 'success' AND value IS NOT NULL AND fiscal_period IS NOT NULL
		ORDER BY metric_name, entity_key, fiscal_period
	`, pgx.Identifier{table}.Sanitize())

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obs []panel.Observation
	for rows.Next() {
		var o panel.Observation
		if err := rows.Scan(&o.Entity, &o.EntityLabel, &o.Date, &o.Metric, &o.Value); err != nil {
			return nil, err
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

// ReplaceFeatures drops and recreates the target table, then bulk-writes
// every row in one COPY. The table holds only the finished feature columns.
func (r *repository) ReplaceFeatures(ctx context.Context, table string, f *panel.Frame, cols []string) error {
	ident := pgx.Identifier{table}.Sanitize()

	if _, err := r.conn.Exec(ctx, "DROP TABLE IF EXISTS "+ident); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}

	ddl := make([]string, 0, len(cols)+3)
	ddl = append(ddl,
		`"timestamp" DATE PRIMARY KEY`,
		`created_at TIMESTAMPTZ NOT NULL DEFAULT now()`,
		`updated_at TIMESTAMPTZ NOT NULL DEFAULT now()`,
	)
	for _, col := range cols {
		ddl = append(ddl, pgx.Identifier{col}.Sanitize()+" NUMERIC(15,6)")
	}
	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", ident, strings.Join(ddl, ", "))
	if _, err := r.conn.Exec(ctx, createStmt); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	sel := f.Select(cols)
	copyRows := make([][]interface{}, 0, f.NumRows())
	for i := 0; i < f.NumRows(); i++ {
		date, values := sel.RowAt(i)
		row := make([]interface{}, 0, len(values)+1)
		row = append(row, date)
		for _, v := range values {
			row = append(row, sqlValue(v))
		}
		copyRows = append(copyRows, row)
	}

	copyCols := append([]string{"timestamp"}, cols...)
	if _, err := r.conn.CopyFrom(ctx, pgx.Identifier{table}, copyCols, pgx.CopyFromRows(copyRows)); err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}

	return nil
}

// UpsertEntityFeatures creates the target table if needed and upserts every
// row on the (entity_key, fiscal_period) key, overwriting all feature
// columns and refreshing updated_at.
func (r *repository) UpsertEntityFeatures(ctx context.Context, table string, f *panel.EntityFrame, cols []string) error {
	ident := pgx.Identifier{table}.Sanitize()

	ddl := make([]string, 0, len(cols)+6)
	ddl = append(ddl,
		`entity_key TEXT NOT NULL`,
		`entity_label TEXT`,
		`fiscal_period DATE NOT NULL`,
	)
	for _, col := range cols {
		ddl = append(ddl, pgx.Identifier{col}.Sanitize()+" NUMERIC")
	}
	ddl = append(ddl,
		`created_at TIMESTAMPTZ NOT NULL DEFAULT now()`,
		`updated_at TIMESTAMPTZ NOT NULL DEFAULT now()`,
		`PRIMARY KEY (entity_key, fiscal_period)`,
	)
	createStmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident, strings.Join(ddl, ", "))
	if _, err := r.conn.Exec(ctx, createStmt); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	insertStmt := buildEntityUpsert(table, cols)

	sel := make([]series.Series, len(cols))
	for i, col := range cols {
		c, ok := f.Column(col)
		if !ok {
			return fmt.Errorf("missing feature column %s", col)
		}
		sel[i] = c
	}

	batch := &pgx.Batch{}
	for i := 0; i < f.NumRows(); i++ {
		key := f.Keys()[i]
		args := make([]interface{}, 0, len(cols)+3)
		args = append(args, key.Entity, f.Label(key.Entity), key.Period)
		for _, c := range sel {
			args = append(args, sqlValue(c[i]))
		}
		batch.Queue(insertStmt, args...)
	}

	br := r.conn.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < f.NumRows(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert row %d: %w", i, err)
		}
	}

	return nil
}

func buildEntityUpsert(table string, cols []string) string {
	colNames := make([]string, 0, len(cols)+3)
	colNames = append(colNames, "entity_key", "entity_label", "fiscal_period")
	placeholders := make([]string, 0, len(cols)+3)
	updates := make([]string, 0, len(cols)+1)

	for i := range colNames {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}
	for i, col := range cols {
		quoted := pgx.Identifier{col}.Sanitize()
		colNames = append(colNames, quoted)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+4))
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", quoted, quoted))
	}
	updates = append(updates, "updated_at = now()")

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (entity_key, fiscal_period) DO UPDATE SET %s",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(colNames, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

// sqlValue maps a panel value to its SQL representation. Missing values and
// infinities (a rolling ratio or slope can diverge when a denominator
// window is exactly zero) become NULL; NULL is never coerced to zero so
// consumers can tell "no signal yet" from "signal is exactly zero".
func sqlValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
