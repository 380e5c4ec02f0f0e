package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantward/featurepipe/internal/alphavantage"
)

// Store persists raw observations into the source tables the transform
// pipeline reads from.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new raw observation store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the raw source tables and the watermark table if
// they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		// observed_at is nullable so failure markers can live in the same
		// table; uniqueness holds only for real observations.
		`CREATE TABLE IF NOT EXISTS raw_commodity_series (
			id BIGSERIAL PRIMARY KEY,
			metric_name TEXT NOT NULL,
			display_name TEXT,
			observed_at DATE,
			interval TEXT,
			value NUMERIC,
			unit TEXT,
			status TEXT NOT NULL DEFAULT 'success',
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (metric_name, observed_at)
		)`,
		`CREATE TABLE IF NOT EXISTS raw_economic_series (
			id BIGSERIAL PRIMARY KEY,
			metric_name TEXT NOT NULL,
			display_name TEXT,
			observed_at DATE,
			interval TEXT,
			value NUMERIC,
			unit TEXT,
			status TEXT NOT NULL DEFAULT 'success',
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (metric_name, observed_at)
		)`,
		`CREATE TABLE IF NOT EXISTS raw_income_statements (
			id BIGSERIAL PRIMARY KEY,
			entity_key TEXT NOT NULL,
			entity_label TEXT,
			fiscal_period DATE,
			metric_name TEXT NOT NULL,
			value NUMERIC,
			status TEXT NOT NULL DEFAULT 'success',
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (entity_key, fiscal_period, metric_name)
		)`,
		`CREATE TABLE IF NOT EXISTS etl_watermarks (
			source TEXT PRIMARY KEY,
			last_observed DATE,
			last_run TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveSeries upserts the points of one metric into a raw series table.
func (s *Store) SaveSeries(ctx context.Context, table, metric string, data *alphavantage.SeriesData) error {
	if len(data.Points) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (metric_name, display_name, observed_at, interval, value, unit, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, 'success', NULL)
		ON CONFLICT (metric_name, observed_at) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			interval = EXCLUDED.interval,
			value = EXCLUDED.value,
			unit = EXCLUDED.unit,
			status = 'success',
			error_message = NULL,
			updated_at = NOW()
	`, pgx.Identifier{table}.Sanitize())

	batch := &pgx.Batch{}
	for _, p := range data.Points {
		batch.Queue(query, metric, data.Name, p.Date, data.Interval, p.Value, data.Unit)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range data.Points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save %s point: %w", metric, err)
		}
	}
	return nil
}

// SaveIncomeStatement upserts one entity's quarterly line items.
func (s *Store) SaveIncomeStatement(ctx context.Context, entityKey, entityLabel string, reports []alphavantage.Report) error {
	query := `
		INSERT INTO raw_income_statements (entity_key, entity_label, fiscal_period, metric_name, value, status, error_message)
		VALUES ($1, $2, $3, $4, $5, 'success', NULL)
		ON CONFLICT (entity_key, fiscal_period, metric_name) DO UPDATE SET
			entity_label = EXCLUDED.entity_label,
			value = EXCLUDED.value,
			status = 'success',
			error_message = NULL,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	queued := 0
	for _, report := range reports {
		for item, value := range report.Items {
			batch.Queue(query, entityKey, entityLabel, report.FiscalDateEnding, item, value)
			queued++
		}
	}
	if queued == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save income statement %s: %w", entityKey, err)
		}
	}
	return nil
}

// MarkFailure records a failed fetch for a metric so the failure is visible
// in the source table without poisoning successful history. The marker row
// has no observation date and is ignored by the transform queries.
func (s *Store) MarkFailure(ctx context.Context, table, metric string, fetchErr error) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (metric_name, observed_at, value, status, error_message)
		VALUES ($1, NULL, NULL, 'failed', $2)
	`, pgx.Identifier{table}.Sanitize())

	_, err := s.pool.Exec(ctx, query, metric, fetchErr.Error())
	return err
}

// MarkEntityFailure records a failed income statement fetch for an entity.
func (s *Store) MarkEntityFailure(ctx context.Context, entityKey string, fetchErr error) error {
	query := `
		INSERT INTO raw_income_statements (entity_key, fiscal_period, metric_name, value, status, error_message)
		VALUES ($1, NULL, 'fetch', NULL, 'failed', $2)
	`
	_, err := s.pool.Exec(ctx, query, entityKey, fetchErr.Error())
	return err
}

// LatestObserved returns the newest observation date stored for a metric,
// or the zero time when none exists.
func (s *Store) LatestObserved(ctx context.Context, table, metric string) (time.Time, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(observed_at), '0001-01-01'::date)
		FROM %s
		WHERE metric_name = $1 AND status = 'success'
	`, pgx.Identifier{table}.Sanitize())

	var latest time.Time
	if err := s.pool.QueryRow(ctx, query, metric).Scan(&latest); err != nil {
		return time.Time{}, err
	}
	if latest.Year() <= 1 {
		return time.Time{}, nil
	}
	return latest, nil
}
