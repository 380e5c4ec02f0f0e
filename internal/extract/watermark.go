package extract

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// Watermark records the progress of one extraction source.
type Watermark struct {
	Source       string
	LastObserved time.Time
	LastRun      time.Time
}

// GetWatermark returns the watermark for a source, or a zero-valued
// watermark when the source has never run.
func (s *Store) GetWatermark(ctx context.Context, source string) (Watermark, error) {
	query := `
		SELECT source, COALESCE(last_observed, '0001-01-01'::date), last_run
		FROM etl_watermarks
		WHERE source = $1
	`

	var w Watermark
	err := s.pool.QueryRow(ctx, query, source).Scan(&w.Source, &w.LastObserved, &w.LastRun)
	if errors.Is(err, pgx.ErrNoRows) {
		return Watermark{Source: source}, nil
	}
	if err != nil {
		return Watermark{}, err
	}
	if w.LastObserved.Year() <= 1 {
		w.LastObserved = time.Time{}
	}
	return w, nil
}

// SetWatermark upserts the watermark for a source. last_observed is
// monotone: GREATEST ignores NULL, so a run that saw nothing new (or an
// older date than a previously recorded one) never moves the high-water
// date backwards.
func (s *Store) SetWatermark(ctx context.Context, w Watermark) error {
	query := `
		INSERT INTO etl_watermarks (source, last_observed, last_run)
		VALUES ($1, NULLIF($2, '0001-01-01'::date), $3)
		ON CONFLICT (source) DO UPDATE SET
			last_observed = GREATEST(etl_watermarks.last_observed, EXCLUDED.last_observed),
			last_run = EXCLUDED.last_run,
			updated_at = NOW()
	`

	observed := w.LastObserved
	if observed.IsZero() {
		observed = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	_, err := s.pool.Exec(ctx, query, w.Source, observed, w.LastRun)
	return err
}
