package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/quantward/featurepipe/internal/features"
	"github.com/quantward/featurepipe/internal/panel"
	"github.com/quantward/featurepipe/pkg/database"
	"github.com/quantward/featurepipe/pkg/logger"
	"github.com/quantward/featurepipe/pkg/warehouse"
)

// Pipeline turns raw observations into persisted feature panels. One Run
// processes one domain entirely in memory: fetch, pivot, densify, derive,
// normalize, persist. Runs hold no shared mutable state, so separate
// domains can be transformed concurrently by an external scheduler.
type Pipeline struct {
	db     *database.DB
	mirror *warehouse.Conn // optional ClickHouse mirror, may be nil
	logger *logger.Logger
}

// Result summarizes one completed domain transform.
type Result struct {
	Domain  string
	Rows    int
	Columns []string
}

// New creates a pipeline. mirror may be nil when the warehouse copy is
// disabled.
func New(db *database.DB, mirror *warehouse.Conn, log *logger.Logger) *Pipeline {
	return &Pipeline{
		db:     db,
		mirror: mirror,
		logger: log,
	}
}

// Run executes the full transform for one domain. A connection is acquired
// at the start and released on every exit path; any storage failure aborts
// the whole run without partial commit.
func (p *Pipeline) Run(ctx context.Context, d Domain) (*Result, error) {
	log := p.logger.WithField("domain", d.Name)

	conn, err := p.db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	repo := newRepository(conn)

	if d.EntityKeyed {
		return p.runEntityKeyed(ctx, d, repo, log)
	}
	return p.runTimeSeries(ctx, d, repo, log)
}

func (p *Pipeline) runTimeSeries(ctx context.Context, d Domain, repo *repository, log *logger.Logger) (*Result, error) {
	obs, err := repo.FetchSeries(ctx, d.SourceTable)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", d.SourceTable, err)
	}
	if len(obs) == 0 {
		// Normal outcome: nothing fetched, nothing touched
		log.Info("No source observations, skipping transform")
		return &Result{Domain: d.Name}, nil
	}

	frame := BuildTimeSeriesFrame(obs, d)
	cols := FeatureColumns(frame.Columns(), d.Prefix)

	if err := repo.ReplaceFeatures(ctx, d.TargetTable, frame, cols); err != nil {
		return nil, fmt.Errorf("persist %s: %w", d.TargetTable, err)
	}

	p.mirrorTimeSeries(ctx, d, frame, cols, log)

	log.WithFields(map[string]interface{}{
		"rows":    frame.NumRows(),
		"columns": len(cols),
	}).Info("Transform completed")

	return &Result{Domain: d.Name, Rows: frame.NumRows(), Columns: cols}, nil
}

func (p *Pipeline) runEntityKeyed(ctx context.Context, d Domain, repo *repository, log *logger.Logger) (*Result, error) {
	obs, err := repo.FetchEntitySeries(ctx, d.SourceTable)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", d.SourceTable, err)
	}
	if len(obs) == 0 {
		log.Info("No source observations, skipping transform")
		return &Result{Domain: d.Name}, nil
	}

	frame := BuildEntityFrame(obs, d)
	cols := FeatureColumns(frame.Columns(), d.Prefix)

	if err := repo.UpsertEntityFeatures(ctx, d.TargetTable, frame, cols); err != nil {
		return nil, fmt.Errorf("persist %s: %w", d.TargetTable, err)
	}

	p.mirrorEntities(ctx, d, frame, cols, log)

	log.WithFields(map[string]interface{}{
		"rows":    frame.NumRows(),
		"columns": len(cols),
	}).Info("Transform completed")

	return &Result{Domain: d.Name, Rows: frame.NumRows(), Columns: cols}, nil
}

// BuildTimeSeriesFrame runs the in-memory stages for a date-indexed domain:
// pivot, densify, derive, composites, normalize.
func BuildTimeSeriesFrame(obs []panel.Observation, d Domain) *panel.Frame {
	frame := panel.Pivot(obs).Densify()

	// Source metric columns, captured before derivations are added
	sources := frame.Columns()

	features.DeriveMomentum(frame, sources, d.Prefix, d.Params)
	features.DeriveVolatility(frame, sources, d.Prefix, d.Params)
	features.DeriveTrend(frame, sources, d.Prefix, d.Params)
	if d.Composites != nil {
		d.Composites(frame, d.Prefix)
	}
	features.Normalize(frame, d.Prefix, d.Params)

	return frame
}

// BuildEntityFrame runs the in-memory stages for an entity-keyed domain:
// pivot, ratio derivation, four-stage normalization.
func BuildEntityFrame(obs []panel.Observation, d Domain) *panel.EntityFrame {
	frame := panel.PivotEntities(obs)
	features.DeriveFundamentalRatios(frame, d.Prefix, d.Params)
	features.NormalizeFundamentals(frame, d.Prefix, d.Params)
	return frame
}

// FeatureColumns filters a column list down to the persisted contract:
// columns carrying the domain prefix, minus normalization intermediates.
func FeatureColumns(names []string, prefix string) []string {
	marker := prefix + "_"
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !strings.HasPrefix(name, marker) {
			continue
		}
		if features.IsIntermediate(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}
