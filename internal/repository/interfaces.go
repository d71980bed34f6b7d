package repository

import (
	"context"

	"github.com/vytor/chessmetrics/internal/models"
)

// BatchWriter commits a resolved batch as a single unit: all of the game
// inserts, player upserts, opening counter increments and rating-history
// appends become visible together, or none do.
type BatchWriter interface {
	CommitBatch(ctx context.Context, batch *models.Batch) (models.CommitResult, error)
}

// PlayerRepository looks up player identities by natural key.
type PlayerRepository interface {
	GetByName(ctx context.Context, name string) (*models.Player, error)
}

// RatingHistoryRepository reads the append-only rating time series.
type RatingHistoryRepository interface {
	// Trend returns a player's rating trajectory in chronological order,
	// optionally capped to the most recent N points.
	Trend(ctx context.Context, params models.TrendParams) ([]models.TrendPoint, error)
	// SeriesWithMinPoints returns the ordered rating series of every player
	// with at least minPoints history points.
	SeriesWithMinPoints(ctx context.Context, minPoints int) ([]models.RatingSeries, error)
}

// StatsRepository executes the aggregation queries. All methods are
// read-only; selective filters are applied before grouping.
type StatsRepository interface {
	OpeningSuccessRates(ctx context.Context, params models.OpeningStatsParams) ([]models.OpeningSuccessRate, error)
	TimeControlStats(ctx context.Context, minGames int) ([]models.TimeControlStat, error)
	Repertoire(ctx context.Context, params models.RepertoireParams) ([]models.RepertoireEntry, error)
	Counts(ctx context.Context) (models.StoreCounts, error)
}

// RunRepository records import run metadata.
type RunRepository interface {
	InsertRun(ctx context.Context, run models.ImportRun) (int64, error)
	LastRun(ctx context.Context) (*models.ImportRun, error)
}
