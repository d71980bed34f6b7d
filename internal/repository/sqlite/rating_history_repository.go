package sqlite

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"

	"github.com/vytor/chessmetrics/internal/models"
	"github.com/vytor/chessmetrics/internal/repository"
)

type ratingHistoryRepository struct {
	db *sql.DB
}

// NewRatingHistoryRepository creates a new RatingHistoryRepository implementation
func NewRatingHistoryRepository(db *sql.DB) repository.RatingHistoryRepository {
	return &ratingHistoryRepository{db: db}
}

// Trend returns the player's rating trajectory in chronological order,
// capped to the most recent N points when params.Limit is positive.
func (r *ratingHistoryRepository) Trend(ctx context.Context, params models.TrendParams) ([]models.TrendPoint, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "history_repo").Logger()
	log.Debug().Int64("player_id", params.PlayerID).Int("limit", params.Limit).Msg("fetching rating trend")

	query := sqlBuilder.Select("ts", "rating").
		From("rating_history").
		Where(squirrel.Eq{"player_id": params.PlayerID}).
		OrderBy("ts DESC", "id DESC")
	if params.Limit > 0 {
		query = query.Limit(uint64(params.Limit))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error().Err(err).Msg("failed to query rating trend")
		return nil, classify(err)
	}
	defer rows.Close()

	var points []models.TrendPoint
	for rows.Next() {
		var pt models.TrendPoint
		if err := rows.Scan(&pt.Timestamp, &pt.Rating); err != nil {
			return nil, err
		}
		points = append(points, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	// Fetched newest-first to apply the cap; callers want chronological.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// SeriesWithMinPoints streams the ordered rating series of every player
// holding at least minPoints samples. The point-count threshold is pushed
// into the store so short histories are never fetched.
func (r *ratingHistoryRepository) SeriesWithMinPoints(ctx context.Context, minPoints int) ([]models.RatingSeries, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "history_repo").Logger()
	log.Debug().Int("min_points", minPoints).Msg("fetching rating series")

	rows, err := r.db.QueryContext(ctx, `
SELECT rh.player_id, p.display_name, rh.rating
FROM rating_history rh
JOIN players p ON p.id = rh.player_id
WHERE rh.player_id IN (
    SELECT player_id FROM rating_history GROUP BY player_id HAVING COUNT(*) >= ?
)
ORDER BY rh.player_id, rh.ts, rh.id
`, minPoints)
	if err != nil {
		log.Error().Err(err).Msg("failed to query rating series")
		return nil, classify(err)
	}
	defer rows.Close()

	var series []models.RatingSeries
	for rows.Next() {
		var (
			playerID int64
			name     string
			rating   int
		)
		if err := rows.Scan(&playerID, &name, &rating); err != nil {
			return nil, err
		}
		if len(series) == 0 || series[len(series)-1].PlayerID != playerID {
			series = append(series, models.RatingSeries{PlayerID: playerID, Name: name})
		}
		last := len(series) - 1
		series[last].Ratings = append(series[last].Ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	log.Debug().Int("players", len(series)).Msg("rating series fetched")
	return series, nil
}
