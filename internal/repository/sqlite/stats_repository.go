package sqlite

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"

	"github.com/vytor/chessmetrics/internal/models"
	"github.com/vytor/chessmetrics/internal/repository"
)

type statsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new StatsRepository implementation
func NewStatsRepository(db *sql.DB) repository.StatsRepository {
	return &statsRepository{db: db}
}

// OpeningSuccessRates reports per-opening outcome rates for openings with
// at least params.MinGames games, ordered by total games descending. When
// no time-control filter applies it reads the incrementally maintained
// opening counters; with a filter it aggregates from games, with the
// filter placed before grouping.
func (r *statsRepository) OpeningSuccessRates(ctx context.Context, params models.OpeningStatsParams) ([]models.OpeningSuccessRate, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "stats_repo").Logger()
	log.Debug().Int("min_games", params.MinGames).Str("time_control", params.TimeControl).Msg("fetching opening success rates")

	var query squirrel.SelectBuilder
	if params.TimeControl == "" {
		// Counter fast path: no rescan of games.
		query = sqlBuilder.Select(
			"eco_code", "name", "total_games", "white_wins", "black_wins", "draws",
			"total_white_elo", "total_black_elo",
		).From("openings").
			Where(squirrel.GtOrEq{"total_games": params.MinGames}).
			OrderBy("total_games DESC")
	} else {
		query = sqlBuilder.Select(
			"g.eco_code",
			"COALESCE(o.name, 'Unknown') AS name",
			"COUNT(*) AS total_games",
			"SUM(CASE WHEN g.result = '1-0' THEN 1 ELSE 0 END) AS white_wins",
			"SUM(CASE WHEN g.result = '0-1' THEN 1 ELSE 0 END) AS black_wins",
			"SUM(CASE WHEN g.result = '1/2-1/2' THEN 1 ELSE 0 END) AS draws",
			"SUM(g.white_rating) AS total_white_elo",
			"SUM(g.black_rating) AS total_black_elo",
		).From("games g").
			LeftJoin("openings o ON o.eco_code = g.eco_code").
			Where(squirrel.Eq{"g.time_control": params.TimeControl}).
			GroupBy("g.eco_code").
			Having("COUNT(*) >= ?", params.MinGames).
			OrderBy("total_games DESC")
	}
	if params.Limit > 0 {
		query = query.Limit(uint64(params.Limit))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error().Err(err).Msg("failed to query opening success rates")
		return nil, classify(err)
	}
	defer rows.Close()

	var stats []models.OpeningSuccessRate
	for rows.Next() {
		var (
			s                            models.OpeningSuccessRate
			whiteWins, blackWins, draws  int
			totalWhiteElo, totalBlackElo int64
		)
		if err := rows.Scan(&s.ECOCode, &s.OpeningName, &s.TotalGames, &whiteWins, &blackWins, &draws, &totalWhiteElo, &totalBlackElo); err != nil {
			return nil, err
		}
		if s.TotalGames > 0 {
			n := float64(s.TotalGames)
			s.WinRateWhite = float64(whiteWins) / n
			s.WinRateBlack = float64(blackWins) / n
			s.DrawRate = float64(draws) / n
			s.AvgRating = float64(totalWhiteElo+totalBlackElo) / (2 * n)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	log.Debug().Int("openings", len(stats)).Msg("opening success rates fetched")
	return stats, nil
}

// TimeControlStats reports the win/draw/loss distribution per time-control
// class, ordered by total games descending.
func (r *statsRepository) TimeControlStats(ctx context.Context, minGames int) ([]models.TimeControlStat, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "stats_repo").Logger()
	log.Debug().Int("min_games", minGames).Msg("fetching time control stats")

	query := sqlBuilder.Select(
		"time_control",
		"COUNT(*) AS total_games",
		"SUM(CASE WHEN result = '1-0' THEN 1 ELSE 0 END) AS white_wins",
		"SUM(CASE WHEN result = '0-1' THEN 1 ELSE 0 END) AS black_wins",
		"SUM(CASE WHEN result = '1/2-1/2' THEN 1 ELSE 0 END) AS draws",
		"AVG((white_rating + black_rating) / 2.0) AS avg_rating",
	).From("games").
		GroupBy("time_control").
		OrderBy("total_games DESC")
	if minGames > 0 {
		query = query.Having("COUNT(*) >= ?", minGames)
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error().Err(err).Msg("failed to query time control stats")
		return nil, classify(err)
	}
	defer rows.Close()

	var stats []models.TimeControlStat
	for rows.Next() {
		var s models.TimeControlStat
		if err := rows.Scan(&s.TimeControl, &s.TotalGames, &s.WhiteWins, &s.BlackWins, &s.Draws, &s.AvgRating); err != nil {
			return nil, err
		}
		if s.TotalGames > 0 {
			n := float64(s.TotalGames)
			s.WhiteWinRate = float64(s.WhiteWins) / n
			s.BlackWinRate = float64(s.BlackWins) / n
			s.DrawRate = float64(s.Draws) / n
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Repertoire reports a player's per-opening record for one color, filtered
// to openings with at least params.MinGames games, ordered by game count
// descending. The player and time-control filters narrow the scan before
// grouping.
func (r *statsRepository) Repertoire(ctx context.Context, params models.RepertoireParams) ([]models.RepertoireEntry, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "stats_repo").Logger()
	log.Debug().Int64("player_id", params.PlayerID).Str("color", params.Color).Int("min_games", params.MinGames).Msg("fetching repertoire")

	playerCol, winResult, lossResult := "white_player_id", "1-0", "0-1"
	if params.Color == "black" {
		playerCol, winResult, lossResult = "black_player_id", "0-1", "1-0"
	}

	query := sqlBuilder.Select(
		"g.eco_code",
		"COALESCE(o.name, 'Unknown') AS name",
		"COUNT(*) AS games_played",
		"SUM(CASE WHEN g.result = '"+winResult+"' THEN 1 ELSE 0 END) AS wins",
		"SUM(CASE WHEN g.result = '1/2-1/2' THEN 1 ELSE 0 END) AS draws",
		"SUM(CASE WHEN g.result = '"+lossResult+"' THEN 1 ELSE 0 END) AS losses",
	).From("games g").
		LeftJoin("openings o ON o.eco_code = g.eco_code").
		Where(squirrel.Eq{"g." + playerCol: params.PlayerID})
	if params.TimeControl != "" {
		query = query.Where(squirrel.Eq{"g.time_control": params.TimeControl})
	}
	query = query.GroupBy("g.eco_code").
		Having("COUNT(*) >= ?", params.MinGames).
		OrderBy("games_played DESC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error().Err(err).Msg("failed to query repertoire")
		return nil, classify(err)
	}
	defer rows.Close()

	var entries []models.RepertoireEntry
	for rows.Next() {
		var e models.RepertoireEntry
		if err := rows.Scan(&e.ECOCode, &e.OpeningName, &e.GamesPlayed, &e.Wins, &e.Draws, &e.Losses); err != nil {
			return nil, err
		}
		if e.GamesPlayed > 0 {
			e.ScoreRate = (float64(e.Wins) + 0.5*float64(e.Draws)) / float64(e.GamesPlayed)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts summarizes the committed collections.
func (r *statsRepository) Counts(ctx context.Context) (models.StoreCounts, error) {
	var c models.StoreCounts
	for _, q := range []struct {
		table string
		dst   *int
	}{
		{"players", &c.Players},
		{"games", &c.Games},
		{"openings", &c.Openings},
		{"rating_history", &c.RatingHistory},
	} {
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+q.table).Scan(q.dst); err != nil {
			return models.StoreCounts{}, classify(err)
		}
	}
	return c, nil
}
