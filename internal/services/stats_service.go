package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/vytor/chessmetrics/internal/errors"
	"github.com/vytor/chessmetrics/internal/ingest"
	"github.com/vytor/chessmetrics/internal/models"
	"github.com/vytor/chessmetrics/internal/repository"
)

// Status summarizes the store contents and the most recent import run.
type Status struct {
	Counts  models.StoreCounts `json:"counts"`
	LastRun *models.ImportRun  `json:"last_run,omitempty"`
}

// StatsService handles the analytics queries. Every query runs under the
// configured time budget; exceeding it yields a QUERY_TIMEOUT error rather
// than an open-ended wait.
type StatsService interface {
	OpeningStats(ctx context.Context, params models.OpeningStatsParams) ([]models.OpeningSuccessRate, error)
	TimeControlStats(ctx context.Context, minGames int) ([]models.TimeControlStat, error)
	RatingTrend(ctx context.Context, playerName string, limit int) (*models.Player, []models.TrendPoint, error)
	Repertoire(ctx context.Context, playerName string, params models.RepertoireParams) ([]models.RepertoireEntry, error)
	Volatility(ctx context.Context, minPoints int) ([]models.PlayerVolatility, error)
	Status(ctx context.Context) (*Status, error)
}

type statsService struct {
	players      repository.PlayerRepository
	history      repository.RatingHistoryRepository
	stats        repository.StatsRepository
	runs         repository.RunRepository
	queryTimeout time.Duration
}

// NewStatsService creates a new StatsService
func NewStatsService(players repository.PlayerRepository, history repository.RatingHistoryRepository, stats repository.StatsRepository, runs repository.RunRepository, queryTimeout time.Duration) StatsService {
	return &statsService{players: players, history: history, stats: stats, runs: runs, queryTimeout: queryTimeout}
}

// withBudget runs fn under the query timeout and translates a deadline hit
// into the QUERY_TIMEOUT error code.
func (s *statsService) withBudget(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	err := fn(qctx)
	if err != nil && errors.Is(qctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewQueryTimeout(operation, err)
	}
	return err
}

func (s *statsService) OpeningStats(ctx context.Context, params models.OpeningStatsParams) ([]models.OpeningSuccessRate, error) {
	log := zerolog.Ctx(ctx)
	log.Debug().Int("min_games", params.MinGames).Str("time_control", params.TimeControl).Msg("getting opening stats")

	if params.MinGames < 1 {
		params.MinGames = 1
	}
	var stats []models.OpeningSuccessRate
	err := s.withBudget(ctx, "opening-stats", func(ctx context.Context) error {
		var err error
		stats, err = s.stats.OpeningSuccessRates(ctx, params)
		return err
	})
	return stats, err
}

func (s *statsService) TimeControlStats(ctx context.Context, minGames int) ([]models.TimeControlStat, error) {
	log := zerolog.Ctx(ctx)
	log.Debug().Int("min_games", minGames).Msg("getting time control stats")

	var stats []models.TimeControlStat
	err := s.withBudget(ctx, "time-control-stats", func(ctx context.Context) error {
		var err error
		stats, err = s.stats.TimeControlStats(ctx, minGames)
		return err
	})
	return stats, err
}

func (s *statsService) RatingTrend(ctx context.Context, playerName string, limit int) (*models.Player, []models.TrendPoint, error) {
	log := zerolog.Ctx(ctx)
	log.Debug().Str("player", playerName).Int("limit", limit).Msg("getting rating trend")

	var (
		player *models.Player
		points []models.TrendPoint
	)
	err := s.withBudget(ctx, "rating-trend", func(ctx context.Context) error {
		var err error
		player, err = s.players.GetByName(ctx, ingest.NormalizeName(playerName))
		if err != nil {
			return err
		}
		if player == nil {
			return apperrors.NewNotFoundError("player", playerName)
		}
		points, err = s.history.Trend(ctx, models.TrendParams{PlayerID: player.ID, Limit: limit})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return player, points, nil
}

func (s *statsService) Repertoire(ctx context.Context, playerName string, params models.RepertoireParams) ([]models.RepertoireEntry, error) {
	log := zerolog.Ctx(ctx)
	log.Debug().Str("player", playerName).Str("color", params.Color).Msg("getting repertoire")

	if params.Color != "white" && params.Color != "black" {
		return nil, apperrors.NewValidationError("color", "must be white or black")
	}
	if params.MinGames < 1 {
		params.MinGames = 1
	}

	var entries []models.RepertoireEntry
	err := s.withBudget(ctx, "repertoire", func(ctx context.Context) error {
		player, err := s.players.GetByName(ctx, ingest.NormalizeName(playerName))
		if err != nil {
			return err
		}
		if player == nil {
			return apperrors.NewNotFoundError("player", playerName)
		}
		params.PlayerID = player.ID
		entries, err = s.stats.Repertoire(ctx, params)
		return err
	})
	return entries, err
}

// Volatility reports, for every player with at least minPoints rating
// samples, the standard deviation of the deltas between successive samples,
// most volatile first.
func (s *statsService) Volatility(ctx context.Context, minPoints int) ([]models.PlayerVolatility, error) {
	log := zerolog.Ctx(ctx)
	log.Debug().Int("min_points", minPoints).Msg("computing rating volatility")

	if minPoints < 2 {
		minPoints = 2
	}
	var series []models.RatingSeries
	err := s.withBudget(ctx, "volatility", func(ctx context.Context) error {
		var err error
		series, err = s.history.SeriesWithMinPoints(ctx, minPoints)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.PlayerVolatility, 0, len(series))
	for _, ps := range series {
		out = append(out, models.PlayerVolatility{
			PlayerID:   ps.PlayerID,
			Name:       ps.Name,
			Points:     len(ps.Ratings),
			Volatility: deltaStdDev(ps.Ratings),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Volatility != out[j].Volatility {
			return out[i].Volatility > out[j].Volatility
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *statsService) Status(ctx context.Context) (*Status, error) {
	var st Status
	err := s.withBudget(ctx, "status", func(ctx context.Context) error {
		counts, err := s.stats.Counts(ctx)
		if err != nil {
			return err
		}
		st.Counts = counts
		st.LastRun, err = s.runs.LastRun(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// deltaStdDev is the population standard deviation of the successive
// differences of the series.
func deltaStdDev(ratings []int) float64 {
	if len(ratings) < 2 {
		return 0
	}
	deltas := make([]float64, len(ratings)-1)
	var sum float64
	for i := 1; i < len(ratings); i++ {
		d := float64(ratings[i] - ratings[i-1])
		deltas[i-1] = d
		sum += d
	}
	mean := sum / float64(len(deltas))
	var variance float64
	for _, d := range deltas {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(deltas))
	return math.Sqrt(variance)
}
