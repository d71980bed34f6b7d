package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vytor/chessmetrics/internal/config"
	"github.com/vytor/chessmetrics/internal/ingest"
	"github.com/vytor/chessmetrics/internal/models"
	"github.com/vytor/chessmetrics/internal/pgn"
	"github.com/vytor/chessmetrics/internal/repository"
)

// ImportService runs PGN imports and records each run.
type ImportService interface {
	Import(ctx context.Context, path string, maxGames int) (*ingest.Summary, error)
}

type importService struct {
	batches repository.BatchWriter
	runs    repository.RunRepository
	cfg     config.Config
}

// NewImportService creates a new ImportService
func NewImportService(batches repository.BatchWriter, runs repository.RunRepository, cfg config.Config) ImportService {
	return &importService{batches: batches, runs: runs, cfg: cfg}
}

// Import streams the file at path through the ingestion pipeline. The run
// record is written even when the run ends early, so a resumed import can
// tell what the previous attempt got through.
func (s *importService) Import(ctx context.Context, path string, maxGames int) (*ingest.Summary, error) {
	log := zerolog.Ctx(ctx).With().Str("source", path).Logger()
	ctx = log.WithContext(ctx)

	log.Info().Int("max_games", maxGames).Msg("starting import")
	started := time.Now()

	pipeline := ingest.NewPipeline(s.batches, ingest.Options{
		BatchMaxRecords: s.cfg.BatchMaxRecords,
		BatchMaxBytes:   s.cfg.BatchMaxMemoryMB << 20,
		CommitRetries:   s.cfg.CommitRetries,
		CommitBackoff:   s.cfg.CommitBackoff,
		ProgressEvery:   s.cfg.ProgressEveryBatches,
		MaxGames:        maxGames,
		Limits: pgn.Limits{
			RatingMin: s.cfg.RatingMin,
			RatingMax: s.cfg.RatingMax,
			MaxPlies:  s.cfg.MaxPlies,
		},
	})

	summary, runErr := pipeline.Run(ctx, path)
	if summary == nil {
		return nil, runErr
	}

	finished := time.Now()
	run := models.ImportRun{
		Source:        path,
		StartedAt:     started,
		FinishedAt:    &finished,
		Processed:     summary.Processed,
		Accepted:      summary.Accepted,
		Rejected:      summary.Rejected,
		Committed:     summary.Committed,
		FailedBatches: len(summary.FailedBatches),
	}
	// Record under a fresh context: the run row must land even when the
	// import was cancelled.
	if _, err := s.runs.InsertRun(log.WithContext(context.WithoutCancel(ctx)), run); err != nil {
		log.Error().Err(err).Msg("failed to record import run")
	}

	return summary, runErr
}
