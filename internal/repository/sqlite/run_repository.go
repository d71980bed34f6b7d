package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vytor/chessmetrics/internal/models"
	"github.com/vytor/chessmetrics/internal/repository"
)

type runRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository implementation
func NewRunRepository(db *sql.DB) repository.RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) InsertRun(ctx context.Context, run models.ImportRun) (int64, error) {
	query := sqlBuilder.Insert("import_runs").
		Columns("source", "started_at", "finished_at", "processed", "accepted", "rejected", "committed", "failed_batches").
		Values(run.Source, run.StartedAt, run.FinishedAt, run.Processed, run.Accepted, run.Rejected, run.Committed, run.FailedBatches)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, classify(err)
	}
	return res.LastInsertId()
}

func (r *runRepository) LastRun(ctx context.Context) (*models.ImportRun, error) {
	query := sqlBuilder.Select("id", "source", "started_at", "finished_at", "processed", "accepted", "rejected", "committed", "failed_batches").
		From("import_runs").
		OrderBy("id DESC").
		Limit(1)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var run models.ImportRun
	err = r.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&run.ID, &run.Source, &run.StartedAt, &run.FinishedAt,
		&run.Processed, &run.Accepted, &run.Rejected, &run.Committed, &run.FailedBatches,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &run, nil
}
