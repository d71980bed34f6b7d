package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	apperrors "github.com/vytor/chessmetrics/internal/errors"
	"github.com/vytor/chessmetrics/internal/models"
	"github.com/vytor/chessmetrics/internal/repository"
)

// FailedBatch retains a batch whose commit exhausted its retries, so its
// contents can be inspected after the run.
type FailedBatch struct {
	Batch *models.Batch
	Err   error
}

// Committer writes resolved batches through a BatchWriter with bounded
// exponential-backoff retries. A failed batch is recorded and the pipeline
// continues; only a store that stays unreachable is fatal.
type Committer struct {
	store          repository.BatchWriter
	retries        int
	initialBackoff time.Duration
	progress       *progress
	progressEvery  int

	mu     sync.Mutex
	failed []FailedBatch
	fatal  error
}

func NewCommitter(store repository.BatchWriter, retries int, initialBackoff time.Duration, prog *progress, progressEvery int) *Committer {
	if retries < 0 {
		retries = 0
	}
	if initialBackoff <= 0 {
		initialBackoff = 250 * time.Millisecond
	}
	if progressEvery <= 0 {
		progressEvery = 10
	}
	return &Committer{
		store:          store,
		retries:        retries,
		initialBackoff: initialBackoff,
		progress:       prog,
		progressEvery:  progressEvery,
	}
}

// Commit writes one batch, retrying with backoff. It returns an error only
// when the store is unreachable after retries; other commit failures are
// retained and reported through FailedBatches.
func (c *Committer) Commit(ctx context.Context, batch *models.Batch) error {
	log := zerolog.Ctx(ctx).With().Int("batch", batch.Seq).Int("games", len(batch.Games)).Logger()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.retries)), ctx)

	var res models.CommitResult
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		r, err := c.store.CommitBatch(ctx, batch)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("batch commit attempt failed")
			return err
		}
		res = r
		return nil
	}, policy)

	if err != nil {
		commitErr := apperrors.NewCommitFailure(batch.Seq, err)
		c.mu.Lock()
		c.failed = append(c.failed, FailedBatch{Batch: batch, Err: commitErr})
		c.mu.Unlock()

		if apperrors.HasCode(err, apperrors.ErrCodeStoreUnavailable) {
			c.mu.Lock()
			c.fatal = commitErr
			c.mu.Unlock()
			log.Error().Err(err).Msg("store unavailable, giving up")
			return commitErr
		}
		log.Error().Err(err).Msg("batch commit failed after retries, continuing")
		return nil
	}

	batches := c.progress.batches.Add(1)
	c.progress.committed.Add(int64(res.GamesInserted))
	c.progress.duplicates.Add(int64(res.GamesDuplicated))
	log.Debug().Int("inserted", res.GamesInserted).Int("duplicates", res.GamesDuplicated).Msg("batch committed")

	if batches%int64(c.progressEvery) == 0 {
		log.Info().
			Int64("processed", c.progress.processed.Load()).
			Int64("accepted", c.progress.accepted.Load()).
			Int64("rejected", c.progress.rejected.Load()).
			Int64("committed", c.progress.committed.Load()).
			Int64("batches", batches).
			Msg("import progress")
	}
	return nil
}

// Fatal returns the error that should terminate the run, if any.
func (c *Committer) Fatal() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatal
}

// FailedBatches returns the batches whose commits exhausted retries, with
// their contents preserved for inspection.
func (c *Committer) FailedBatches() []FailedBatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FailedBatch, len(c.failed))
	copy(out, c.failed)
	return out
}
