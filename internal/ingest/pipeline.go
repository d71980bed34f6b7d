package ingest

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vytor/chessmetrics/internal/models"
	"github.com/vytor/chessmetrics/internal/pgn"
	"github.com/vytor/chessmetrics/internal/repository"
	"github.com/vytor/chessmetrics/internal/worker"
)

// progress holds the running counters shared between the read loop and the
// commit worker.
type progress struct {
	processed  atomic.Int64
	accepted   atomic.Int64
	rejected   atomic.Int64
	committed  atomic.Int64
	duplicates atomic.Int64
	batches    atomic.Int64
}

// Options configures a Pipeline run.
type Options struct {
	BatchMaxRecords int
	BatchMaxBytes   int
	CommitRetries   int
	CommitBackoff   time.Duration
	ProgressEvery   int
	MaxGames        int // 0 = unlimited
	Limits          pgn.Limits
}

// Summary reports the outcome of one import run.
type Summary struct {
	Processed     int
	Accepted      int
	Rejected      int
	Committed     int
	Duplicates    int
	Batches       int
	FailedBatches []FailedBatch
	Cancelled     bool
	Duration      time.Duration
}

// Pipeline wires parser, buffer, resolver and committer into one import
// run. Parsing and buffering overlap with the in-flight commit, but at
// most one batch commit runs at a time so commit order is preserved.
type Pipeline struct {
	store repository.BatchWriter
	opts  Options
}

func NewPipeline(store repository.BatchWriter, opts Options) *Pipeline {
	return &Pipeline{store: store, opts: opts}
}

// Run imports one PGN file. Cancelling ctx stops the intake of new input;
// the batch already handed to the committer still finishes, preserving the
// all-or-nothing batch invariant.
func (p *Pipeline) Run(ctx context.Context, path string) (*Summary, error) {
	in, err := pgn.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()
	return p.run(ctx, in)
}

func (p *Pipeline) run(ctx context.Context, in io.Reader) (*Summary, error) {
	log := zerolog.Ctx(ctx)
	start := time.Now()

	prog := &progress{}
	parser := pgn.NewParser(p.opts.Limits)
	buffer := NewBuffer(p.opts.BatchMaxRecords, p.opts.BatchMaxBytes)
	resolver := NewResolver()
	committer := NewCommitter(p.store, p.opts.CommitRetries, p.opts.CommitBackoff, prog, p.opts.ProgressEvery)

	// Commits keep running after cancellation so the in-flight batch lands
	// whole instead of aborting mid-transaction.
	commitCtx := log.WithContext(context.WithoutCancel(ctx))
	pool := worker.NewPool(1, 1, *log)
	pool.Start(commitCtx)

	scanner := pgn.NewScanner(in)
	seq := 0
	cancelled := false

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			cancelled = true
		default:
		}
		if cancelled || committer.Fatal() != nil {
			break
		}

		outcome := parser.ParseBlock(scanner.Block())
		prog.processed.Add(1)
		if !outcome.Accepted() {
			prog.rejected.Add(1)
			log.Debug().Str("reason", string(outcome.Rejection.Reason)).Msg("record rejected")
			continue
		}
		prog.accepted.Add(1)

		buffer.Add(*outcome.Record)
		if buffer.Full() {
			seq = p.flush(pool, committer, resolver, buffer, seq)
			log.Debug().Int("batch", seq).Int("commit_queue", pool.QueueSize()).Msg("batch handed to commit lane")
		}

		if p.opts.MaxGames > 0 && parser.Accepted() >= p.opts.MaxGames {
			log.Info().Int("max_games", p.opts.MaxGames).Msg("reached max games limit")
			break
		}
	}
	scanErr := scanner.Err()

	// Trailing partial batch.
	seq = p.flush(pool, committer, resolver, buffer, seq)
	pool.Stop()

	summary := &Summary{
		Processed:     int(prog.processed.Load()),
		Accepted:      int(prog.accepted.Load()),
		Rejected:      int(prog.rejected.Load()),
		Committed:     int(prog.committed.Load()),
		Duplicates:    int(prog.duplicates.Load()),
		Batches:       int(prog.batches.Load()),
		FailedBatches: committer.FailedBatches(),
		Cancelled:     cancelled,
		Duration:      time.Since(start),
	}

	log.Info().
		Int("processed", summary.Processed).
		Int("accepted", summary.Accepted).
		Int("rejected", summary.Rejected).
		Int("committed", summary.Committed).
		Int("failed_batches", len(summary.FailedBatches)).
		Dur("duration", summary.Duration).
		Msg("import finished")

	if err := committer.Fatal(); err != nil {
		return summary, err
	}
	if scanErr != nil {
		return summary, fmt.Errorf("read input: %w", scanErr)
	}
	return summary, nil
}

// flush drains the buffer, resolves entities and hands the batch to the
// commit lane. Submit blocks while a commit is in flight and the queue is
// full, which is what bounds memory.
func (p *Pipeline) flush(pool *worker.Pool, committer *Committer, resolver *Resolver, buffer *Buffer, seq int) int {
	records := buffer.Drain()
	if len(records) == 0 {
		return seq
	}
	seq++
	pool.Submit(&commitJob{committer: committer, batch: resolver.Resolve(seq, records)})
	return seq
}

type commitJob struct {
	committer *Committer
	batch     *models.Batch
}

func (j *commitJob) Run(ctx context.Context) error {
	return j.committer.Commit(ctx, j.batch)
}

func (j *commitJob) Name() string {
	return fmt.Sprintf("commit-batch-%d", j.batch.Seq)
}
