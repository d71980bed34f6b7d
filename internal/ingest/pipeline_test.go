package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vytor/chessmetrics/internal/errors"
	"github.com/vytor/chessmetrics/internal/models"
	"github.com/vytor/chessmetrics/internal/pgn"
	"github.com/vytor/chessmetrics/internal/testutil/mocks"
)

func gameBlock(white, black, result string) string {
	return fmt.Sprintf(`[Event "test"]
[Date "2024.01.15"]
[White "%s"]
[Black "%s"]
[Result "%s"]
[WhiteElo "1500"]
[BlackElo "1600"]
[ECO "C50"]
[Opening "Italian Game"]
[TimeControl "300+2"]

1. e4 e5 2. Nf3 Nc6 3. Bc4 %s

`, white, black, result, result)
}

func testOptions() Options {
	return Options{
		BatchMaxRecords: 2,
		BatchMaxBytes:   1 << 20,
		CommitRetries:   1,
		CommitBackoff:   time.Millisecond,
		ProgressEvery:   10,
		Limits:          pgn.DefaultLimits(),
	}
}

func TestPipeline_MalformedRecordDoesNotAbort(t *testing.T) {
	input := gameBlock("a", "b", "1-0") +
		"[Event \"broken\"]\nnot a game\n\n" +
		gameBlock("c", "d", "0-1") +
		gameBlock("e", "f", "1/2-1/2")

	writer := new(mocks.MockBatchWriter)
	writer.On("CommitBatch", mock.Anything, mock.Anything).
		Return(models.CommitResult{GamesInserted: 2}, nil).Once()
	writer.On("CommitBatch", mock.Anything, mock.Anything).
		Return(models.CommitResult{GamesInserted: 1}, nil).Once()

	p := NewPipeline(writer, testOptions())
	summary, err := p.run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 3, summary.Accepted)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, 3, summary.Committed)
	assert.Equal(t, 2, summary.Batches)
	assert.Empty(t, summary.FailedBatches)
	assert.False(t, summary.Cancelled)
	writer.AssertExpectations(t)
}

func TestPipeline_MaxGamesCap(t *testing.T) {
	input := gameBlock("a", "b", "1-0") +
		gameBlock("c", "d", "0-1") +
		gameBlock("e", "f", "1-0")

	writer := new(mocks.MockBatchWriter)
	writer.On("CommitBatch", mock.Anything, mock.Anything).
		Return(models.CommitResult{GamesInserted: 2}, nil).Once()

	opts := testOptions()
	opts.MaxGames = 2

	p := NewPipeline(writer, opts)
	summary, err := p.run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Accepted)
	assert.Equal(t, 2, summary.Committed)
	writer.AssertExpectations(t)
}

func TestPipeline_StoreUnavailableStopsRun(t *testing.T) {
	input := gameBlock("a", "b", "1-0") +
		gameBlock("c", "d", "0-1") +
		gameBlock("e", "f", "1-0")

	writer := new(mocks.MockBatchWriter)
	writer.On("CommitBatch", mock.Anything, mock.Anything).
		Return(models.CommitResult{}, apperrors.NewStoreUnavailable(assert.AnError))

	p := NewPipeline(writer, testOptions())
	summary, err := p.run(context.Background(), strings.NewReader(input))

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCommitFailure))
	assert.Equal(t, 0, summary.Committed)
	assert.NotEmpty(t, summary.FailedBatches)
}

// captureWriter records the estimated footprint of every batch it is
// handed, standing in for a store during memory-bound runs.
type captureWriter struct {
	mu         sync.Mutex
	batchBytes []int
	totalGames int
}

func (w *captureWriter) CommitBatch(_ context.Context, batch *models.Batch) (models.CommitResult, error) {
	var bytes int
	for _, g := range batch.Games {
		bytes += estimateSize(g.GameRecord)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batchBytes = append(w.batchBytes, bytes)
	w.totalGames += len(batch.Games)
	return models.CommitResult{GamesInserted: len(batch.Games)}, nil
}

func TestPipeline_MemoryCeilingHoldsOnLargeInput(t *testing.T) {
	const games = 500

	var input strings.Builder
	for i := 0; i < games; i++ {
		input.WriteString(gameBlock(fmt.Sprintf("white%d", i), fmt.Sprintf("black%d", i), "1-0"))
	}

	writer := &captureWriter{}
	opts := testOptions()
	opts.BatchMaxRecords = 1 << 20 // only the byte ceiling binds
	opts.BatchMaxBytes = 2048

	p := NewPipeline(writer, opts)
	summary, err := p.run(context.Background(), strings.NewReader(input.String()))
	require.NoError(t, err)

	assert.Equal(t, games, summary.Accepted)
	assert.Equal(t, games, writer.totalGames, "every accepted game reaches the store")
	require.Greater(t, len(writer.batchBytes), 10, "a small ceiling must force many flushes")

	// No drained batch may exceed the ceiling by more than the single
	// record that tripped it.
	worstRecord := estimateSize(testRecord("white999", "black999"))
	for i, bytes := range writer.batchBytes {
		assert.LessOrEqual(t, bytes, opts.BatchMaxBytes+worstRecord, "batch %d overflowed the ceiling", i)
	}
}

func TestPipeline_CancellationStopsIntake(t *testing.T) {
	input := gameBlock("a", "b", "1-0") + gameBlock("c", "d", "0-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before any input is read

	writer := new(mocks.MockBatchWriter)
	p := NewPipeline(writer, testOptions())
	summary, err := p.run(ctx, strings.NewReader(input))
	require.NoError(t, err)

	assert.True(t, summary.Cancelled)
	assert.Equal(t, 0, summary.Accepted)
	writer.AssertNotCalled(t, "CommitBatch", mock.Anything, mock.Anything)
}
