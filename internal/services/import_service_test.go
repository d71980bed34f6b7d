package services_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vytor/chessmetrics/internal/config"
	"github.com/vytor/chessmetrics/internal/services"
	"github.com/vytor/chessmetrics/internal/testutil"
)

const importFixture = `[Event "Rated Blitz game"]
[Date "2024.01.15"]
[White "alice"]
[Black "bob"]
[Result "1-0"]
[WhiteElo "1500"]
[BlackElo "1400"]
[ECO "C50"]
[Opening "Italian Game"]
[TimeControl "300+2"]

1. e4 e5 2. Nf3 Nc6 3. Bc4 1-0

[Event "Rated Blitz game"]
[Date "2024.01.16"]
[White "bob"]
[Black "alice"]
[Result "0-1"]
[WhiteElo "1390"]
[BlackElo "1510"]
[ECO "B01"]
[Opening "Scandinavian Defense"]
[TimeControl "300+2"]

1. e4 d5 2. exd5 Qxd5 0-1

[Event "broken"]
[White "x"]

garbage

`

func TestImportService_EndToEnd(t *testing.T) {
	ctx := testutil.Context(t)
	store := testutil.NewTestStore(t)

	path := filepath.Join(t.TempDir(), "games.pgn")
	require.NoError(t, os.WriteFile(path, []byte(importFixture), 0o644))

	cfg := config.Load()
	svc := services.NewImportService(store.Batches(), store.Runs(), cfg)

	summary, err := svc.Import(ctx, path, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Accepted)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, 2, summary.Committed)
	assert.Empty(t, summary.FailedBatches)

	alice, err := store.Players().GetByName(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, alice)
	assert.Equal(t, 2, alice.GamesPlayed)
	assert.Equal(t, 1510, alice.CurrentRating)

	run, err := store.Runs().LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, path, run.Source)
	assert.Equal(t, 2, run.Committed)
	require.NotNil(t, run.FinishedAt)
}

func TestImportService_RerunIsIdempotent(t *testing.T) {
	ctx := testutil.Context(t)
	store := testutil.NewTestStore(t)

	path := filepath.Join(t.TempDir(), "games.pgn")
	require.NoError(t, os.WriteFile(path, []byte(importFixture), 0o644))

	svc := services.NewImportService(store.Batches(), store.Runs(), config.Load())

	_, err := svc.Import(ctx, path, 0)
	require.NoError(t, err)

	summary, err := svc.Import(ctx, path, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Committed)
	assert.Equal(t, 2, summary.Duplicates)

	counts, err := store.Stats().Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Games)
	assert.Equal(t, 4, counts.RatingHistory)

	alice, err := store.Players().GetByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, alice.GamesPlayed, "rerun must not double-count")
}
