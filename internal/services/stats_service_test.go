package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vytor/chessmetrics/internal/errors"
	"github.com/vytor/chessmetrics/internal/ingest"
	"github.com/vytor/chessmetrics/internal/models"
	"github.com/vytor/chessmetrics/internal/repository/sqlite"
	"github.com/vytor/chessmetrics/internal/services"
	"github.com/vytor/chessmetrics/internal/testutil"
)

func newStatsService(t *testing.T, store *sqlite.Store) services.StatsService {
	t.Helper()
	return services.NewStatsService(store.Players(), store.RatingHistory(), store.Stats(), store.Runs(), 30*time.Second)
}

func seedGames(t *testing.T, store *sqlite.Store, games ...models.ResolvedGame) {
	t.Helper()
	_, err := store.Batches().CommitBatch(testutil.Context(t), models.BuildBatch(1, games))
	require.NoError(t, err)
}

func game(white, black string, whiteRating, blackRating int, result models.Result, d int) models.ResolvedGame {
	return models.ResolvedGame{
		GameRecord: models.GameRecord{
			White: white, Black: black,
			WhiteRating: whiteRating, BlackRating: blackRating,
			Result: result, Date: time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC),
			ECOCode: "C50", OpeningName: "Italian Game",
			TimeControl: "blitz", Moves: []string{"e4", "e5", "Nf3", "Nc6"},
		},
		WhiteKey: ingest.NormalizeName(white),
		BlackKey: ingest.NormalizeName(black),
	}
}

func TestStatsService_RatingTrend_UnknownPlayer(t *testing.T) {
	ctx := testutil.Context(t)
	store := testutil.NewTestStore(t)
	svc := newStatsService(t, store)

	_, _, err := svc.RatingTrend(ctx, "nobody", 10)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestStatsService_RatingTrend_NormalizesLookup(t *testing.T) {
	ctx := testutil.Context(t)
	store := testutil.NewTestStore(t)
	seedGames(t, store,
		game("Alice", "bob", 1500, 1400, models.ResultWhiteWin, 1),
		game("Alice", "carol", 1520, 1450, models.ResultDraw, 2),
	)
	svc := newStatsService(t, store)

	player, trend, err := svc.RatingTrend(ctx, "  ALICE ", 0)
	require.NoError(t, err)
	assert.Equal(t, "Alice", player.DisplayName)
	require.Len(t, trend, 2)
	assert.Equal(t, 1500, trend[0].Rating)
	assert.Equal(t, 1520, trend[1].Rating)
}

func TestStatsService_Repertoire_RejectsBadColor(t *testing.T) {
	ctx := testutil.Context(t)
	store := testutil.NewTestStore(t)
	svc := newStatsService(t, store)

	_, err := svc.Repertoire(ctx, "alice", models.RepertoireParams{Color: "green"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestStatsService_Volatility(t *testing.T) {
	ctx := testutil.Context(t)
	store := testutil.NewTestStore(t)
	// alice swings: 1500, 1510, 1490, 1520; bob stays flat at 1400.
	seedGames(t, store,
		game("alice", "bob", 1500, 1400, models.ResultWhiteWin, 1),
		game("alice", "bob", 1510, 1400, models.ResultWhiteWin, 2),
		game("alice", "bob", 1490, 1400, models.ResultBlackWin, 3),
		game("alice", "bob", 1520, 1400, models.ResultWhiteWin, 4),
	)
	svc := newStatsService(t, store)

	players, err := svc.Volatility(ctx, 4)
	require.NoError(t, err)
	require.Len(t, players, 2)

	// Most volatile first.
	assert.Equal(t, "alice", players[0].Name)
	assert.Equal(t, 4, players[0].Points)
	// Deltas +10, -20, +30: population stddev of the swings.
	assert.InDelta(t, 20.548, players[0].Volatility, 1e-3)

	assert.Equal(t, "bob", players[1].Name)
	assert.InDelta(t, 0.0, players[1].Volatility, 1e-9)

	none, err := svc.Volatility(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStatsService_Status(t *testing.T) {
	ctx := testutil.Context(t)
	store := testutil.NewTestStore(t)
	seedGames(t, store, game("alice", "bob", 1500, 1400, models.ResultWhiteWin, 1))
	svc := newStatsService(t, store)

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Counts.Players)
	assert.Equal(t, 1, st.Counts.Games)
	assert.Nil(t, st.LastRun)
}
