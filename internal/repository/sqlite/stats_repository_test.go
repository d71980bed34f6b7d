package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vytor/chessmetrics/internal/models"
	"github.com/vytor/chessmetrics/internal/repository"
	"github.com/vytor/chessmetrics/internal/repository/sqlite"
	"github.com/vytor/chessmetrics/internal/testutil"
)

type StatsRepositorySuite struct {
	suite.Suite
	ctx   context.Context
	store *sqlite.Store
	repo  repository.StatsRepository
}

func (s *StatsRepositorySuite) SetupTest() {
	s.ctx = testutil.Context(s.T())
	s.store = testutil.NewTestStore(s.T())
	s.repo = s.store.Stats()
}

func (s *StatsRepositorySuite) commit(games ...models.ResolvedGame) {
	_, err := s.store.Batches().CommitBatch(s.ctx, models.BuildBatch(1, games))
	s.Require().NoError(err)
}

func (s *StatsRepositorySuite) TestOpeningSuccessRates_MinGamesThreshold() {
	// Five Italian games, one Scandinavian.
	games := []models.ResolvedGame{
		resolvedGame("a", "b", 1500, 1500, models.ResultWhiteWin, day(1), "C50"),
		resolvedGame("c", "d", 1500, 1500, models.ResultWhiteWin, day(2), "C50"),
		resolvedGame("e", "f", 1500, 1500, models.ResultBlackWin, day(3), "C50"),
		resolvedGame("g", "h", 1500, 1500, models.ResultDraw, day(4), "C50"),
		resolvedGame("i", "j", 1500, 1500, models.ResultDraw, day(5), "C50"),
		resolvedGame("k", "l", 1500, 1500, models.ResultWhiteWin, day(6), "B01"),
	}
	s.commit(games...)

	stats, err := s.repo.OpeningSuccessRates(s.ctx, models.OpeningStatsParams{MinGames: 2})
	s.Require().NoError(err)
	s.Require().Len(stats, 1, "B01 falls under the threshold")

	c50 := stats[0]
	s.Assert().Equal("C50", c50.ECOCode)
	s.Assert().Equal(5, c50.TotalGames)
	s.Assert().InDelta(0.4, c50.WinRateWhite, 1e-9)
	s.Assert().InDelta(0.2, c50.WinRateBlack, 1e-9)
	s.Assert().InDelta(0.4, c50.DrawRate, 1e-9)
	s.Assert().InDelta(1500, c50.AvgRating, 1e-9)
}

func (s *StatsRepositorySuite) TestOpeningSuccessRates_TimeControlFilter() {
	blitz := resolvedGame("a", "b", 1500, 1500, models.ResultWhiteWin, day(1), "C50")
	rapid := resolvedGame("c", "d", 1500, 1500, models.ResultBlackWin, day(2), "C50")
	rapid.TimeControl = "rapid"
	s.commit(blitz, rapid)

	stats, err := s.repo.OpeningSuccessRates(s.ctx, models.OpeningStatsParams{MinGames: 1, TimeControl: "rapid"})
	s.Require().NoError(err)
	s.Require().Len(stats, 1)
	s.Assert().Equal(1, stats[0].TotalGames)
	s.Assert().InDelta(1.0, stats[0].WinRateBlack, 1e-9)
}

func (s *StatsRepositorySuite) TestOpeningSuccessRates_OrderedByGamesDesc() {
	games := []models.ResolvedGame{
		resolvedGame("a", "b", 1500, 1500, models.ResultWhiteWin, day(1), "B01"),
		resolvedGame("c", "d", 1500, 1500, models.ResultWhiteWin, day(2), "C50"),
		resolvedGame("e", "f", 1500, 1500, models.ResultDraw, day(3), "C50"),
	}
	s.commit(games...)

	stats, err := s.repo.OpeningSuccessRates(s.ctx, models.OpeningStatsParams{MinGames: 1})
	s.Require().NoError(err)
	s.Require().Len(stats, 2)
	s.Assert().Equal("C50", stats[0].ECOCode)
	s.Assert().Equal("B01", stats[1].ECOCode)
}

func (s *StatsRepositorySuite) TestTimeControlStats() {
	blitz1 := resolvedGame("a", "b", 1400, 1400, models.ResultWhiteWin, day(1), "C50")
	blitz2 := resolvedGame("c", "d", 1600, 1600, models.ResultDraw, day(2), "C50")
	bullet := resolvedGame("e", "f", 2000, 2000, models.ResultBlackWin, day(3), "B01")
	bullet.TimeControl = "bullet"
	s.commit(blitz1, blitz2, bullet)

	stats, err := s.repo.TimeControlStats(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(stats, 2)

	s.Assert().Equal("blitz", stats[0].TimeControl)
	s.Assert().Equal(2, stats[0].TotalGames)
	s.Assert().InDelta(0.5, stats[0].WhiteWinRate, 1e-9)
	s.Assert().InDelta(0.5, stats[0].DrawRate, 1e-9)
	s.Assert().InDelta(1500, stats[0].AvgRating, 1e-9)

	s.Assert().Equal("bullet", stats[1].TimeControl)
	s.Assert().InDelta(1.0, stats[1].BlackWinRate, 1e-9)

	filtered, err := s.repo.TimeControlStats(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(filtered, 1)
	s.Assert().Equal("blitz", filtered[0].TimeControl)
}

func (s *StatsRepositorySuite) TestRepertoire() {
	games := []models.ResolvedGame{
		resolvedGame("alice", "b", 1500, 1500, models.ResultWhiteWin, day(1), "C50"),
		resolvedGame("alice", "c", 1500, 1500, models.ResultDraw, day(2), "C50"),
		resolvedGame("alice", "d", 1500, 1500, models.ResultBlackWin, day(3), "C50"),
		resolvedGame("alice", "e", 1500, 1500, models.ResultWhiteWin, day(4), "B01"),
		resolvedGame("f", "alice", 1500, 1500, models.ResultBlackWin, day(5), "D02"),
	}
	s.commit(games...)

	alice, err := s.store.Players().GetByName(s.ctx, "alice")
	s.Require().NoError(err)

	asWhite, err := s.repo.Repertoire(s.ctx, models.RepertoireParams{
		PlayerID: alice.ID, Color: "white", MinGames: 2,
	})
	s.Require().NoError(err)
	s.Require().Len(asWhite, 1, "B01 falls under the threshold")
	s.Assert().Equal("C50", asWhite[0].ECOCode)
	s.Assert().Equal(3, asWhite[0].GamesPlayed)
	s.Assert().Equal(1, asWhite[0].Wins)
	s.Assert().Equal(1, asWhite[0].Draws)
	s.Assert().Equal(1, asWhite[0].Losses)
	s.Assert().InDelta(0.5, asWhite[0].ScoreRate, 1e-9)

	asBlack, err := s.repo.Repertoire(s.ctx, models.RepertoireParams{
		PlayerID: alice.ID, Color: "black", MinGames: 1,
	})
	s.Require().NoError(err)
	s.Require().Len(asBlack, 1)
	s.Assert().Equal("D02", asBlack[0].ECOCode)
	s.Assert().Equal(1, asBlack[0].Wins, "a 0-1 result is a win for black")
}

func (s *StatsRepositorySuite) TestCounts_EmptyStore() {
	counts, err := s.repo.Counts(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal(models.StoreCounts{}, counts)
}

func TestStatsRepositorySuite(t *testing.T) {
	suite.Run(t, new(StatsRepositorySuite))
}
