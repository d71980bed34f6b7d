package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vytor/chessmetrics/internal/config"
	"github.com/vytor/chessmetrics/internal/logx"
	"github.com/vytor/chessmetrics/internal/models"
	"github.com/vytor/chessmetrics/internal/repository/sqlite"
	"github.com/vytor/chessmetrics/internal/services"
)

// app holds what every command needs once the store is open.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	store *sqlite.Store
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "chessmetrics",
		Short:         "Ingest PGN archives and query chess statistics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.Load()
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a.log = logx.New(a.cfg.LogLevel)
			return nil
		},
	}

	root.AddCommand(
		newSetupCommand(a),
		newImportCommand(a),
		newOpeningStatsCommand(a),
		newTimeControlStatsCommand(a),
		newPlayerCommand(a),
		newVolatilityCommand(a),
		newStatusCommand(a),
	)
	return root
}

// open connects to the store and applies pending migrations. Callers own
// the returned close function.
func (a *app) open(ctx context.Context) (func(), error) {
	store, err := sqlite.Open(a.log.WithContext(ctx), a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a.store = store
	return func() {
		if err := store.Close(); err != nil {
			a.log.Error().Err(err).Msg("failed to close store")
		}
	}, nil
}

func newSetupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the database and apply migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			closeStore, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			fmt.Printf("Database ready at %s\n", a.cfg.DBPath)
			return nil
		},
	}
}

func newImportCommand(a *app) *cobra.Command {
	var maxGames int

	cmd := &cobra.Command{
		Use:   "import <file.pgn[.zst]>",
		Short: "Stream a PGN archive into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// SIGINT stops the intake; the batch already handed off still
			// commits, so the store stays consistent and a rerun resumes.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx = a.log.WithContext(ctx)

			closeStore, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := services.NewImportService(a.store.Batches(), a.store.Runs(), a.cfg)
			summary, err := svc.Import(ctx, args[0], maxGames)
			if summary != nil {
				fmt.Printf("Processed:  %d\n", summary.Processed)
				fmt.Printf("Accepted:   %d\n", summary.Accepted)
				fmt.Printf("Rejected:   %d\n", summary.Rejected)
				fmt.Printf("Committed:  %d\n", summary.Committed)
				fmt.Printf("Duplicates: %d\n", summary.Duplicates)
				fmt.Printf("Batches:    %d\n", summary.Batches)
				fmt.Printf("Duration:   %s\n", summary.Duration.Round(time.Millisecond))
				if summary.Cancelled {
					fmt.Println("Import interrupted; rerun to resume.")
				}
				for _, fb := range summary.FailedBatches {
					fmt.Printf("Batch %d failed after retries: %v\n", fb.Batch.Seq, fb.Err)
				}
			}
			return err
		},
	}
	cmd.Flags().IntVar(&maxGames, "max-games", 0, "stop after accepting this many games (0 = unlimited)")
	return cmd
}

func newOpeningStatsCommand(a *app) *cobra.Command {
	var (
		minGames    int
		timeControl string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "opening-stats",
		Short: "Success rates per opening",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.log.WithContext(cmd.Context())
			closeStore, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := a.statsService()
			stats, err := svc.OpeningStats(ctx, models.OpeningStatsParams{
				MinGames:    minGames,
				TimeControl: timeControl,
				Limit:       limit,
			})
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Println("No openings match the filters.")
				return nil
			}
			fmt.Printf("%-8s %-36s %8s %7s %7s %7s %9s\n", "ECO", "OPENING", "GAMES", "WHITE", "BLACK", "DRAW", "AVG ELO")
			for _, s := range stats {
				fmt.Printf("%-8s %-36s %8d %6.1f%% %6.1f%% %6.1f%% %9.0f\n",
					s.ECOCode, trunc(s.OpeningName, 36), s.TotalGames,
					100*s.WinRateWhite, 100*s.WinRateBlack, 100*s.DrawRate, s.AvgRating)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&minGames, "min-games", 1, "hide openings with fewer games")
	cmd.Flags().StringVar(&timeControl, "time-control", "", "restrict to one class (bullet, blitz, rapid, classical)")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of rows (0 = all)")
	return cmd
}

func newTimeControlStatsCommand(a *app) *cobra.Command {
	var minGames int

	cmd := &cobra.Command{
		Use:   "time-control-stats",
		Short: "Outcome distribution per time-control class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.log.WithContext(cmd.Context())
			closeStore, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			stats, err := a.statsService().TimeControlStats(ctx, minGames)
			if err != nil {
				return err
			}
			fmt.Printf("%-12s %8s %7s %7s %7s %9s\n", "CLASS", "GAMES", "WHITE", "BLACK", "DRAW", "AVG ELO")
			for _, s := range stats {
				fmt.Printf("%-12s %8d %6.1f%% %6.1f%% %6.1f%% %9.0f\n",
					s.TimeControl, s.TotalGames,
					100*s.WhiteWinRate, 100*s.BlackWinRate, 100*s.DrawRate, s.AvgRating)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&minGames, "min-games", 0, "hide classes with fewer games")
	return cmd
}

func newPlayerCommand(a *app) *cobra.Command {
	var (
		limit    int
		color    string
		minGames int
	)

	cmd := &cobra.Command{
		Use:   "player <name>",
		Short: "Rating trend and opening repertoire for one player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.log.WithContext(cmd.Context())
			closeStore, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := a.statsService()
			player, trend, err := svc.RatingTrend(ctx, args[0], limit)
			if err != nil {
				return err
			}

			title := player.Title
			if title != "" {
				title += " "
			}
			fmt.Printf("%s%s  rating %d (peak %d), %d games\n",
				title, player.DisplayName, player.CurrentRating, player.PeakRating, player.GamesPlayed)

			fmt.Println("\nRating trend:")
			for _, p := range trend {
				fmt.Printf("  %s  %d\n", p.Timestamp.Format("2006-01-02"), p.Rating)
			}

			entries, err := svc.Repertoire(ctx, args[0], models.RepertoireParams{
				Color:    color,
				MinGames: minGames,
			})
			if err != nil {
				return err
			}
			fmt.Printf("\nRepertoire as %s:\n", color)
			if len(entries) == 0 {
				fmt.Println("  no openings match the filters")
				return nil
			}
			fmt.Printf("  %-8s %-32s %6s %5s %5s %5s %7s\n", "ECO", "OPENING", "GAMES", "W", "D", "L", "SCORE")
			for _, e := range entries {
				fmt.Printf("  %-8s %-32s %6d %5d %5d %5d %6.1f%%\n",
					e.ECOCode, trunc(e.OpeningName, 32), e.GamesPlayed, e.Wins, e.Draws, e.Losses, 100*e.ScoreRate)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "most recent trend points to show (0 = all)")
	cmd.Flags().StringVar(&color, "color", "white", "repertoire color (white or black)")
	cmd.Flags().IntVar(&minGames, "min-games", 1, "hide openings with fewer games")
	return cmd
}

func newVolatilityCommand(a *app) *cobra.Command {
	var minPoints int

	cmd := &cobra.Command{
		Use:   "volatility",
		Short: "Players ranked by rating volatility",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.log.WithContext(cmd.Context())
			closeStore, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			players, err := a.statsService().Volatility(ctx, minPoints)
			if err != nil {
				return err
			}
			fmt.Printf("%-28s %8s %12s\n", "PLAYER", "POINTS", "VOLATILITY")
			for _, p := range players {
				fmt.Printf("%-28s %8d %12.2f\n", trunc(p.Name, 28), p.Points, p.Volatility)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&minPoints, "min-points", 5, "minimum rating history points per player")
	return cmd
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Store contents and the last import run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.log.WithContext(cmd.Context())
			closeStore, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			st, err := a.statsService().Status(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Players:        %d\n", st.Counts.Players)
			fmt.Printf("Games:          %d\n", st.Counts.Games)
			fmt.Printf("Openings:       %d\n", st.Counts.Openings)
			fmt.Printf("Rating history: %d\n", st.Counts.RatingHistory)
			if st.LastRun == nil {
				fmt.Println("No imports recorded.")
				return nil
			}
			r := st.LastRun
			fmt.Printf("Last import: %s at %s (processed %d, accepted %d, rejected %d, committed %d",
				r.Source, r.StartedAt.Format("2006-01-02 15:04:05"), r.Processed, r.Accepted, r.Rejected, r.Committed)
			if r.FailedBatches > 0 {
				fmt.Printf(", %d failed batches", r.FailedBatches)
			}
			fmt.Println(")")
			return nil
		},
	}
}

func (a *app) statsService() services.StatsService {
	return services.NewStatsService(a.store.Players(), a.store.RatingHistory(), a.store.Stats(), a.store.Runs(), a.cfg.QueryTimeout)
}

func trunc(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
