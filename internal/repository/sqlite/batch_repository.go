package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/vytor/chessmetrics/internal/models"
	"github.com/vytor/chessmetrics/internal/repository"
)

type batchRepository struct {
	db *sql.DB
}

// NewBatchRepository creates a new BatchWriter implementation
func NewBatchRepository(db *sql.DB) repository.BatchWriter {
	return &batchRepository{db: db}
}

// CommitBatch writes the whole batch in one transaction. Games whose
// natural key already exists are skipped, and the player, opening and
// rating-history mutations are re-derived from only the games actually
// inserted, so a re-run over the same file never double-counts.
func (r *batchRepository) CommitBatch(ctx context.Context, batch *models.Batch) (models.CommitResult, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "batch_repo").Int("batch", batch.Seq).Logger()
	log.Debug().Int("games", len(batch.Games)).Int("players", len(batch.Players)).Msg("committing batch")

	var res models.CommitResult
	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		now := time.Now()

		ids, err := upsertPlayerIdentities(ctx, tx, batch, now)
		if err != nil {
			return fmt.Errorf("upsert players: %w", err)
		}

		inserted, err := insertGames(ctx, tx, batch, ids, now)
		if err != nil {
			return fmt.Errorf("insert games: %w", err)
		}
		res.GamesInserted = len(inserted)
		res.GamesDuplicated = len(batch.Games) - len(inserted)

		deltas := batch
		if res.GamesDuplicated > 0 {
			deltas = models.BuildBatch(batch.Seq, inserted)
		}

		if err := applyPlayerDeltas(ctx, tx, deltas, ids, now); err != nil {
			return fmt.Errorf("update players: %w", err)
		}
		if err := applyOpeningDeltas(ctx, tx, deltas, now); err != nil {
			return fmt.Errorf("update openings: %w", err)
		}
		if err := appendRatingHistory(ctx, tx, deltas, ids); err != nil {
			return fmt.Errorf("append rating history: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("batch commit rolled back")
		return models.CommitResult{}, classify(err)
	}

	log.Debug().Int("inserted", res.GamesInserted).Int("duplicates", res.GamesDuplicated).Msg("batch committed")
	return res, nil
}

// upsertPlayerIdentities ensures a row exists for every player referenced
// by the batch and returns the natural-key to id mapping. Counters are not
// touched here; they are applied from the insert-restricted deltas.
func upsertPlayerIdentities(ctx context.Context, tx *sql.Tx, batch *models.Batch, now time.Time) (map[string]int64, error) {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO players (name, display_name, title, current_rating, peak_rating, games_played, created_at)
VALUES (?, ?, NULLIF(?, ''), ?, ?, 0, ?)
ON CONFLICT(name) DO UPDATE SET name = excluded.name
RETURNING id
`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make(map[string]int64, len(batch.Players))
	for _, key := range sortedPlayerKeys(batch) {
		p := batch.Players[key]
		var id int64
		if err := stmt.QueryRowContext(ctx, p.Key, p.DisplayName, p.Title, p.CurrentRating, p.PeakRating, now).Scan(&id); err != nil {
			return nil, err
		}
		ids[key] = id
	}
	return ids, nil
}

func insertGames(ctx context.Context, tx *sql.Tx, batch *models.Batch, ids map[string]int64, now time.Time) ([]models.ResolvedGame, error) {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO games (
    white_player_id, black_player_id, white_rating, black_rating,
    result, date, eco_code, time_control, move_count, moves, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(white_player_id, black_player_id, date, move_count) DO NOTHING
`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var inserted []models.ResolvedGame
	for _, g := range batch.Games {
		whiteID, ok := ids[g.WhiteKey]
		if !ok {
			return nil, fmt.Errorf("unresolved player key %q", g.WhiteKey)
		}
		blackID, ok := ids[g.BlackKey]
		if !ok {
			return nil, fmt.Errorf("unresolved player key %q", g.BlackKey)
		}
		r, err := stmt.ExecContext(ctx,
			whiteID, blackID, g.WhiteRating, g.BlackRating,
			string(g.Result), g.Date, g.ECOCode, g.TimeControl,
			len(g.Moves), joinMoves(g.Moves), now,
		)
		if err != nil {
			return nil, err
		}
		if n, err := r.RowsAffected(); err == nil && n > 0 {
			inserted = append(inserted, g)
		}
	}
	return inserted, nil
}

func applyPlayerDeltas(ctx context.Context, tx *sql.Tx, deltas *models.Batch, ids map[string]int64, now time.Time) error {
	stmt, err := tx.PrepareContext(ctx, `
UPDATE players
SET current_rating = ?,
    peak_rating = MAX(peak_rating, ?),
    games_played = games_played + ?,
    title = COALESCE(title, NULLIF(?, '')),
    updated_at = ?
WHERE id = ?
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, key := range sortedPlayerKeys(deltas) {
		p := deltas.Players[key]
		if _, err := stmt.ExecContext(ctx, p.CurrentRating, p.PeakRating, p.GamesDelta, p.Title, now, ids[key]); err != nil {
			return err
		}
	}
	return nil
}

func applyOpeningDeltas(ctx context.Context, tx *sql.Tx, deltas *models.Batch, now time.Time) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO openings (eco_code, name, total_games, white_wins, black_wins, draws, total_white_elo, total_black_elo, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(eco_code) DO UPDATE SET
    name = excluded.name,
    total_games = openings.total_games + excluded.total_games,
    white_wins = openings.white_wins + excluded.white_wins,
    black_wins = openings.black_wins + excluded.black_wins,
    draws = openings.draws + excluded.draws,
    total_white_elo = openings.total_white_elo + excluded.total_white_elo,
    total_black_elo = openings.total_black_elo + excluded.total_black_elo,
    updated_at = excluded.updated_at
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	codes := make([]string, 0, len(deltas.Openings))
	for code := range deltas.Openings {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		o := deltas.Openings[code]
		if _, err := stmt.ExecContext(ctx, o.ECOCode, o.Name, o.Games, o.WhiteWins, o.BlackWins, o.Draws, o.WhiteEloDelta, o.BlackEloDelta, now); err != nil {
			return err
		}
	}
	return nil
}

func appendRatingHistory(ctx context.Context, tx *sql.Tx, deltas *models.Batch, ids map[string]int64) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rating_history (player_id, ts, rating) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, pt := range deltas.History {
		id, ok := ids[pt.PlayerKey]
		if !ok {
			return fmt.Errorf("unresolved player key %q", pt.PlayerKey)
		}
		if _, err := stmt.ExecContext(ctx, id, pt.Timestamp, pt.Rating); err != nil {
			return err
		}
	}
	return nil
}

func sortedPlayerKeys(b *models.Batch) []string {
	keys := make([]string, 0, len(b.Players))
	for key := range b.Players {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
