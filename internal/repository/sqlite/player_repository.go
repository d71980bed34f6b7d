package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"

	"github.com/vytor/chessmetrics/internal/models"
	"github.com/vytor/chessmetrics/internal/repository"
)

type playerRepository struct {
	db *sql.DB
}

// NewPlayerRepository creates a new PlayerRepository implementation
func NewPlayerRepository(db *sql.DB) repository.PlayerRepository {
	return &playerRepository{db: db}
}

// GetByName looks a player up by normalized natural key. A missing player
// is (nil, nil).
func (r *playerRepository) GetByName(ctx context.Context, name string) (*models.Player, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "player_repo").Logger()
	log.Debug().Str("name", name).Msg("getting player by name")

	var (
		p     models.Player
		title sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
SELECT id, name, display_name, title, current_rating, peak_rating, games_played, created_at, updated_at
FROM players
WHERE name = ?
`, name).Scan(&p.ID, &p.Name, &p.DisplayName, &title, &p.CurrentRating, &p.PeakRating, &p.GamesPlayed, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug().Str("name", name).Msg("player not found")
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to get player")
		return nil, classify(err)
	}
	p.Title = title.String
	return &p, nil
}
