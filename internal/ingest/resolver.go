package ingest

import (
	"strings"

	"github.com/vytor/chessmetrics/internal/models"
)

// NormalizeName builds the natural key for a player. Case and surrounding
// whitespace variants of the same name resolve to one identity; the
// first-seen raw spelling is kept as the display name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolver rewrites a drained batch of game records so that raw player
// names become batch-local resolved keys, and derives the Player and
// Opening upserts the batch implies. Resolution is deterministic within a
// batch: every occurrence of the same natural key maps to the same entry.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

func (r *Resolver) Resolve(seq int, records []models.GameRecord) *models.Batch {
	resolved := make([]models.ResolvedGame, 0, len(records))
	for _, rec := range records {
		resolved = append(resolved, models.ResolvedGame{
			GameRecord: rec,
			WhiteKey:   NormalizeName(rec.White),
			BlackKey:   NormalizeName(rec.Black),
		})
	}
	return models.BuildBatch(seq, resolved)
}
