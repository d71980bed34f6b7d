package models

import "time"

// Result is the outcome of a game in PGN notation.
type Result string

const (
	ResultWhiteWin Result = "1-0"
	ResultBlackWin Result = "0-1"
	ResultDraw     Result = "1/2-1/2"
)

// Valid reports whether r is one of the three decided results.
func (r Result) Valid() bool {
	return r == ResultWhiteWin || r == ResultBlackWin || r == ResultDraw
}

// GameRecord is a validated game as produced by the parser. Immutable once
// validated; identities are still raw names and codes until resolution.
type GameRecord struct {
	White       string
	Black       string
	WhiteTitle  string
	BlackTitle  string
	WhiteRating int
	BlackRating int
	Result      Result
	Date        time.Time
	ECOCode     string
	OpeningName string
	TimeControl string
	Moves       []string
}

// Player is a stable persistent identity keyed by its normalized name.
type Player struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"` // normalized natural key
	DisplayName   string     `json:"display_name"`
	Title         string     `json:"title,omitempty"`
	CurrentRating int        `json:"current_rating"`
	PeakRating    int        `json:"peak_rating"`
	GamesPlayed   int        `json:"games_played"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// Opening is keyed by ECO code and carries running aggregate counters.
type Opening struct {
	ID            int64      `json:"id"`
	ECOCode       string     `json:"eco_code"`
	Name          string     `json:"name"`
	TotalGames    int        `json:"total_games"`
	WhiteWins     int        `json:"white_wins"`
	BlackWins     int        `json:"black_wins"`
	Draws         int        `json:"draws"`
	TotalWhiteElo int64      `json:"total_white_elo"`
	TotalBlackElo int64      `json:"total_black_elo"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// RatingHistoryPoint is an append-only time-series sample.
type RatingHistoryPoint struct {
	PlayerID  int64     `json:"player_id"`
	PlayerKey string    `json:"-"` // batch-local key before identities exist
	Timestamp time.Time `json:"timestamp"`
	Rating    int       `json:"rating"`
}

// PlayerUpsert carries the identity fields and the incremental mutation a
// batch implies for one player.
type PlayerUpsert struct {
	Key           string // normalized natural key
	DisplayName   string
	Title         string
	CurrentRating int       // rating from the most recent game in the batch
	PeakRating    int       // max rating seen in the batch
	GamesDelta    int       // games-played increment
	LastPlayed    time.Time // date of the most recent game in the batch
}

// OpeningDelta is the incremental counter contribution of a batch for one
// opening; applied with additions, never by recomputation.
type OpeningDelta struct {
	ECOCode       string
	Name          string
	Games         int
	WhiteWins     int
	BlackWins     int
	Draws         int
	WhiteEloDelta int64
	BlackEloDelta int64
}

// ResolvedGame is a GameRecord whose player references have been rewritten
// to batch-local resolved keys. Numeric identities are assigned when the
// batch commits.
type ResolvedGame struct {
	GameRecord
	WhiteKey string
	BlackKey string
}

// Batch groups resolved games with the entity mutations they imply. It
// exists only between buffer drain and commit.
type Batch struct {
	Seq      int
	Games    []ResolvedGame
	Players  map[string]*PlayerUpsert
	Openings map[string]*OpeningDelta
	History  []RatingHistoryPoint
}

// CommitResult reports what a batch commit actually wrote.
type CommitResult struct {
	GamesInserted   int
	GamesDuplicated int
}

// ImportRun is the durable record of one import invocation.
type ImportRun struct {
	ID            int64      `json:"id"`
	Source        string     `json:"source"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	Processed     int        `json:"processed"`
	Accepted      int        `json:"accepted"`
	Rejected      int        `json:"rejected"`
	Committed     int        `json:"committed"`
	FailedBatches int        `json:"failed_batches"`
}
