package models

import "time"

// OpeningStatsParams filters the opening success-rate query.
type OpeningStatsParams struct {
	MinGames    int
	TimeControl string
	Limit       int
}

type OpeningSuccessRate struct {
	ECOCode      string  `json:"eco_code"`
	OpeningName  string  `json:"opening_name"`
	TotalGames   int     `json:"total_games"`
	WinRateWhite float64 `json:"win_rate_white"`
	WinRateBlack float64 `json:"win_rate_black"`
	DrawRate     float64 `json:"draw_rate"`
	AvgRating    float64 `json:"avg_rating"`
}

// TimeControlStat is the win/draw/loss distribution for one time-control class.
type TimeControlStat struct {
	TimeControl  string  `json:"time_control"`
	TotalGames   int     `json:"total_games"`
	WhiteWins    int     `json:"white_wins"`
	BlackWins    int     `json:"black_wins"`
	Draws        int     `json:"draws"`
	WhiteWinRate float64 `json:"white_win_rate"`
	BlackWinRate float64 `json:"black_win_rate"`
	DrawRate     float64 `json:"draw_rate"`
	AvgRating    float64 `json:"avg_rating"`
}

// RepertoireParams filters the player opening-repertoire query.
type RepertoireParams struct {
	PlayerID    int64
	Color       string // "white" or "black"
	MinGames    int
	TimeControl string
}

type RepertoireEntry struct {
	ECOCode     string  `json:"eco_code"`
	OpeningName string  `json:"opening_name"`
	GamesPlayed int     `json:"games_played"`
	Wins        int     `json:"wins"`
	Draws       int     `json:"draws"`
	Losses      int     `json:"losses"`
	ScoreRate   float64 `json:"score_rate"` // win=1, draw=0.5, loss=0
}

// PlayerVolatility is the standard deviation of successive rating deltas.
type PlayerVolatility struct {
	PlayerID   int64   `json:"player_id"`
	Name       string  `json:"name"`
	Points     int     `json:"points"`
	Volatility float64 `json:"volatility"`
}

// RatingSeries is one player's ordered rating history, as fetched for the
// volatility computation.
type RatingSeries struct {
	PlayerID int64
	Name     string
	Ratings  []int
}

// StoreCounts summarizes the committed collections for the status command.
type StoreCounts struct {
	Players       int `json:"players"`
	Games         int `json:"games"`
	Openings      int `json:"openings"`
	RatingHistory int `json:"rating_history"`
}

// TrendParams caps the rating-trend query.
type TrendParams struct {
	PlayerID int64
	Limit    int
}

// TrendPoint is one sample of a player's rating trajectory.
type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Rating    int       `json:"rating"`
}
