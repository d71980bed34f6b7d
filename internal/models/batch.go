package models

import "time"

// BuildBatch derives the Player and Opening mutations and rating-history
// appends implied by a set of resolved games. The committer reuses it to
// restrict mutations to the games a store actually accepted, so duplicate
// games never inflate counters.
func BuildBatch(seq int, games []ResolvedGame) *Batch {
	b := &Batch{
		Seq:      seq,
		Games:    games,
		Players:  make(map[string]*PlayerUpsert),
		Openings: make(map[string]*OpeningDelta),
	}
	for _, g := range games {
		b.addPlayer(g.WhiteKey, g.White, g.WhiteTitle, g.WhiteRating, g.Date)
		b.addPlayer(g.BlackKey, g.Black, g.BlackTitle, g.BlackRating, g.Date)
		b.addOpening(g)
		b.History = append(b.History,
			RatingHistoryPoint{PlayerKey: g.WhiteKey, Timestamp: g.Date, Rating: g.WhiteRating},
			RatingHistoryPoint{PlayerKey: g.BlackKey, Timestamp: g.Date, Rating: g.BlackRating},
		)
	}
	return b
}

func (b *Batch) addPlayer(key, display, title string, rating int, played time.Time) {
	p, ok := b.Players[key]
	if !ok {
		b.Players[key] = &PlayerUpsert{
			Key:           key,
			DisplayName:   display,
			Title:         title,
			CurrentRating: rating,
			PeakRating:    rating,
			GamesDelta:    1,
			LastPlayed:    played,
		}
		return
	}
	p.GamesDelta++
	if rating > p.PeakRating {
		p.PeakRating = rating
	}
	// The most recent game wins; on equal dates the later occurrence does.
	if !played.Before(p.LastPlayed) {
		p.CurrentRating = rating
		p.LastPlayed = played
	}
	if p.Title == "" {
		p.Title = title
	}
}

func (b *Batch) addOpening(g ResolvedGame) {
	o, ok := b.Openings[g.ECOCode]
	if !ok {
		o = &OpeningDelta{ECOCode: g.ECOCode, Name: g.OpeningName}
		b.Openings[g.ECOCode] = o
	}
	o.Games++
	o.WhiteEloDelta += int64(g.WhiteRating)
	o.BlackEloDelta += int64(g.BlackRating)
	switch g.Result {
	case ResultWhiteWin:
		o.WhiteWins++
	case ResultBlackWin:
		o.BlackWins++
	case ResultDraw:
		o.Draws++
	}
}
