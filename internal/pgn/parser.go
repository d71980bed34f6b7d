package pgn

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/corentings/chess/v2"

	"github.com/vytor/chessmetrics/internal/models"
)

var headerRe = regexp.MustCompile(`\[(\w+)\s+"([^"]*)"\]`)

// ParseTags extracts PGN header tags into a map
func ParseTags(raw string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(raw, "\n") {
		if !strings.HasPrefix(line, "[") {
			continue
		}
		m := headerRe.FindStringSubmatch(line)
		if len(m) == 3 {
			out[m[1]] = m[2]
		}
	}
	return out
}

// RejectReason classifies why a game block was not accepted.
type RejectReason string

const (
	RejectMissingTag  RejectReason = "missing_tag"
	RejectBadResult   RejectReason = "bad_result"
	RejectBadRating   RejectReason = "bad_rating"
	RejectBadDate     RejectReason = "bad_date"
	RejectBadMoveText RejectReason = "bad_move_text"
	RejectMoveCount   RejectReason = "bad_move_count"
)

// Rejection carries the reason and the offending raw block so a failed
// record can be inspected without aborting the run.
type Rejection struct {
	Reason RejectReason
	Raw    string
	Err    error
}

// Outcome is one record-or-rejection produced by the parser.
type Outcome struct {
	Record    *models.GameRecord
	Rejection *Rejection
}

func (o Outcome) Accepted() bool { return o.Record != nil }

// Limits bounds what the validator considers a plausible game.
type Limits struct {
	RatingMin int
	RatingMax int
	MaxPlies  int
}

func DefaultLimits() Limits {
	return Limits{RatingMin: 1, RatingMax: 3500, MaxPlies: 500}
}

// Parser validates raw game blocks and keeps running accepted/rejected
// counts. It holds no reference to the input, so arbitrarily large files
// stream through one block at a time.
type Parser struct {
	limits   Limits
	accepted int
	rejected int
}

func NewParser(limits Limits) *Parser {
	return &Parser{limits: limits}
}

func (p *Parser) Accepted() int { return p.accepted }
func (p *Parser) Rejected() int { return p.rejected }
func (p *Parser) Processed() int {
	return p.accepted + p.rejected
}

var requiredTags = []string{"White", "Black", "Result", "Date", "ECO", "WhiteElo", "BlackElo"}

// ParseBlock turns one raw game block into a validated GameRecord or a
// rejection with a reason code.
func (p *Parser) ParseBlock(raw string) Outcome {
	tags := ParseTags(raw)

	for _, tag := range requiredTags {
		if tags[tag] == "" {
			return p.reject(raw, RejectMissingTag, nil)
		}
	}

	result := models.Result(tags["Result"])
	if !result.Valid() {
		return p.reject(raw, RejectBadResult, nil)
	}

	whiteRating, errW := strconv.Atoi(tags["WhiteElo"])
	blackRating, errB := strconv.Atoi(tags["BlackElo"])
	if errW != nil || errB != nil {
		return p.reject(raw, RejectBadRating, nil)
	}
	if !p.plausibleRating(whiteRating) || !p.plausibleRating(blackRating) {
		return p.reject(raw, RejectBadRating, nil)
	}

	date, ok := ParseDate(tags["Date"])
	if !ok {
		return p.reject(raw, RejectBadDate, nil)
	}

	moves, err := parseMoves(raw)
	if err != nil {
		return p.reject(raw, RejectBadMoveText, err)
	}
	if len(moves) < 2 || len(moves) > p.limits.MaxPlies {
		return p.reject(raw, RejectMoveCount, nil)
	}

	opening := tags["Opening"]
	if opening == "" {
		opening = "Unknown"
	}

	p.accepted++
	return Outcome{Record: &models.GameRecord{
		White:       tags["White"],
		Black:       tags["Black"],
		WhiteTitle:  ExtractTitle(tags["White"]),
		BlackTitle:  ExtractTitle(tags["Black"]),
		WhiteRating: whiteRating,
		BlackRating: blackRating,
		Result:      result,
		Date:        date,
		ECOCode:     tags["ECO"],
		OpeningName: opening,
		TimeControl: ClassifyTimeControl(tags["TimeControl"]),
		Moves:       moves,
	}}
}

func (p *Parser) reject(raw string, reason RejectReason, err error) Outcome {
	p.rejected++
	return Outcome{Rejection: &Rejection{Reason: reason, Raw: raw, Err: err}}
}

func (p *Parser) plausibleRating(r int) bool {
	return r >= p.limits.RatingMin && r <= p.limits.RatingMax
}

// parseMoves replays the move text and returns the SAN token sequence.
// Illegal or unparseable move text is an error.
func parseMoves(raw string) ([]string, error) {
	pgnOpt, err := chess.PGN(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}
	game := chess.NewGame(pgnOpt)

	moves := game.Moves()
	positions := game.Positions()
	notation := chess.AlgebraicNotation{}

	san := make([]string, len(moves))
	for i := range moves {
		san[i] = notation.Encode(positions[i], moves[i])
	}
	return san, nil
}

// ParseDate parses a PGN date tag. Dates with unknown "??" fields do not
// survive the range check and are rejected.
func ParseDate(s string) (time.Time, bool) {
	if s == "" || s == "????.??.??" {
		return time.Time{}, false
	}
	parts := strings.Split(strings.ReplaceAll(s, "?", "01"), ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	day, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

var titles = []string{"GM", "IM", "FM", "CM", "WGM", "WIM", "WFM", "WCM"}

// ExtractTitle recovers a chess title embedded in a username, e.g.
// "GM_hikaru" or "anna-WFM".
func ExtractTitle(username string) string {
	upper := strings.ToUpper(username)
	for _, title := range titles {
		if strings.HasPrefix(upper, title+"_") || strings.HasPrefix(upper, title+"-") ||
			strings.HasSuffix(upper, "_"+title) || strings.HasSuffix(upper, "-"+title) {
			return title
		}
	}
	return ""
}

// ClassifyTimeControl maps a raw TimeControl tag ("300+2", "600") to a
// time-control class. Estimated game length is base plus 40 increments.
func ClassifyTimeControl(tc string) string {
	if tc == "" || tc == "-" {
		return "unknown"
	}
	var total int
	if base, inc, found := strings.Cut(tc, "+"); found {
		b, err1 := strconv.Atoi(base)
		i, err2 := strconv.Atoi(inc)
		if err1 != nil || err2 != nil {
			return "unknown"
		}
		total = b + 40*i
	} else {
		b, err := strconv.Atoi(tc)
		if err != nil {
			return "unknown"
		}
		total = b
	}
	switch {
	case total < 180:
		return "bullet"
	case total < 600:
		return "blitz"
	case total < 1500:
		return "rapid"
	default:
		return "classical"
	}
}
