package pgn_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vytor/chessmetrics/internal/pgn"
)

func TestScanner_SplitsGames(t *testing.T) {
	input := `[Event "one"]
[White "a"]

1. e4 e5 1-0

[Event "two"]
[White "b"]

1. d4 d5 1/2-1/2
`
	sc := pgn.NewScanner(strings.NewReader(input))

	require.True(t, sc.Scan())
	first := sc.Block()
	assert.Contains(t, first, `[Event "one"]`)
	assert.Contains(t, first, "1. e4 e5 1-0")
	assert.NotContains(t, first, `[Event "two"]`)

	require.True(t, sc.Scan())
	assert.Contains(t, sc.Block(), `[Event "two"]`)

	assert.False(t, sc.Scan())
	assert.NoError(t, sc.Err())
}

func TestScanner_MissingBlankLineBetweenGames(t *testing.T) {
	// Some exports omit the blank line before the next tag section.
	input := `[Event "one"]

1. e4 e5 1-0
[Event "two"]

1. d4 d5 0-1
`
	sc := pgn.NewScanner(strings.NewReader(input))

	require.True(t, sc.Scan())
	assert.Contains(t, sc.Block(), `[Event "one"]`)

	require.True(t, sc.Scan())
	block := sc.Block()
	assert.Contains(t, block, `[Event "two"]`)
	assert.Contains(t, block, "1. d4 d5 0-1")

	assert.False(t, sc.Scan())
}

func TestScanner_MultiLineMoveText(t *testing.T) {
	input := `[Event "one"]

1. e4 e5 2. Nf3 Nc6
3. Bb5 a6 1-0
`
	sc := pgn.NewScanner(strings.NewReader(input))

	require.True(t, sc.Scan())
	block := sc.Block()
	assert.Contains(t, block, "2. Nf3 Nc6")
	assert.Contains(t, block, "3. Bb5 a6 1-0")
	assert.False(t, sc.Scan())
}

func TestScanner_TrailingGameWithoutBlankLine(t *testing.T) {
	input := `[Event "one"]

1. e4 e5 1-0`
	sc := pgn.NewScanner(strings.NewReader(input))

	require.True(t, sc.Scan())
	assert.Contains(t, sc.Block(), "1. e4 e5 1-0")
	assert.False(t, sc.Scan())
}

func TestScanner_EmptyInput(t *testing.T) {
	sc := pgn.NewScanner(strings.NewReader(""))
	assert.False(t, sc.Scan())
	assert.NoError(t, sc.Err())
}
