package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vytor/chessmetrics/internal/models"
)

func testRecord(white, black string) models.GameRecord {
	return models.GameRecord{
		White:       white,
		Black:       black,
		WhiteRating: 1500,
		BlackRating: 1500,
		Result:      models.ResultWhiteWin,
		ECOCode:     "C50",
		OpeningName: "Italian Game",
		TimeControl: "blitz",
		Moves:       []string{"e4", "e5", "Nf3", "Nc6", "Bc4"},
	}
}

func TestBuffer_RecordCeiling(t *testing.T) {
	b := NewBuffer(3, 1<<20)

	b.Add(testRecord("a", "b"))
	b.Add(testRecord("c", "d"))
	assert.False(t, b.Full())

	b.Add(testRecord("e", "f"))
	assert.True(t, b.Full())
	assert.Equal(t, 3, b.Len())
}

func TestBuffer_ByteCeiling(t *testing.T) {
	// A byte limit low enough that it trips long before the record limit.
	b := NewBuffer(1000, 300)

	b.Add(testRecord("a", "b"))
	assert.False(t, b.Full())
	b.Add(testRecord("c", "d"))
	assert.True(t, b.Full(), "estimated size %d should exceed the byte ceiling", b.SizeBytes())
	assert.Less(t, b.Len(), 1000)
}

func TestBuffer_PeakMemoryBoundedOnLargeInput(t *testing.T) {
	const maxBytes = 4096
	b := NewBuffer(1<<20, maxBytes) // record ceiling far out of reach

	// The byte ceiling is a flush trigger: the buffer may exceed it by at
	// most the one record that tripped it, no matter how long the input.
	var worstRecord int
	drained := 0
	for i := 0; i < 50_000; i++ {
		rec := testRecord("white-player-with-a-long-name", "black-player-with-a-long-name")
		// Vary the footprint so flush points drift across iterations.
		for j := 0; j < i%17; j++ {
			rec.Moves = append(rec.Moves, "Nf3", "Nc6")
		}
		if est := estimateSize(rec); est > worstRecord {
			worstRecord = est
		}

		b.Add(rec)
		assert.LessOrEqual(t, b.SizeBytes(), maxBytes+worstRecord,
			"buffer footprint ran away at record %d", i)
		if b.Full() {
			drained += len(b.Drain())
		}
	}
	drained += len(b.Drain())

	assert.Equal(t, 50_000, drained, "flushing must never drop records")
}

func TestBuffer_DrainResets(t *testing.T) {
	b := NewBuffer(2, 1<<20)
	b.Add(testRecord("a", "b"))
	b.Add(testRecord("c", "d"))

	records := b.Drain()
	assert.Len(t, records, 2)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, b.SizeBytes())
	assert.False(t, b.Full())

	// The drained slice is independent of further buffering.
	b.Add(testRecord("e", "f"))
	assert.Len(t, records, 2)
}
