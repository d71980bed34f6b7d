package ingest

import "github.com/vytor/chessmetrics/internal/models"

// Buffer accumulates validated records up to two independent ceilings: a
// record count and an estimated byte footprint. Whichever is reached first
// makes the buffer full; draining it bounds peak memory regardless of
// input size.
type Buffer struct {
	maxRecords int
	maxBytes   int
	records    []models.GameRecord
	bytes      int
}

func NewBuffer(maxRecords, maxBytes int) *Buffer {
	if maxRecords <= 0 {
		maxRecords = 1000
	}
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	return &Buffer{
		maxRecords: maxRecords,
		maxBytes:   maxBytes,
		records:    make([]models.GameRecord, 0, maxRecords),
	}
}

func (b *Buffer) Add(rec models.GameRecord) {
	b.records = append(b.records, rec)
	b.bytes += estimateSize(rec)
}

// Full reports whether either threshold has been reached.
func (b *Buffer) Full() bool {
	return len(b.records) >= b.maxRecords || b.bytes >= b.maxBytes
}

func (b *Buffer) Len() int       { return len(b.records) }
func (b *Buffer) SizeBytes() int { return b.bytes }

// Drain returns the buffered records and resets the buffer so it can
// accept further input while the drained batch commits.
func (b *Buffer) Drain() []models.GameRecord {
	out := b.records
	b.records = make([]models.GameRecord, 0, b.maxRecords)
	b.bytes = 0
	return out
}

const (
	recordOverhead = 160 // struct fields and slice headers
	tokenOverhead  = 16  // string header per move token
)

func estimateSize(rec models.GameRecord) int {
	n := recordOverhead
	n += len(rec.White) + len(rec.Black) + len(rec.WhiteTitle) + len(rec.BlackTitle)
	n += len(rec.ECOCode) + len(rec.OpeningName) + len(rec.TimeControl)
	for _, m := range rec.Moves {
		n += tokenOverhead + len(m)
	}
	return n
}
