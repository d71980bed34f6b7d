package pgn

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Open opens a PGN file for streaming. Files ending in .zst are
// decompressed transparently.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &zstdReadCloser{dec: dec, f: f}, nil
	}
	return f, nil
}

type zstdReadCloser struct {
	dec *zstd.Decoder
	f   *os.File
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.f.Close()
}

// Scanner splits a PGN stream into raw game blocks (tag section plus move
// text) one at a time, without materializing the input.
type Scanner struct {
	s     *bufio.Scanner
	tags  []string
	moves []string
	block string
	done  bool
}

func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	// Move text for a whole game can arrive as a single long line.
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Scanner{s: s}
}

// Scan advances to the next game block. It returns false at end of input
// or on a read error (see Err).
func (sc *Scanner) Scan() bool {
	if sc.done {
		return false
	}
	for sc.s.Scan() {
		line := strings.TrimSpace(sc.s.Text())

		if line == "" {
			// A blank line after move text terminates the game. A blank
			// line between tags and move text does not.
			if len(sc.moves) > 0 {
				sc.emit()
				return true
			}
			continue
		}

		if strings.HasPrefix(line, "[") && len(sc.moves) > 0 {
			// New tag section without a separating blank line.
			sc.emit()
			sc.tags = append(sc.tags, line)
			return true
		}

		if strings.HasPrefix(line, "[") {
			sc.tags = append(sc.tags, line)
		} else {
			sc.moves = append(sc.moves, line)
		}
	}

	sc.done = true
	if len(sc.tags) > 0 || len(sc.moves) > 0 {
		sc.emit()
		return true
	}
	return false
}

// Block returns the raw text of the current game.
func (sc *Scanner) Block() string {
	return sc.block
}

func (sc *Scanner) Err() error {
	return sc.s.Err()
}

func (sc *Scanner) emit() {
	var b strings.Builder
	for _, t := range sc.tags {
		b.WriteString(t)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, m := range sc.moves {
		b.WriteString(m)
		b.WriteString("\n")
	}
	sc.block = b.String()
	sc.tags = sc.tags[:0]
	sc.moves = sc.moves[:0]
}
