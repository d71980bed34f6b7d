package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vytor/chessmetrics/internal/logx"
	"github.com/vytor/chessmetrics/internal/repository/sqlite"
)

// NewTestStore creates an in-memory SQLite store with all migrations applied.
func NewTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	log := logx.New("ERROR")
	store, err := sqlite.Open(log.WithContext(context.Background()), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

// Context returns a context carrying a quiet test logger.
func Context(t *testing.T) context.Context {
	t.Helper()
	log := logx.New("ERROR")
	return log.WithContext(context.Background())
}
