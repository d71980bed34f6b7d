package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vytor/chessmetrics/internal/models"
)

// MockBatchWriter is a mock implementation of repository.BatchWriter
type MockBatchWriter struct {
	mock.Mock
}

func (m *MockBatchWriter) CommitBatch(ctx context.Context, batch *models.Batch) (models.CommitResult, error) {
	args := m.Called(ctx, batch)
	return args.Get(0).(models.CommitResult), args.Error(1)
}
