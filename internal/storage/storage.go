package storage

import (
	"context"

	"github.com/slok/runx/internal/model"
)

// Repository is the interface for execution history persistence.
type Repository interface {
	SaveExecution(ctx context.Context, e model.Execution) error
	GetExecution(ctx context.Context, id string) (*model.Execution, error)
	ListExecutions(ctx context.Context, limit int) ([]model.Execution, error)
	Close() error
}
