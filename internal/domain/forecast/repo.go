package forecast

import (
	"context"

	"github.com/google/uuid"
)

type RunRepository interface {
	Create(ctx context.Context, r *Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*Run, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Run, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Run, int, error)
}
