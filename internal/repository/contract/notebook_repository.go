package contract

import (
	"context"
	"time"

	"actually-colab-be/internal/entity"

	"github.com/google/uuid"
)

type NotebookRepository interface {
	Create(ctx context.Context, notebook *entity.Notebook) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.Notebook, error)
	FindByIds(ctx context.Context, ids []uuid.UUID) ([]*entity.Notebook, error)
	TouchModified(ctx context.Context, id uuid.UUID, at time.Time) error
}
