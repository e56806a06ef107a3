package contract

import (
	"context"
	"time"

	"actually-colab-be/internal/entity"

	"github.com/google/uuid"
)

// CellRepository owns cell rows. Lock transitions are conditional writes:
// they return nil (no error) when the condition did not hold.
type CellRepository interface {
	Create(ctx context.Context, cell *entity.Cell) error
	FindById(ctx context.Context, notebookId, cellId uuid.UUID) (*entity.Cell, error)
	FindAllByNotebook(ctx context.Context, notebookId uuid.UUID) ([]*entity.Cell, error)
	NextPosition(ctx context.Context, notebookId uuid.UUID) (int, error)
	// ShiftFrom moves every cell at or after position one slot down.
	ShiftFrom(ctx context.Context, notebookId uuid.UUID, position int) error

	AcquireLock(ctx context.Context, notebookId, cellId, holder uuid.UUID, at time.Time) (*entity.Cell, error)
	ReleaseLock(ctx context.Context, notebookId, cellId, holder uuid.UUID, final *entity.CellEdit, at time.Time) (*entity.Cell, error)
	ApplyEdit(ctx context.Context, notebookId, cellId, holder uuid.UUID, edit entity.CellEdit, at time.Time) (*entity.Cell, error)
	DeleteHeld(ctx context.Context, notebookId, cellId, holder uuid.UUID) (bool, error)
	ReleaseAllHeldBy(ctx context.Context, notebookId, holder uuid.UUID, at time.Time) ([]*entity.Cell, error)
}

type OutputRepository interface {
	Upsert(ctx context.Context, output *entity.CellOutput) error
}
