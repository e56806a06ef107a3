package memory

import (
	"context"
	"sort"
	"time"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/repository/contract"

	"github.com/google/uuid"
)

type CellRepository struct {
	scope *Scope
}

func NewCellRepository(scope *Scope) contract.CellRepository {
	return &CellRepository{scope: scope}
}

func (r *CellRepository) Create(ctx context.Context, cell *entity.Cell) error {
	return r.scope.run(func(d *dataset) error {
		if cell.Id == uuid.Nil {
			cell.Id = uuid.New()
		}
		if cell.CreatedAt.IsZero() {
			cell.CreatedAt = time.Now()
		}
		if cell.UpdatedAt.IsZero() {
			cell.UpdatedAt = cell.CreatedAt
		}
		d.cells[cell.Id] = copyCell(cell)
		return nil
	})
}

func (r *CellRepository) FindById(ctx context.Context, notebookId, cellId uuid.UUID) (*entity.Cell, error) {
	var found *entity.Cell
	err := r.scope.run(func(d *dataset) error {
		if c := cellIn(d, notebookId, cellId); c != nil {
			found = copyCell(c)
		}
		return nil
	})
	return found, err
}

func (r *CellRepository) FindAllByNotebook(ctx context.Context, notebookId uuid.UUID) ([]*entity.Cell, error) {
	cells := []*entity.Cell{}
	err := r.scope.run(func(d *dataset) error {
		for _, c := range d.cells {
			if c.NotebookId == notebookId {
				cells = append(cells, copyCell(c))
			}
		}
		return nil
	})
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Position != cells[j].Position {
			return cells[i].Position < cells[j].Position
		}
		return cells[i].CreatedAt.Before(cells[j].CreatedAt)
	})
	return cells, err
}

func (r *CellRepository) NextPosition(ctx context.Context, notebookId uuid.UUID) (int, error) {
	next := 0
	err := r.scope.run(func(d *dataset) error {
		for _, c := range d.cells {
			if c.NotebookId == notebookId && c.Position+1 > next {
				next = c.Position + 1
			}
		}
		return nil
	})
	return next, err
}

func (r *CellRepository) ShiftFrom(ctx context.Context, notebookId uuid.UUID, position int) error {
	return r.scope.run(func(d *dataset) error {
		for _, c := range d.cells {
			if c.NotebookId == notebookId && c.Position >= position {
				c.Position++
			}
		}
		return nil
	})
}

func (r *CellRepository) AcquireLock(ctx context.Context, notebookId, cellId, holder uuid.UUID, at time.Time) (*entity.Cell, error) {
	var locked *entity.Cell
	err := r.scope.run(func(d *dataset) error {
		c := cellIn(d, notebookId, cellId)
		if c == nil || c.LockHeldBy != nil {
			return nil
		}
		h := holder
		c.LockHeldBy = &h
		c.UpdatedAt = at
		locked = copyCell(c)
		return nil
	})
	return locked, err
}

func (r *CellRepository) ReleaseLock(ctx context.Context, notebookId, cellId, holder uuid.UUID, final *entity.CellEdit, at time.Time) (*entity.Cell, error) {
	var released *entity.Cell
	err := r.scope.run(func(d *dataset) error {
		c := cellIn(d, notebookId, cellId)
		if c == nil || !c.IsLockedBy(holder) {
			return nil
		}
		if final != nil {
			c.Contents = final.Contents
			if final.Language != "" {
				c.Language = final.Language
			}
		}
		c.LockHeldBy = nil
		c.CursorPos = nil
		c.UpdatedAt = at
		released = copyCell(c)
		return nil
	})
	return released, err
}

func (r *CellRepository) ApplyEdit(ctx context.Context, notebookId, cellId, holder uuid.UUID, edit entity.CellEdit, at time.Time) (*entity.Cell, error) {
	var edited *entity.Cell
	err := r.scope.run(func(d *dataset) error {
		c := cellIn(d, notebookId, cellId)
		if c == nil || !c.IsLockedBy(holder) {
			return nil
		}
		c.Contents = edit.Contents
		if edit.Language != "" {
			c.Language = edit.Language
		}
		c.CursorPos = nil
		if edit.CursorPos != nil {
			pos := *edit.CursorPos
			c.CursorPos = &pos
		}
		c.UpdatedAt = at
		edited = copyCell(c)
		return nil
	})
	return edited, err
}

func (r *CellRepository) DeleteHeld(ctx context.Context, notebookId, cellId, holder uuid.UUID) (bool, error) {
	deleted := false
	err := r.scope.run(func(d *dataset) error {
		c := cellIn(d, notebookId, cellId)
		if c == nil || !c.IsLockedBy(holder) {
			return nil
		}
		delete(d.cells, cellId)
		for key := range d.outputs {
			if key.cellId == cellId {
				delete(d.outputs, key)
			}
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (r *CellRepository) ReleaseAllHeldBy(ctx context.Context, notebookId, holder uuid.UUID, at time.Time) ([]*entity.Cell, error) {
	released := []*entity.Cell{}
	err := r.scope.run(func(d *dataset) error {
		for _, c := range d.cells {
			if c.NotebookId != notebookId || !c.IsLockedBy(holder) {
				continue
			}
			c.LockHeldBy = nil
			c.CursorPos = nil
			c.UpdatedAt = at
			released = append(released, copyCell(c))
		}
		return nil
	})
	return released, err
}

func cellIn(d *dataset, notebookId, cellId uuid.UUID) *entity.Cell {
	c, ok := d.cells[cellId]
	if !ok || c.NotebookId != notebookId {
		return nil
	}
	return c
}

type OutputRepository struct {
	scope *Scope
}

func NewOutputRepository(scope *Scope) contract.OutputRepository {
	return &OutputRepository{scope: scope}
}

func (r *OutputRepository) Upsert(ctx context.Context, output *entity.CellOutput) error {
	return r.scope.run(func(d *dataset) error {
		o := *output
		d.outputs[outputKey{o.NotebookId, o.CellId, o.UserId}] = &o
		return nil
	})
}
