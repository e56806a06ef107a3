package memory

import (
	"context"
	"sort"
	"time"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/repository/contract"

	"github.com/google/uuid"
)

type NotebookRepository struct {
	scope *Scope
}

func NewNotebookRepository(scope *Scope) contract.NotebookRepository {
	return &NotebookRepository{scope: scope}
}

func (r *NotebookRepository) Create(ctx context.Context, notebook *entity.Notebook) error {
	return r.scope.run(func(d *dataset) error {
		if notebook.Id == uuid.Nil {
			notebook.Id = uuid.New()
		}
		now := time.Now()
		notebook.CreatedAt, notebook.UpdatedAt = now, now
		n := *notebook
		d.notebooks[n.Id] = &n
		return nil
	})
}

func (r *NotebookRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.Notebook, error) {
	var found *entity.Notebook
	err := r.scope.run(func(d *dataset) error {
		if n, ok := d.notebooks[id]; ok {
			c := *n
			found = &c
		}
		return nil
	})
	return found, err
}

func (r *NotebookRepository) FindByIds(ctx context.Context, ids []uuid.UUID) ([]*entity.Notebook, error) {
	notebooks := []*entity.Notebook{}
	err := r.scope.run(func(d *dataset) error {
		for _, id := range ids {
			if n, ok := d.notebooks[id]; ok {
				c := *n
				notebooks = append(notebooks, &c)
			}
		}
		return nil
	})
	sort.SliceStable(notebooks, func(i, j int) bool {
		return notebooks[i].UpdatedAt.After(notebooks[j].UpdatedAt)
	})
	return notebooks, err
}

func (r *NotebookRepository) TouchModified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.scope.run(func(d *dataset) error {
		if n, ok := d.notebooks[id]; ok {
			n.UpdatedAt = at
		}
		return nil
	})
}
