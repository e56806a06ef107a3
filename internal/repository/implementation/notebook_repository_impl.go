package implementation

import (
	"context"
	"errors"
	"time"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/mapper"
	"actually-colab-be/internal/model"
	"actually-colab-be/internal/repository/contract"
	"actually-colab-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotebookRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.NotebookMapper
}

func NewNotebookRepository(db *gorm.DB) contract.NotebookRepository {
	return &NotebookRepositoryImpl{
		db:     db,
		mapper: mapper.NewNotebookMapper(),
	}
}

func (r *NotebookRepositoryImpl) Create(ctx context.Context, notebook *entity.Notebook) error {
	m := r.mapper.ToModel(notebook)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*notebook = *r.mapper.ToEntity(m)
	return nil
}

func (r *NotebookRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.Notebook, error) {
	var m model.Notebook
	query := specification.Apply(r.db.WithContext(ctx), specification.ByID{ID: id})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *NotebookRepositoryImpl) FindByIds(ctx context.Context, ids []uuid.UUID) ([]*entity.Notebook, error) {
	if len(ids) == 0 {
		return []*entity.Notebook{}, nil
	}
	var models []*model.Notebook
	query := specification.Apply(r.db.WithContext(ctx),
		specification.ByIDs{IDs: ids},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *NotebookRepositoryImpl) TouchModified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Notebook{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at).Error
}
