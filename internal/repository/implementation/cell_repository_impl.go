package implementation

import (
	"context"
	"errors"
	"time"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/mapper"
	"actually-colab-be/internal/model"
	"actually-colab-be/internal/repository/contract"
	"actually-colab-be/internal/repository/scope"
	"actually-colab-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CellRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CellMapper
}

func NewCellRepository(db *gorm.DB) contract.CellRepository {
	return &CellRepositoryImpl{
		db:     db,
		mapper: mapper.NewCellMapper(),
	}
}

func (r *CellRepositoryImpl) Create(ctx context.Context, cell *entity.Cell) error {
	m := r.mapper.ToModel(cell)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*cell = *r.mapper.ToEntity(m)
	return nil
}

func (r *CellRepositoryImpl) FindById(ctx context.Context, notebookId, cellId uuid.UUID) (*entity.Cell, error) {
	var m model.Cell
	query := specification.Apply(r.db.WithContext(ctx), specification.CellInNotebook{NotebookID: notebookId, CellID: cellId})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CellRepositoryImpl) FindAllByNotebook(ctx context.Context, notebookId uuid.UUID) ([]*entity.Cell, error) {
	var models []model.Cell
	query := specification.Apply(r.db.WithContext(ctx), specification.ByNotebookID{NotebookID: notebookId})
	if err := query.Scopes(scope.OrderByPosition).Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CellRepositoryImpl) NextPosition(ctx context.Context, notebookId uuid.UUID) (int, error) {
	var next int
	err := r.db.WithContext(ctx).
		Model(&model.Cell{}).
		Select("COALESCE(MAX(position) + 1, 0)").
		Where("notebook_id = ?", notebookId).
		Scan(&next).Error
	return next, err
}

func (r *CellRepositoryImpl) ShiftFrom(ctx context.Context, notebookId uuid.UUID, position int) error {
	query := specification.Apply(r.db.WithContext(ctx).Model(&model.Cell{}),
		specification.ByNotebookID{NotebookID: notebookId},
		specification.PositionFrom{Position: position},
	)
	return query.UpdateColumn("position", gorm.Expr("position + 1")).Error
}

// AcquireLock sets the holder only if nobody holds the cell. The check and
// the write are one statement, so concurrent callers cannot both win.
func (r *CellRepositoryImpl) AcquireLock(ctx context.Context, notebookId, cellId, holder uuid.UUID, at time.Time) (*entity.Cell, error) {
	return r.conditionalUpdate(ctx,
		[]specification.Specification{
			specification.CellInNotebook{NotebookID: notebookId, CellID: cellId},
			specification.Unlocked{},
		},
		map[string]interface{}{"lock_held_by": holder, "updated_at": at},
	)
}

func (r *CellRepositoryImpl) ReleaseLock(ctx context.Context, notebookId, cellId, holder uuid.UUID, final *entity.CellEdit, at time.Time) (*entity.Cell, error) {
	values := map[string]interface{}{"lock_held_by": nil, "cursor_pos": nil, "updated_at": at}
	if final != nil {
		values["contents"] = final.Contents
		if final.Language != "" {
			values["language"] = final.Language
		}
	}
	return r.conditionalUpdate(ctx,
		[]specification.Specification{
			specification.CellInNotebook{NotebookID: notebookId, CellID: cellId},
			specification.LockHeldBy{UserID: holder},
		},
		values,
	)
}

func (r *CellRepositoryImpl) ApplyEdit(ctx context.Context, notebookId, cellId, holder uuid.UUID, edit entity.CellEdit, at time.Time) (*entity.Cell, error) {
	values := map[string]interface{}{"contents": edit.Contents, "cursor_pos": edit.CursorPos, "updated_at": at}
	if edit.Language != "" {
		values["language"] = edit.Language
	}
	return r.conditionalUpdate(ctx,
		[]specification.Specification{
			specification.CellInNotebook{NotebookID: notebookId, CellID: cellId},
			specification.LockHeldBy{UserID: holder},
		},
		values,
	)
}

func (r *CellRepositoryImpl) DeleteHeld(ctx context.Context, notebookId, cellId, holder uuid.UUID) (bool, error) {
	query := specification.Apply(r.db.WithContext(ctx),
		specification.CellInNotebook{NotebookID: notebookId, CellID: cellId},
		specification.LockHeldBy{UserID: holder},
	)
	result := query.Delete(&model.Cell{})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	err := r.db.WithContext(ctx).
		Where("notebook_id = ? AND cell_id = ?", notebookId, cellId).
		Delete(&model.CellOutput{}).Error
	return true, err
}

func (r *CellRepositoryImpl) ReleaseAllHeldBy(ctx context.Context, notebookId, holder uuid.UUID, at time.Time) ([]*entity.Cell, error) {
	var rows []model.Cell
	query := specification.Apply(r.db.WithContext(ctx).Model(&rows).Clauses(clause.Returning{}),
		specification.ByNotebookID{NotebookID: notebookId},
		specification.LockHeldBy{UserID: holder},
	)
	if err := query.Updates(map[string]interface{}{"lock_held_by": nil, "cursor_pos": nil, "updated_at": at}).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(rows), nil
}

func (r *CellRepositoryImpl) conditionalUpdate(ctx context.Context, specs []specification.Specification, values map[string]interface{}) (*entity.Cell, error) {
	var rows []model.Cell
	query := specification.Apply(r.db.WithContext(ctx).Model(&rows).Clauses(clause.Returning{}), specs...)
	if err := query.Updates(values).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return r.mapper.ToEntity(&rows[0]), nil
}

type OutputRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CellMapper
}

func NewOutputRepository(db *gorm.DB) contract.OutputRepository {
	return &OutputRepositoryImpl{
		db:     db,
		mapper: mapper.NewCellMapper(),
	}
}

func (r *OutputRepositoryImpl) Upsert(ctx context.Context, output *entity.CellOutput) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "notebook_id"}, {Name: "cell_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"output", "updated_at"}),
		}).
		Create(r.mapper.OutputToModel(output)).Error
}
