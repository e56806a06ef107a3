package implementation

import (
	"context"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/mapper"
	"actually-colab-be/internal/model"
	"actually-colab-be/internal/repository/contract"
	"actually-colab-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccessRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.NotebookMapper
}

func NewAccessRepository(db *gorm.DB) contract.AccessRepository {
	return &AccessRepositoryImpl{
		db:     db,
		mapper: mapper.NewNotebookMapper(),
	}
}

type memberRow struct {
	Id          uuid.UUID
	Email       string
	Name        string
	AccessLevel string
}

func (r *AccessRepositoryImpl) GetAccessLevel(ctx context.Context, notebookId, userId uuid.UUID) (entity.AccessLevel, error) {
	var levels []string
	err := r.db.WithContext(ctx).
		Model(&model.NotebookAccessLevel{}).
		Where("notebook_id = ? AND user_id = ?", notebookId, userId).
		Limit(1).
		Pluck("access_level", &levels).Error
	if err != nil {
		return "", err
	}
	if len(levels) == 0 {
		return "", nil
	}
	return entity.AccessLevel(levels[0]), nil
}

func (r *AccessRepositoryImpl) Grant(ctx context.Context, grants []*entity.NotebookAccess) error {
	if len(grants) == 0 {
		return nil
	}
	models := r.mapper.AccessToModels(grants)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "notebook_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_level", "updated_at"}),
		}).
		Create(&models).Error
}

func (r *AccessRepositoryImpl) Revoke(ctx context.Context, notebookId uuid.UUID, userIds []uuid.UUID) error {
	if len(userIds) == 0 {
		return nil
	}
	query := specification.Apply(r.db.WithContext(ctx),
		specification.ByNotebookID{NotebookID: notebookId},
		specification.ByUserIDs{UserIDs: userIds},
	)
	return query.Delete(&model.NotebookAccessLevel{}).Error
}

func (r *AccessRepositoryImpl) FindMembers(ctx context.Context, notebookId uuid.UUID) ([]*entity.NotebookMember, error) {
	var rows []memberRow
	err := r.db.WithContext(ctx).
		Table("notebook_access_levels AS nal").
		Select("u.id, u.email, u.name, nal.access_level").
		Joins("JOIN users u ON u.id = nal.user_id").
		Where("nal.notebook_id = ?", notebookId).
		Order("nal.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	members := make([]*entity.NotebookMember, len(rows))
	for i, row := range rows {
		members[i] = &entity.NotebookMember{
			User:        entity.User{Id: row.Id, Email: row.Email, Name: row.Name},
			AccessLevel: entity.AccessLevel(row.AccessLevel),
		}
	}
	return members, nil
}

func (r *AccessRepositoryImpl) FindNotebookIdsByUser(ctx context.Context, userId uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.NotebookAccessLevel{}).
		Where("user_id = ?", userId).
		Pluck("notebook_id", &ids).Error
	return ids, err
}
