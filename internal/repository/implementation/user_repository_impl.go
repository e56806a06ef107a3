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

type UserRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMapper
}

func NewUserRepository(db *gorm.DB) contract.UserRepository {
	return &UserRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMapper(),
	}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *entity.User) error {
	modelUser := r.mapper.ToModel(user)
	if err := r.db.WithContext(ctx).Create(modelUser).Error; err != nil {
		return err
	}
	*user = *r.mapper.ToEntity(modelUser)
	return nil
}

func (r *UserRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var m model.User
	query := specification.Apply(r.db.WithContext(ctx), specification.ByID{ID: id})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *UserRepositoryImpl) FindByEmails(ctx context.Context, emails []string) ([]*entity.User, error) {
	if len(emails) == 0 {
		return []*entity.User{}, nil
	}
	var models []*model.User
	query := specification.Apply(r.db.WithContext(ctx), specification.ByEmails{Emails: emails})
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *UserRepositoryImpl) UpdateName(ctx context.Context, id uuid.UUID, name string, at time.Time) (bool, error) {
	query := specification.Apply(r.db.WithContext(ctx).Model(&model.User{}), specification.ByID{ID: id})
	result := query.Updates(map[string]interface{}{"name": name, "updated_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
