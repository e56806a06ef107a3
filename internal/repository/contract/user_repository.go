package contract

import (
	"context"
	"time"

	"actually-colab-be/internal/entity"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmails(ctx context.Context, emails []string) ([]*entity.User, error)
	// UpdateName reports false when the user does not exist.
	UpdateName(ctx context.Context, id uuid.UUID, name string, at time.Time) (bool, error)
}
