package contract

import (
	"context"

	"actually-colab-be/internal/entity"

	"github.com/google/uuid"
)

// AccessRepository stores notebook sharing grants.
type AccessRepository interface {
	// GetAccessLevel returns "" when the user has no grant.
	GetAccessLevel(ctx context.Context, notebookId, userId uuid.UUID) (entity.AccessLevel, error)
	// Grant upserts the level for every user.
	Grant(ctx context.Context, grants []*entity.NotebookAccess) error
	Revoke(ctx context.Context, notebookId uuid.UUID, userIds []uuid.UUID) error
	FindMembers(ctx context.Context, notebookId uuid.UUID) ([]*entity.NotebookMember, error)
	FindNotebookIdsByUser(ctx context.Context, userId uuid.UUID) ([]uuid.UUID, error)
}
