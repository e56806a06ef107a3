package contract

import (
	"context"
	"time"

	"actually-colab-be/internal/entity"

	"github.com/google/uuid"
)

// SessionRepository tracks connections and which notebook each is bound to.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.ActiveSession) error
	FindByConnection(ctx context.Context, connectionId string) (*entity.ActiveSession, error)
	// Bind succeeds only for an open, unbound session.
	Bind(ctx context.Context, connectionId string, notebookId uuid.UUID, at time.Time) (bool, error)
	// Unbind returns the session if it was bound to notebookId, nil otherwise.
	Unbind(ctx context.Context, connectionId string, notebookId uuid.UUID, at time.Time) (*entity.ActiveSession, error)
	UnbindUsers(ctx context.Context, notebookId uuid.UUID, userIds []uuid.UUID, at time.Time) ([]*entity.ActiveSession, error)
	// MarkDisconnected returns nil when the session is missing or already terminal.
	MarkDisconnected(ctx context.Context, connectionId string, at time.Time) (*entity.ActiveSession, error)
	Touch(ctx context.Context, connectionId string, at time.Time) error
	ActiveConnections(ctx context.Context, notebookId uuid.UUID) ([]string, error)
	ConnectedUsers(ctx context.Context, notebookId uuid.UUID) ([]uuid.UUID, error)
}
