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
	"gorm.io/gorm/clause"
)

type SessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionRepository(db *gorm.DB) contract.SessionRepository {
	return &SessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session *entity.ActiveSession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *SessionRepositoryImpl) FindByConnection(ctx context.Context, connectionId string) (*entity.ActiveSession, error) {
	var m model.ActiveSession
	query := specification.Apply(r.db.WithContext(ctx), specification.ByConnectionID{ConnectionID: connectionId})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SessionRepositoryImpl) Bind(ctx context.Context, connectionId string, notebookId uuid.UUID, at time.Time) (bool, error) {
	query := specification.Apply(r.db.WithContext(ctx).Model(&model.ActiveSession{}),
		specification.ByConnectionID{ConnectionID: connectionId},
		specification.OpenSession{},
		specification.Unbound{},
	)
	result := query.Updates(map[string]interface{}{"notebook_id": notebookId, "last_event_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *SessionRepositoryImpl) Unbind(ctx context.Context, connectionId string, notebookId uuid.UUID, at time.Time) (*entity.ActiveSession, error) {
	sessions, err := r.updateReturning(ctx,
		[]specification.Specification{
			specification.ByConnectionID{ConnectionID: connectionId},
			specification.ByNotebookID{NotebookID: notebookId},
			specification.OpenSession{},
		},
		map[string]interface{}{"notebook_id": nil, "last_event_at": at},
	)
	if err != nil || len(sessions) == 0 {
		return nil, err
	}
	return sessions[0], nil
}

func (r *SessionRepositoryImpl) UnbindUsers(ctx context.Context, notebookId uuid.UUID, userIds []uuid.UUID, at time.Time) ([]*entity.ActiveSession, error) {
	if len(userIds) == 0 {
		return []*entity.ActiveSession{}, nil
	}
	return r.updateReturning(ctx,
		[]specification.Specification{
			specification.ByNotebookID{NotebookID: notebookId},
			specification.ByUserIDs{UserIDs: userIds},
			specification.OpenSession{},
		},
		map[string]interface{}{"notebook_id": nil, "last_event_at": at},
	)
}

// MarkDisconnected keeps notebook_id so the caller can see what was bound.
func (r *SessionRepositoryImpl) MarkDisconnected(ctx context.Context, connectionId string, at time.Time) (*entity.ActiveSession, error) {
	sessions, err := r.updateReturning(ctx,
		[]specification.Specification{
			specification.ByConnectionID{ConnectionID: connectionId},
			specification.OpenSession{},
		},
		map[string]interface{}{"disconnected_at": at, "last_event_at": at},
	)
	if err != nil || len(sessions) == 0 {
		return nil, err
	}
	return sessions[0], nil
}

func (r *SessionRepositoryImpl) Touch(ctx context.Context, connectionId string, at time.Time) error {
	query := specification.Apply(r.db.WithContext(ctx).Model(&model.ActiveSession{}),
		specification.ByConnectionID{ConnectionID: connectionId},
		specification.OpenSession{},
	)
	return query.UpdateColumn("last_event_at", at).Error
}

func (r *SessionRepositoryImpl) ActiveConnections(ctx context.Context, notebookId uuid.UUID) ([]string, error) {
	var ids []string
	query := specification.Apply(r.db.WithContext(ctx).Model(&model.ActiveSession{}),
		specification.ByNotebookID{NotebookID: notebookId},
		specification.OpenSession{},
	)
	if err := query.Pluck("connection_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *SessionRepositoryImpl) ConnectedUsers(ctx context.Context, notebookId uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := specification.Apply(r.db.WithContext(ctx).Model(&model.ActiveSession{}),
		specification.ByNotebookID{NotebookID: notebookId},
		specification.OpenSession{},
	)
	if err := query.Distinct().Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *SessionRepositoryImpl) updateReturning(ctx context.Context, specs []specification.Specification, values map[string]interface{}) ([]*entity.ActiveSession, error) {
	var rows []model.ActiveSession
	query := specification.Apply(r.db.WithContext(ctx).Model(&rows).Clauses(clause.Returning{}), specs...)
	if err := query.Updates(values).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(rows), nil
}
