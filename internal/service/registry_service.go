package service

import (
	"context"
	"time"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/pkg/apperror"
	"actually-colab-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// ISessionRegistry tracks live connections and the notebook each has open.
type ISessionRegistry interface {
	Connect(ctx context.Context, connectionId string, userId uuid.UUID, now time.Time) error
	OpenNotebook(ctx context.Context, connectionId string, notebookId uuid.UUID, now time.Time) error
	CloseNotebook(ctx context.Context, connectionId string, notebookId uuid.UUID, now time.Time) (*entity.Disconnection, error)
	RequireBound(ctx context.Context, connectionId string, notebookId uuid.UUID) (*entity.ActiveSession, error)
	ActiveConnections(ctx context.Context, notebookId uuid.UUID) ([]string, error)
	ConnectedUsers(ctx context.Context, notebookId uuid.UUID) ([]uuid.UUID, error)
	Disconnect(ctx context.Context, connectionId string, now time.Time) (*entity.Disconnection, error)
}

type registryService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewSessionRegistry(uowFactory unitofwork.RepositoryFactory) ISessionRegistry {
	return &registryService{uowFactory: uowFactory}
}

func (s *registryService) Connect(ctx context.Context, connectionId string, userId uuid.UUID, now time.Time) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindById(ctx, userId)
	if err != nil {
		return apperror.Internal("failed to load user", err)
	}
	if user == nil {
		return apperror.Unauthorized("unknown user")
	}

	session := &entity.ActiveSession{
		ConnectionId: connectionId,
		UserId:       userId,
		ConnectedAt:  now,
		LastEventAt:  now,
	}
	if err := uow.SessionRepository().Create(ctx, session); err != nil {
		return apperror.Internal("failed to register connection", err)
	}
	return nil
}

func (s *registryService) OpenNotebook(ctx context.Context, connectionId string, notebookId uuid.UUID, now time.Time) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions := uow.SessionRepository()

	bound, err := sessions.Bind(ctx, connectionId, notebookId, now)
	if err != nil {
		return apperror.Internal("failed to bind connection", err)
	}
	if bound {
		return nil
	}

	session, err := sessions.FindByConnection(ctx, connectionId)
	if err != nil {
		return apperror.Internal("failed to load connection", err)
	}
	if session == nil || !session.IsOpen() {
		return apperror.Unauthorized("connection is not registered")
	}
	return apperror.Conflict("connection already has a notebook open")
}

// CloseNotebook unbinds the connection and releases the locks its user held
// in that notebook. Closing an unbound connection is a no-op.
func (s *registryService) CloseNotebook(ctx context.Context, connectionId string, notebookId uuid.UUID, now time.Time) (*entity.Disconnection, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Internal("failed to begin transaction", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().Unbind(ctx, connectionId, notebookId, now)
	if err != nil {
		return nil, apperror.Internal("failed to unbind connection", err)
	}

	result := &entity.Disconnection{Session: session, UnlockedCells: []*entity.Cell{}}
	if session != nil {
		cells, err := uow.CellRepository().ReleaseAllHeldBy(ctx, notebookId, session.UserId, now)
		if err != nil {
			return nil, apperror.Internal("failed to release locks", err)
		}
		result.UnlockedCells = cells
	}

	if err := uow.Commit(); err != nil {
		return nil, apperror.Internal("failed to commit", err)
	}
	return result, nil
}

func (s *registryService) RequireBound(ctx context.Context, connectionId string, notebookId uuid.UUID) (*entity.ActiveSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().FindByConnection(ctx, connectionId)
	if err != nil {
		return nil, apperror.Internal("failed to load connection", err)
	}
	return session, checkBound(session, notebookId)
}

func (s *registryService) ActiveConnections(ctx context.Context, notebookId uuid.UUID) ([]string, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	ids, err := uow.SessionRepository().ActiveConnections(ctx, notebookId)
	if err != nil {
		return nil, apperror.Internal("failed to list connections", err)
	}
	return ids, nil
}

func (s *registryService) ConnectedUsers(ctx context.Context, notebookId uuid.UUID) ([]uuid.UUID, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	ids, err := uow.SessionRepository().ConnectedUsers(ctx, notebookId)
	if err != nil {
		return nil, apperror.Internal("failed to list connected users", err)
	}
	return ids, nil
}

// Disconnect marks the session terminal and releases its locks in one
// transaction. A second call finds the session terminal and returns an empty result.
func (s *registryService) Disconnect(ctx context.Context, connectionId string, now time.Time) (*entity.Disconnection, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Internal("failed to begin transaction", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().MarkDisconnected(ctx, connectionId, now)
	if err != nil {
		return nil, apperror.Internal("failed to close session", err)
	}

	result := &entity.Disconnection{Session: session, UnlockedCells: []*entity.Cell{}}
	if session != nil && session.NotebookId != nil {
		cells, err := uow.CellRepository().ReleaseAllHeldBy(ctx, *session.NotebookId, session.UserId, now)
		if err != nil {
			return nil, apperror.Internal("failed to release locks", err)
		}
		result.UnlockedCells = cells
	}

	if err := uow.Commit(); err != nil {
		return nil, apperror.Internal("failed to commit", err)
	}
	return result, nil
}

func checkBound(session *entity.ActiveSession, notebookId uuid.UUID) error {
	if session == nil || !session.IsOpen() {
		return apperror.Unauthorized("connection is not registered")
	}
	if !session.IsBoundTo(notebookId) {
		return apperror.Forbidden("open the notebook before modifying it")
	}
	return nil
}
