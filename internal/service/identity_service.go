package service

import (
	"context"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/pkg/apperror"
	"actually-colab-be/internal/repository/memory"
	"actually-colab-be/internal/repository/unitofwork"
)

// IIdentityService resolves the user behind a connection.
type IIdentityService interface {
	UserFromConnection(ctx context.Context, connectionId string) (*entity.User, error)
	Forget(connectionId string)
}

type identityService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *memory.IdentityCache
}

func NewIdentityService(uowFactory unitofwork.RepositoryFactory, cache *memory.IdentityCache) IIdentityService {
	return &identityService{uowFactory: uowFactory, cache: cache}
}

func (s *identityService) UserFromConnection(ctx context.Context, connectionId string) (*entity.User, error) {
	if user, ok := s.cache.Get(connectionId); ok {
		return user, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().FindByConnection(ctx, connectionId)
	if err != nil {
		return nil, apperror.Internal("failed to load connection", err)
	}
	if session == nil || !session.IsOpen() {
		return nil, apperror.Unauthorized("connection is not registered")
	}

	user, err := uow.UserRepository().FindById(ctx, session.UserId)
	if err != nil {
		return nil, apperror.Internal("failed to load user", err)
	}
	if user == nil {
		return nil, apperror.Unauthorized("unknown user")
	}

	s.cache.Save(connectionId, user)
	return user, nil
}

func (s *identityService) Forget(connectionId string) {
	s.cache.Delete(connectionId)
}
