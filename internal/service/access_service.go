package service

import (
	"context"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/pkg/apperror"
	"actually-colab-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// IAccessService is the permission gate every collaborative operation passes first.
// It always reads the store.
type IAccessService interface {
	AssertCanRead(ctx context.Context, userId, notebookId uuid.UUID) (entity.AccessLevel, error)
	AssertCanWrite(ctx context.Context, userId, notebookId uuid.UUID) error
}

type accessService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewAccessService(uowFactory unitofwork.RepositoryFactory) IAccessService {
	return &accessService{uowFactory: uowFactory}
}

func (s *accessService) AssertCanRead(ctx context.Context, userId, notebookId uuid.UUID) (entity.AccessLevel, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	level, err := uow.AccessRepository().GetAccessLevel(ctx, notebookId, userId)
	if err != nil {
		return "", apperror.Internal("failed to read access level", err)
	}
	if !level.Valid() {
		return "", apperror.Forbidden("you do not have access to this notebook")
	}
	return level, nil
}

func (s *accessService) AssertCanWrite(ctx context.Context, userId, notebookId uuid.UUID) error {
	level, err := s.AssertCanRead(ctx, userId, notebookId)
	if err != nil {
		return err
	}
	if !level.CanWrite() {
		return apperror.Forbidden("this action requires Full Access")
	}
	return nil
}
