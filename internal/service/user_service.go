package service

import (
	"context"
	"strings"
	"time"

	"actually-colab-be/internal/dto"
	"actually-colab-be/internal/pkg/apperror"
	"actually-colab-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IUserService interface {
	GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserProfileResponse, error)
	UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserProfileResponse, error)
}

type userService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewUserService(uowFactory unitofwork.RepositoryFactory) IUserService {
	return &userService{uowFactory: uowFactory}
}

func (s *userService) GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserProfileResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindById(ctx, userId)
	if err != nil {
		return nil, apperror.Internal("failed to load user", err)
	}
	if user == nil {
		return nil, apperror.Unauthorized("unknown user")
	}

	notebookIds, err := uow.AccessRepository().FindNotebookIdsByUser(ctx, userId)
	if err != nil {
		return nil, apperror.Internal("failed to count notebooks", err)
	}

	return &dto.UserProfileResponse{
		Id:            user.Id,
		Email:         user.Email,
		Name:          user.Name,
		NotebookCount: len(notebookIds),
		CreatedAt:     user.CreatedAt,
	}, nil
}

// UpdateProfile renames the user. Sockets that are already open keep the old
// name in notebook_opened until the identity cache entry expires.
func (s *userService) UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserProfileResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.BadRequest("name must not be blank")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Internal("failed to begin transaction", err)
	}
	defer uow.Rollback()

	ok, err := uow.UserRepository().UpdateName(ctx, userId, name, time.Now())
	if err != nil {
		return nil, apperror.Internal("failed to rename user", err)
	}
	if !ok {
		return nil, apperror.Unauthorized("unknown user")
	}
	if err := uow.Commit(); err != nil {
		return nil, apperror.Internal("failed to commit rename", err)
	}

	return s.GetProfile(ctx, userId)
}
