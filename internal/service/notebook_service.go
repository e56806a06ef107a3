package service

import (
	"context"
	"time"

	"actually-colab-be/internal/dto"
	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/mapper"
	"actually-colab-be/internal/pkg/apperror"
	"actually-colab-be/internal/repository/unitofwork"
	"actually-colab-be/pkg/protocol"

	"github.com/google/uuid"
)

type INotebookService interface {
	GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllNotebookResponse, error)
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateNotebookRequest) (*dto.CreateNotebookResponse, error)
	Contents(ctx context.Context, userId, notebookId uuid.UUID) (*protocol.NotebookContents, error)
	// Snapshot reads the full notebook state without a permission check.
	Snapshot(ctx context.Context, notebookId uuid.UUID) (*protocol.NotebookContents, error)
}

type notebookService struct {
	uowFactory unitofwork.RepositoryFactory
	access     IAccessService
}

func NewNotebookService(uowFactory unitofwork.RepositoryFactory, access IAccessService) INotebookService {
	return &notebookService{
		uowFactory: uowFactory,
		access:     access,
	}
}

func (c *notebookService) GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllNotebookResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	ids, err := uow.AccessRepository().FindNotebookIdsByUser(ctx, userId)
	if err != nil {
		return nil, apperror.Internal("failed to list notebooks", err)
	}

	notebooks, err := uow.NotebookRepository().FindByIds(ctx, ids)
	if err != nil {
		return nil, apperror.Internal("failed to list notebooks", err)
	}

	res := make([]*dto.GetAllNotebookResponse, 0, len(notebooks))
	for _, nb := range notebooks {
		members, err := uow.AccessRepository().FindMembers(ctx, nb.Id)
		if err != nil {
			return nil, apperror.Internal("failed to list notebook users", err)
		}
		res = append(res, &dto.GetAllNotebookResponse{
			Id:        nb.Id,
			Name:      nb.Name,
			Language:  nb.Language,
			UpdatedAt: nb.UpdatedAt,
			Users:     mapper.ToMemberPayloads(members),
		})
	}
	return res, nil
}

// Create stores the notebook and grants its creator Full Access.
func (c *notebookService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateNotebookRequest) (*dto.CreateNotebookResponse, error) {
	language := req.Language
	if language == "" {
		language = entity.LanguagePython
	}

	notebook := &entity.Notebook{
		Id:        uuid.New(),
		Name:      req.Name,
		Language:  language,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Internal("failed to begin transaction", err)
	}
	defer uow.Rollback()

	if err := uow.NotebookRepository().Create(ctx, notebook); err != nil {
		return nil, apperror.Internal("failed to create notebook", err)
	}
	err := uow.AccessRepository().Grant(ctx, []*entity.NotebookAccess{{
		NotebookId:  notebook.Id,
		UserId:      userId,
		AccessLevel: entity.AccessLevelFull,
	}})
	if err != nil {
		return nil, apperror.Internal("failed to grant access", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, apperror.Internal("failed to commit", err)
	}

	return &dto.CreateNotebookResponse{Id: notebook.Id}, nil
}

func (c *notebookService) Contents(ctx context.Context, userId, notebookId uuid.UUID) (*protocol.NotebookContents, error) {
	if _, err := c.access.AssertCanRead(ctx, userId, notebookId); err != nil {
		return nil, err
	}
	return c.Snapshot(ctx, notebookId)
}

func (c *notebookService) Snapshot(ctx context.Context, notebookId uuid.UUID) (*protocol.NotebookContents, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	notebook, err := uow.NotebookRepository().FindById(ctx, notebookId)
	if err != nil {
		return nil, apperror.Internal("failed to load notebook", err)
	}
	if notebook == nil {
		return nil, apperror.BadRequest("notebook does not exist")
	}

	members, err := uow.AccessRepository().FindMembers(ctx, notebookId)
	if err != nil {
		return nil, apperror.Internal("failed to load notebook users", err)
	}
	cells, err := uow.CellRepository().FindAllByNotebook(ctx, notebookId)
	if err != nil {
		return nil, apperror.Internal("failed to load cells", err)
	}
	connected, err := uow.SessionRepository().ConnectedUsers(ctx, notebookId)
	if err != nil {
		return nil, apperror.Internal("failed to load connected users", err)
	}

	contents := mapper.ToNotebookContents(notebook, members, cells, connected)
	return &contents, nil
}
