package service

import (
	"context"
	"strings"
	"time"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/pkg/apperror"
	"actually-colab-be/internal/repository/unitofwork"
	"actually-colab-be/pkg/events"

	"github.com/google/uuid"
)

// IShareService changes who can see a notebook.
type IShareService interface {
	Grant(ctx context.Context, sharer *entity.User, notebookId uuid.UUID, emails []string, level entity.AccessLevel) ([]*entity.NotebookMember, error)
	Revoke(ctx context.Context, requester *entity.User, notebookId uuid.UUID, emails []string) (*entity.Revocation, error)
}

type shareService struct {
	uowFactory unitofwork.RepositoryFactory
	access     IAccessService
	notifier   INotificationService
}

func NewShareService(uowFactory unitofwork.RepositoryFactory, access IAccessService, notifier INotificationService) IShareService {
	return &shareService{
		uowFactory: uowFactory,
		access:     access,
		notifier:   notifier,
	}
}

// Grant upserts the level for every known user among emails.
func (s *shareService) Grant(ctx context.Context, sharer *entity.User, notebookId uuid.UUID, emails []string, level entity.AccessLevel) ([]*entity.NotebookMember, error) {
	if err := s.precheck(ctx, sharer, notebookId, emails); err != nil {
		return nil, err
	}
	if !level.Valid() {
		return nil, apperror.BadRequest("unknown access level")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Internal("failed to begin transaction", err)
	}
	defer uow.Rollback()

	notebook, err := uow.NotebookRepository().FindById(ctx, notebookId)
	if err != nil {
		return nil, apperror.Internal("failed to load notebook", err)
	}
	if notebook == nil {
		return nil, apperror.BadRequest("notebook does not exist")
	}

	users, err := uow.UserRepository().FindByEmails(ctx, emails)
	if err != nil {
		return nil, apperror.Internal("failed to resolve users", err)
	}
	if len(users) == 0 {
		return nil, apperror.BadRequest("none of these emails belong to a user")
	}

	grants := make([]*entity.NotebookAccess, len(users))
	members := make([]*entity.NotebookMember, len(users))
	invited := make([]string, len(users))
	for i, u := range users {
		grants[i] = &entity.NotebookAccess{NotebookId: notebookId, UserId: u.Id, AccessLevel: level}
		members[i] = &entity.NotebookMember{User: *u, AccessLevel: level}
		invited[i] = u.Email
	}
	if err := uow.AccessRepository().Grant(ctx, grants); err != nil {
		return nil, apperror.Internal("failed to grant access", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, apperror.Internal("failed to commit", err)
	}

	if s.notifier != nil {
		s.notifier.NotebookShared(events.NotebookShared{
			NotebookId:   notebookId.String(),
			NotebookName: notebook.Name,
			SharerName:   sharer.Name,
			AccessLevel:  string(level),
			Emails:       invited,
			OccurredAt:   time.Now(),
		})
	}
	return members, nil
}

// Revoke removes the grants, unbinds the revoked users' connections from the
// notebook and releases their locks, all in one transaction.
func (s *shareService) Revoke(ctx context.Context, requester *entity.User, notebookId uuid.UUID, emails []string) (*entity.Revocation, error) {
	if err := s.precheck(ctx, requester, notebookId, emails); err != nil {
		return nil, err
	}

	now := time.Now()
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Internal("failed to begin transaction", err)
	}
	defer uow.Rollback()

	users, err := uow.UserRepository().FindByEmails(ctx, emails)
	if err != nil {
		return nil, apperror.Internal("failed to resolve users", err)
	}

	result := &entity.Revocation{
		UserIds:       make([]uuid.UUID, 0, len(users)),
		ConnectionIds: []string{},
		UnlockedCells: []*entity.Cell{},
	}
	for _, u := range users {
		result.UserIds = append(result.UserIds, u.Id)
	}
	if len(result.UserIds) == 0 {
		return result, nil
	}

	if err := uow.AccessRepository().Revoke(ctx, notebookId, result.UserIds); err != nil {
		return nil, apperror.Internal("failed to revoke access", err)
	}

	sessions, err := uow.SessionRepository().UnbindUsers(ctx, notebookId, result.UserIds, now)
	if err != nil {
		return nil, apperror.Internal("failed to unbind connections", err)
	}
	for _, sess := range sessions {
		result.ConnectionIds = append(result.ConnectionIds, sess.ConnectionId)
	}

	for _, uid := range result.UserIds {
		cells, err := uow.CellRepository().ReleaseAllHeldBy(ctx, notebookId, uid, now)
		if err != nil {
			return nil, apperror.Internal("failed to release locks", err)
		}
		result.UnlockedCells = append(result.UnlockedCells, cells...)
	}

	if err := uow.Commit(); err != nil {
		return nil, apperror.Internal("failed to commit", err)
	}
	return result, nil
}

func (s *shareService) precheck(ctx context.Context, requester *entity.User, notebookId uuid.UUID, emails []string) error {
	if err := s.access.AssertCanWrite(ctx, requester.Id, notebookId); err != nil {
		return err
	}
	if len(emails) == 0 {
		return apperror.BadRequest("at least one email is required")
	}
	for _, e := range emails {
		if strings.EqualFold(strings.TrimSpace(e), requester.Email) {
			return apperror.BadRequest("you cannot change your own access")
		}
	}
	return nil
}
