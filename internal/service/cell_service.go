package service

import (
	"context"
	"time"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/pkg/apperror"
	"actually-colab-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// ICellService is the per-cell lock manager. Every transition is a conditional
// write in the store, so concurrent requests never both succeed.
type ICellService interface {
	Lock(ctx context.Context, connectionId string, userId, notebookId, cellId uuid.UUID) (*entity.Cell, error)
	Unlock(ctx context.Context, connectionId string, userId, notebookId, cellId uuid.UUID, final *entity.CellEdit) (*entity.Cell, error)
	Edit(ctx context.Context, connectionId string, userId, notebookId, cellId uuid.UUID, edit entity.CellEdit) (*entity.Cell, error)
	Create(ctx context.Context, connectionId string, userId, notebookId uuid.UUID, language string, position *int) (*entity.Cell, error)
	Delete(ctx context.Context, connectionId string, userId, notebookId, cellId uuid.UUID) error
	SaveOutput(ctx context.Context, connectionId string, userId, notebookId, cellId uuid.UUID, output string) (*entity.CellOutput, error)
}

type cellService struct {
	uowFactory unitofwork.RepositoryFactory
	access     IAccessService
}

func NewCellService(uowFactory unitofwork.RepositoryFactory, access IAccessService) ICellService {
	return &cellService{
		uowFactory: uowFactory,
		access:     access,
	}
}

func (s *cellService) Lock(ctx context.Context, connectionId string, userId, notebookId, cellId uuid.UUID) (*entity.Cell, error) {
	if err := s.access.AssertCanWrite(ctx, userId, notebookId); err != nil {
		return nil, err
	}

	var cell *entity.Cell
	err := s.mutate(ctx, connectionId, notebookId, false, func(uow unitofwork.UnitOfWork, now time.Time) error {
		locked, err := uow.CellRepository().AcquireLock(ctx, notebookId, cellId, userId, now)
		if err != nil {
			return apperror.Internal("failed to lock cell", err)
		}
		if locked == nil {
			return s.missOr(ctx, uow, notebookId, cellId, apperror.Conflict("cell is locked by another user"))
		}
		cell = locked
		return nil
	})
	return cell, err
}

func (s *cellService) Unlock(ctx context.Context, connectionId string, userId, notebookId, cellId uuid.UUID, final *entity.CellEdit) (*entity.Cell, error) {
	if err := s.access.AssertCanWrite(ctx, userId, notebookId); err != nil {
		return nil, err
	}

	var cell *entity.Cell
	err := s.mutate(ctx, connectionId, notebookId, final != nil, func(uow unitofwork.UnitOfWork, now time.Time) error {
		released, err := uow.CellRepository().ReleaseLock(ctx, notebookId, cellId, userId, final, now)
		if err != nil {
			return apperror.Internal("failed to unlock cell", err)
		}
		if released == nil {
			return s.missOr(ctx, uow, notebookId, cellId, apperror.Conflict("you do not hold the lock on this cell"))
		}
		cell = released
		return nil
	})
	return cell, err
}

func (s *cellService) Edit(ctx context.Context, connectionId string, userId, notebookId, cellId uuid.UUID, edit entity.CellEdit) (*entity.Cell, error) {
	if err := s.access.AssertCanWrite(ctx, userId, notebookId); err != nil {
		return nil, err
	}

	var cell *entity.Cell
	err := s.mutate(ctx, connectionId, notebookId, true, func(uow unitofwork.UnitOfWork, now time.Time) error {
		edited, err := uow.CellRepository().ApplyEdit(ctx, notebookId, cellId, userId, edit, now)
		if err != nil {
			return apperror.Internal("failed to edit cell", err)
		}
		if edited == nil {
			return s.missOr(ctx, uow, notebookId, cellId, apperror.Forbidden("lock the cell before editing it"))
		}
		cell = edited
		return nil
	})
	return cell, err
}

// Create inserts an unlocked cell. A nil or out of range position appends.
func (s *cellService) Create(ctx context.Context, connectionId string, userId, notebookId uuid.UUID, language string, position *int) (*entity.Cell, error) {
	if err := s.access.AssertCanWrite(ctx, userId, notebookId); err != nil {
		return nil, err
	}
	if language != entity.LanguagePython && language != entity.LanguageMarkdown {
		return nil, apperror.BadRequest("unsupported cell language")
	}

	var cell *entity.Cell
	err := s.mutate(ctx, connectionId, notebookId, true, func(uow unitofwork.UnitOfWork, now time.Time) error {
		cells := uow.CellRepository()

		next, err := cells.NextPosition(ctx, notebookId)
		if err != nil {
			return apperror.Internal("failed to read cell positions", err)
		}

		at := next
		if position != nil && *position >= 0 && *position < next {
			at = *position
			if err := cells.ShiftFrom(ctx, notebookId, at); err != nil {
				return apperror.Internal("failed to shift cells", err)
			}
		}

		cell = &entity.Cell{
			Id:         uuid.New(),
			NotebookId: notebookId,
			Position:   at,
			Language:   language,
			Contents:   "",
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := cells.Create(ctx, cell); err != nil {
			return apperror.Internal("failed to create cell", err)
		}
		return nil
	})
	return cell, err
}

func (s *cellService) Delete(ctx context.Context, connectionId string, userId, notebookId, cellId uuid.UUID) error {
	if err := s.access.AssertCanWrite(ctx, userId, notebookId); err != nil {
		return err
	}

	return s.mutate(ctx, connectionId, notebookId, true, func(uow unitofwork.UnitOfWork, now time.Time) error {
		deleted, err := uow.CellRepository().DeleteHeld(ctx, notebookId, cellId, userId)
		if err != nil {
			return apperror.Internal("failed to delete cell", err)
		}
		if !deleted {
			return s.missOr(ctx, uow, notebookId, cellId, apperror.Forbidden("lock the cell before deleting it"))
		}
		return nil
	})
}

// SaveOutput records the caller's latest output for a cell. Outputs are not
// lock protected; the last writer wins.
func (s *cellService) SaveOutput(ctx context.Context, connectionId string, userId, notebookId, cellId uuid.UUID, output string) (*entity.CellOutput, error) {
	if err := s.access.AssertCanWrite(ctx, userId, notebookId); err != nil {
		return nil, err
	}

	var record *entity.CellOutput
	err := s.mutate(ctx, connectionId, notebookId, false, func(uow unitofwork.UnitOfWork, now time.Time) error {
		if err := s.missOr(ctx, uow, notebookId, cellId, nil); err != nil {
			return err
		}
		record = &entity.CellOutput{
			NotebookId: notebookId,
			CellId:     cellId,
			UserId:     userId,
			Output:     output,
			UpdatedAt:  now,
		}
		if err := uow.OutputRepository().Upsert(ctx, record); err != nil {
			return apperror.Internal("failed to save output", err)
		}
		return nil
	})
	return record, err
}

// mutate runs fn in a transaction after checking the connection has the
// notebook open, and stamps the session's last event in the same transaction.
func (s *cellService) mutate(ctx context.Context, connectionId string, notebookId uuid.UUID, touchNotebook bool, fn func(uow unitofwork.UnitOfWork, now time.Time) error) error {
	now := time.Now()
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Internal("failed to begin transaction", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().FindByConnection(ctx, connectionId)
	if err != nil {
		return apperror.Internal("failed to load connection", err)
	}
	if err := checkBound(session, notebookId); err != nil {
		return err
	}

	if err := fn(uow, now); err != nil {
		return err
	}

	if err := uow.SessionRepository().Touch(ctx, connectionId, now); err != nil {
		return apperror.Internal("failed to stamp session", err)
	}
	if touchNotebook {
		if err := uow.NotebookRepository().TouchModified(ctx, notebookId, now); err != nil {
			return apperror.Internal("failed to stamp notebook", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return apperror.Internal("failed to commit", err)
	}
	return nil
}

// missOr reports BadRequest for a cell that does not exist in the notebook,
// otherwise the given error.
func (s *cellService) missOr(ctx context.Context, uow unitofwork.UnitOfWork, notebookId, cellId uuid.UUID, otherwise error) error {
	cell, err := uow.CellRepository().FindById(ctx, notebookId, cellId)
	if err != nil {
		return apperror.Internal("failed to load cell", err)
	}
	if cell == nil {
		return apperror.BadRequest("cell does not exist in this notebook")
	}
	return otherwise
}
