package unitofwork

import (
	"context"

	"actually-colab-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	NotebookRepository() contract.NotebookRepository
	AccessRepository() contract.AccessRepository
	CellRepository() contract.CellRepository
	OutputRepository() contract.OutputRepository
	SessionRepository() contract.SessionRepository
}
