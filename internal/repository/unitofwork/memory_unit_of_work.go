package unitofwork

import (
	"context"
	"fmt"

	"actually-colab-be/internal/repository/contract"
	"actually-colab-be/internal/repository/memory"
)

// MemoryUnitOfWork serializes transactions on the store lock.
// Rollback restores the snapshot taken at Begin.
type MemoryUnitOfWork struct {
	scope *memory.Scope
}

func NewMemoryUnitOfWork(store *memory.Store) UnitOfWork {
	return &MemoryUnitOfWork{scope: store.NewScope()}
}

func (u *MemoryUnitOfWork) Begin(ctx context.Context) error {
	if u.scope.InTx() {
		return fmt.Errorf("transaction already started")
	}
	u.scope.Begin()
	return nil
}

func (u *MemoryUnitOfWork) Commit() error {
	if !u.scope.InTx() {
		return fmt.Errorf("no transaction to commit")
	}
	u.scope.Commit()
	return nil
}

func (u *MemoryUnitOfWork) Rollback() error {
	if !u.scope.InTx() {
		return fmt.Errorf("no transaction to rollback")
	}
	u.scope.Rollback()
	return nil
}

func (u *MemoryUnitOfWork) UserRepository() contract.UserRepository {
	return memory.NewUserRepository(u.scope)
}

func (u *MemoryUnitOfWork) NotebookRepository() contract.NotebookRepository {
	return memory.NewNotebookRepository(u.scope)
}

func (u *MemoryUnitOfWork) AccessRepository() contract.AccessRepository {
	return memory.NewAccessRepository(u.scope)
}

func (u *MemoryUnitOfWork) CellRepository() contract.CellRepository {
	return memory.NewCellRepository(u.scope)
}

func (u *MemoryUnitOfWork) OutputRepository() contract.OutputRepository {
	return memory.NewOutputRepository(u.scope)
}

func (u *MemoryUnitOfWork) SessionRepository() contract.SessionRepository {
	return memory.NewSessionRepository(u.scope)
}
