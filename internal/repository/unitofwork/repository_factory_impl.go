package unitofwork

import (
	"context"

	"actually-colab-be/internal/repository/memory"

	"gorm.io/gorm"
)

type RepositoryFactoryImpl struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &RepositoryFactoryImpl{
		db: db,
	}
}

// NewUnitOfWork is short lived, one per operation.
func (f *RepositoryFactoryImpl) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return NewUnitOfWork(f.db)
}

type MemoryRepositoryFactory struct {
	store *memory.Store
}

func NewMemoryRepositoryFactory(store *memory.Store) RepositoryFactory {
	return &MemoryRepositoryFactory{store: store}
}

func (f *MemoryRepositoryFactory) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return NewMemoryUnitOfWork(f.store)
}
