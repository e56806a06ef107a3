package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// DemoData is what SeedDemo created.
type DemoData struct {
	Users      []*entity.User
	NotebookId uuid.UUID
}

// SeedDemo creates one user per name, a notebook shared between them with
// Full Access and a couple of starter cells.
func SeedDemo(ctx context.Context, factory unitofwork.RepositoryFactory, names ...string) (*DemoData, error) {
	uow := factory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	now := time.Now()
	data := &DemoData{NotebookId: uuid.New()}

	for _, name := range names {
		user := &entity.User{
			Id:    uuid.New(),
			Name:  name,
			Email: strings.ToLower(name) + "@example.com",
		}
		if err := uow.UserRepository().Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user %s: %w", name, err)
		}
		data.Users = append(data.Users, user)
	}

	notebook := &entity.Notebook{
		Id:        data.NotebookId,
		Name:      "Demo notebook",
		Language:  entity.LanguagePython,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uow.NotebookRepository().Create(ctx, notebook); err != nil {
		return nil, fmt.Errorf("create notebook: %w", err)
	}

	grants := make([]*entity.NotebookAccess, 0, len(data.Users))
	for _, u := range data.Users {
		grants = append(grants, &entity.NotebookAccess{
			NotebookId:  notebook.Id,
			UserId:      u.Id,
			AccessLevel: entity.AccessLevelFull,
		})
	}
	if err := uow.AccessRepository().Grant(ctx, grants); err != nil {
		return nil, fmt.Errorf("grant access: %w", err)
	}

	starters := []struct {
		language string
		contents string
	}{
		{entity.LanguageMarkdown, "# Demo notebook"},
		{entity.LanguagePython, "print('hello')"},
	}
	for i, s := range starters {
		cell := &entity.Cell{
			Id:         uuid.New(),
			NotebookId: notebook.Id,
			Position:   i,
			Language:   s.language,
			Contents:   s.contents,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := uow.CellRepository().Create(ctx, cell); err != nil {
			return nil, fmt.Errorf("create cell: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return data, nil
}
