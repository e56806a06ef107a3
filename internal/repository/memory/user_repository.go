package memory

import (
	"context"
	"errors"
	"strings"
	"time"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/repository/contract"

	"github.com/google/uuid"
)

var ErrDuplicateEmail = errors.New("duplicate email")

type UserRepository struct {
	scope *Scope
}

func NewUserRepository(scope *Scope) contract.UserRepository {
	return &UserRepository{scope: scope}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	return r.scope.run(func(d *dataset) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, user.Email) {
				return ErrDuplicateEmail
			}
		}
		if user.Id == uuid.Nil {
			user.Id = uuid.New()
		}
		now := time.Now()
		user.CreatedAt, user.UpdatedAt = now, now
		u := *user
		d.users[u.Id] = &u
		return nil
	})
}

func (r *UserRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var found *entity.User
	err := r.scope.run(func(d *dataset) error {
		if u, ok := d.users[id]; ok {
			c := *u
			found = &c
		}
		return nil
	})
	return found, err
}

func (r *UserRepository) FindByEmails(ctx context.Context, emails []string) ([]*entity.User, error) {
	wanted := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		wanted[strings.ToLower(e)] = struct{}{}
	}

	users := []*entity.User{}
	err := r.scope.run(func(d *dataset) error {
		for _, u := range d.users {
			if _, ok := wanted[strings.ToLower(u.Email)]; ok {
				c := *u
				users = append(users, &c)
			}
		}
		return nil
	})
	return users, err
}

func (r *UserRepository) UpdateName(ctx context.Context, id uuid.UUID, name string, at time.Time) (bool, error) {
	updated := false
	err := r.scope.run(func(d *dataset) error {
		if u, ok := d.users[id]; ok {
			u.Name = name
			u.UpdatedAt = at
			updated = true
		}
		return nil
	})
	return updated, err
}
