package memory

import (
	"context"
	"sort"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/repository/contract"

	"github.com/google/uuid"
)

type AccessRepository struct {
	scope *Scope
}

func NewAccessRepository(scope *Scope) contract.AccessRepository {
	return &AccessRepository{scope: scope}
}

func (r *AccessRepository) GetAccessLevel(ctx context.Context, notebookId, userId uuid.UUID) (entity.AccessLevel, error) {
	var level entity.AccessLevel
	err := r.scope.run(func(d *dataset) error {
		if a, ok := d.access[accessKey{notebookId, userId}]; ok {
			level = a.AccessLevel
		}
		return nil
	})
	return level, err
}

func (r *AccessRepository) Grant(ctx context.Context, grants []*entity.NotebookAccess) error {
	return r.scope.run(func(d *dataset) error {
		for _, g := range grants {
			key := accessKey{g.NotebookId, g.UserId}
			if _, exists := d.access[key]; !exists {
				d.seq++
				d.grantSeq[key] = d.seq
			}
			c := *g
			d.access[key] = &c
		}
		return nil
	})
}

func (r *AccessRepository) Revoke(ctx context.Context, notebookId uuid.UUID, userIds []uuid.UUID) error {
	return r.scope.run(func(d *dataset) error {
		for _, uid := range userIds {
			key := accessKey{notebookId, uid}
			delete(d.access, key)
			delete(d.grantSeq, key)
		}
		return nil
	})
}

func (r *AccessRepository) FindMembers(ctx context.Context, notebookId uuid.UUID) ([]*entity.NotebookMember, error) {
	members := []*entity.NotebookMember{}
	order := map[uuid.UUID]int{}
	err := r.scope.run(func(d *dataset) error {
		for key, a := range d.access {
			if key.notebookId != notebookId {
				continue
			}
			u, ok := d.users[key.userId]
			if !ok {
				continue
			}
			order[u.Id] = d.grantSeq[key]
			members = append(members, &entity.NotebookMember{User: *u, AccessLevel: a.AccessLevel})
		}
		return nil
	})
	sort.Slice(members, func(i, j int) bool {
		return order[members[i].User.Id] < order[members[j].User.Id]
	})
	return members, err
}

func (r *AccessRepository) FindNotebookIdsByUser(ctx context.Context, userId uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.scope.run(func(d *dataset) error {
		for key := range d.access {
			if key.userId == userId {
				ids = append(ids, key.notebookId)
			}
		}
		return nil
	})
	return ids, err
}
