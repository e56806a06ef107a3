package memory

import (
	"context"
	"errors"
	"time"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/repository/contract"

	"github.com/google/uuid"
)

var ErrDuplicateConnection = errors.New("duplicate connection id")

type SessionRepository struct {
	scope *Scope
}

func NewSessionRepository(scope *Scope) contract.SessionRepository {
	return &SessionRepository{scope: scope}
}

func (r *SessionRepository) Create(ctx context.Context, session *entity.ActiveSession) error {
	return r.scope.run(func(d *dataset) error {
		if _, exists := d.sessions[session.ConnectionId]; exists {
			return ErrDuplicateConnection
		}
		d.sessions[session.ConnectionId] = copySession(session)
		return nil
	})
}

func (r *SessionRepository) FindByConnection(ctx context.Context, connectionId string) (*entity.ActiveSession, error) {
	var found *entity.ActiveSession
	err := r.scope.run(func(d *dataset) error {
		if s, ok := d.sessions[connectionId]; ok {
			found = copySession(s)
		}
		return nil
	})
	return found, err
}

func (r *SessionRepository) Bind(ctx context.Context, connectionId string, notebookId uuid.UUID, at time.Time) (bool, error) {
	bound := false
	err := r.scope.run(func(d *dataset) error {
		s, ok := d.sessions[connectionId]
		if !ok || !s.IsOpen() || s.NotebookId != nil {
			return nil
		}
		nb := notebookId
		s.NotebookId = &nb
		s.LastEventAt = at
		bound = true
		return nil
	})
	return bound, err
}

func (r *SessionRepository) Unbind(ctx context.Context, connectionId string, notebookId uuid.UUID, at time.Time) (*entity.ActiveSession, error) {
	var unbound *entity.ActiveSession
	err := r.scope.run(func(d *dataset) error {
		s, ok := d.sessions[connectionId]
		if !ok || !s.IsBoundTo(notebookId) {
			return nil
		}
		s.NotebookId = nil
		s.LastEventAt = at
		unbound = copySession(s)
		return nil
	})
	return unbound, err
}

func (r *SessionRepository) UnbindUsers(ctx context.Context, notebookId uuid.UUID, userIds []uuid.UUID, at time.Time) ([]*entity.ActiveSession, error) {
	users := make(map[uuid.UUID]struct{}, len(userIds))
	for _, id := range userIds {
		users[id] = struct{}{}
	}

	unbound := []*entity.ActiveSession{}
	err := r.scope.run(func(d *dataset) error {
		for _, s := range d.sessions {
			if _, ok := users[s.UserId]; !ok || !s.IsBoundTo(notebookId) {
				continue
			}
			s.NotebookId = nil
			s.LastEventAt = at
			unbound = append(unbound, copySession(s))
		}
		return nil
	})
	return unbound, err
}

func (r *SessionRepository) MarkDisconnected(ctx context.Context, connectionId string, at time.Time) (*entity.ActiveSession, error) {
	var closed *entity.ActiveSession
	err := r.scope.run(func(d *dataset) error {
		s, ok := d.sessions[connectionId]
		if !ok || !s.IsOpen() {
			return nil
		}
		t := at
		s.DisconnectedAt = &t
		s.LastEventAt = at
		closed = copySession(s)
		return nil
	})
	return closed, err
}

func (r *SessionRepository) Touch(ctx context.Context, connectionId string, at time.Time) error {
	return r.scope.run(func(d *dataset) error {
		if s, ok := d.sessions[connectionId]; ok && s.IsOpen() {
			s.LastEventAt = at
		}
		return nil
	})
}

func (r *SessionRepository) ActiveConnections(ctx context.Context, notebookId uuid.UUID) ([]string, error) {
	ids := []string{}
	err := r.scope.run(func(d *dataset) error {
		for id, s := range d.sessions {
			if s.IsBoundTo(notebookId) {
				ids = append(ids, id)
			}
		}
		return nil
	})
	return ids, err
}

func (r *SessionRepository) ConnectedUsers(ctx context.Context, notebookId uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.scope.run(func(d *dataset) error {
		seen := map[uuid.UUID]struct{}{}
		for _, s := range d.sessions {
			if !s.IsBoundTo(notebookId) {
				continue
			}
			if _, dup := seen[s.UserId]; dup {
				continue
			}
			seen[s.UserId] = struct{}{}
			ids = append(ids, s.UserId)
		}
		return nil
	})
	return ids, err
}
