package mapper

import (
	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/model"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToEntity(s *model.ActiveSession) *entity.ActiveSession {
	if s == nil {
		return nil
	}
	return &entity.ActiveSession{
		ConnectionId:   s.ConnectionId,
		UserId:         s.UserId,
		NotebookId:     s.NotebookId,
		ConnectedAt:    s.ConnectedAt,
		DisconnectedAt: s.DisconnectedAt,
		LastEventAt:    s.LastEventAt,
	}
}

func (m *SessionMapper) ToModel(s *entity.ActiveSession) *model.ActiveSession {
	if s == nil {
		return nil
	}
	return &model.ActiveSession{
		ConnectionId:   s.ConnectionId,
		UserId:         s.UserId,
		NotebookId:     s.NotebookId,
		ConnectedAt:    s.ConnectedAt,
		DisconnectedAt: s.DisconnectedAt,
		LastEventAt:    s.LastEventAt,
	}
}

func (m *SessionMapper) ToEntities(sessions []model.ActiveSession) []*entity.ActiveSession {
	entities := make([]*entity.ActiveSession, len(sessions))
	for i := range sessions {
		entities[i] = m.ToEntity(&sessions[i])
	}
	return entities
}
