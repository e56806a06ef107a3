package entity

import (
	"time"

	"github.com/google/uuid"
)

type ActiveSession struct {
	ConnectionId   string
	UserId         uuid.UUID
	NotebookId     *uuid.UUID
	ConnectedAt    time.Time
	DisconnectedAt *time.Time
	LastEventAt    time.Time
}

func (s *ActiveSession) IsOpen() bool {
	return s.DisconnectedAt == nil
}

func (s *ActiveSession) IsBoundTo(notebookId uuid.UUID) bool {
	return s.IsOpen() && s.NotebookId != nil && *s.NotebookId == notebookId
}

// Disconnection is what a terminated session left behind.
type Disconnection struct {
	Session       *ActiveSession
	UnlockedCells []*Cell
}

// Revocation is the result of removing users from a notebook.
type Revocation struct {
	UserIds       []uuid.UUID
	ConnectionIds []string
	UnlockedCells []*Cell
}
