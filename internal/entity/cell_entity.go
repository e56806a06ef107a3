package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	LanguagePython   = "python"
	LanguageMarkdown = "markdown"
)

type Cell struct {
	Id         uuid.UUID
	NotebookId uuid.UUID
	Position   int
	Language   string
	Contents   string
	LockHeldBy *uuid.UUID
	CursorPos  *int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c *Cell) IsLockedBy(userId uuid.UUID) bool {
	return c.LockHeldBy != nil && *c.LockHeldBy == userId
}

// CellEdit is a content change. An empty Language keeps the current one.
type CellEdit struct {
	Contents  string
	Language  string
	CursorPos *int
}

type CellOutput struct {
	NotebookId uuid.UUID
	CellId     uuid.UUID
	UserId     uuid.UUID
	Output     string
	UpdatedAt  time.Time
}
