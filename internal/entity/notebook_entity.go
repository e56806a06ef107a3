package entity

import (
	"time"

	"github.com/google/uuid"
)

type Notebook struct {
	Id        uuid.UUID
	Name      string
	Language  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AccessLevel string

const (
	AccessLevelFull     AccessLevel = "Full Access"
	AccessLevelReadOnly AccessLevel = "Read Only"
)

func (a AccessLevel) Valid() bool {
	return a == AccessLevelFull || a == AccessLevelReadOnly
}

func (a AccessLevel) CanWrite() bool {
	return a == AccessLevelFull
}

type NotebookAccess struct {
	NotebookId  uuid.UUID
	UserId      uuid.UUID
	AccessLevel AccessLevel
}

// NotebookMember is a user together with their grant on a notebook.
type NotebookMember struct {
	User        User
	AccessLevel AccessLevel
}
