package model

import (
	"time"

	"github.com/google/uuid"
)

type Notebook struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Language  string    `gorm:"type:varchar(20);not null;default:'python'"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Notebook) TableName() string {
	return "notebooks"
}

// NotebookAccessLevel is the sharing grant of one user on one notebook.
type NotebookAccessLevel struct {
	NotebookId  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId      uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	AccessLevel string    `gorm:"type:varchar(20);not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (NotebookAccessLevel) TableName() string {
	return "notebook_access_levels"
}
