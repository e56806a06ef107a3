package model

import (
	"time"

	"github.com/google/uuid"
)

type Cell struct {
	Id         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NotebookId uuid.UUID  `gorm:"type:uuid;not null;index:idx_cells_notebook_position,priority:1"`
	Position   int        `gorm:"not null;default:0;index:idx_cells_notebook_position,priority:2"`
	Language   string     `gorm:"type:varchar(20);not null"`
	Contents   string     `gorm:"type:text;not null;default:''"`
	LockHeldBy *uuid.UUID `gorm:"type:uuid;index"`
	CursorPos  *int
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (Cell) TableName() string {
	return "cells"
}

// CellOutput stores the latest output a user produced for a cell.
type CellOutput struct {
	NotebookId uuid.UUID `gorm:"type:uuid;primaryKey"`
	CellId     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Output     string    `gorm:"type:text;not null"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (CellOutput) TableName() string {
	return "cell_outputs"
}
