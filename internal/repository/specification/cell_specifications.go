package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CellInNotebook pins a single cell to the notebook it must belong to.
type CellInNotebook struct {
	NotebookID uuid.UUID
	CellID     uuid.UUID
}

func (s CellInNotebook) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ? AND notebook_id = ?", s.CellID, s.NotebookID)
}

type Unlocked struct{}

func (s Unlocked) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("lock_held_by IS NULL")
}

type LockHeldBy struct {
	UserID uuid.UUID
}

func (s LockHeldBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("lock_held_by = ?", s.UserID)
}

type PositionFrom struct {
	Position int
}

func (s PositionFrom) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("position >= ?", s.Position)
}
