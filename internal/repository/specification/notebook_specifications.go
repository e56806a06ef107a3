package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByNotebookID struct {
	NotebookID uuid.UUID
}

func (s ByNotebookID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("notebook_id = ?", s.NotebookID)
}

type ByUserIDs struct {
	UserIDs []uuid.UUID
}

func (s ByUserIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id IN ?", s.UserIDs)
}
