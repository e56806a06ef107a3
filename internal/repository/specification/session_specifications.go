package specification

import "gorm.io/gorm"

type ByConnectionID struct {
	ConnectionID string
}

func (s ByConnectionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("connection_id = ?", s.ConnectionID)
}

// OpenSession excludes terminated sessions.
type OpenSession struct{}

func (s OpenSession) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("disconnected_at IS NULL")
}

type Unbound struct{}

func (s Unbound) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("notebook_id IS NULL")
}
