package model

import (
	"time"

	"github.com/google/uuid"
)

// ActiveSession is one socket connection. A non-null DisconnectedAt is terminal.
type ActiveSession struct {
	ConnectionId   string     `gorm:"type:varchar(64);primaryKey"`
	UserId         uuid.UUID  `gorm:"type:uuid;not null;index"`
	NotebookId     *uuid.UUID `gorm:"type:uuid;index:idx_active_sessions_notebook,priority:1"`
	ConnectedAt    time.Time  `gorm:"not null"`
	DisconnectedAt *time.Time `gorm:"index:idx_active_sessions_notebook,priority:2"`
	LastEventAt    time.Time  `gorm:"not null"`
}

func (ActiveSession) TableName() string {
	return "active_sessions"
}
