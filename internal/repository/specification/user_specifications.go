package specification

import (
	"strings"

	"gorm.io/gorm"
)

type ByEmail struct {
	Email string
}

func (s ByEmail) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("LOWER(email) = ?", strings.ToLower(s.Email))
}

// ByEmails matches case-insensitively.
type ByEmails struct {
	Emails []string
}

func (s ByEmails) Apply(db *gorm.DB) *gorm.DB {
	lowered := make([]string, len(s.Emails))
	for i, e := range s.Emails {
		lowered[i] = strings.ToLower(e)
	}
	return db.Where("LOWER(email) IN ?", lowered)
}
