package scope

import "gorm.io/gorm"

func OrderByCreatedAsc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// OrderByPosition keeps notebook cells in display order.
func OrderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("created_at ASC")
}
