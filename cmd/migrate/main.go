package main

import (
	"log"

	"actually-colab-be/internal/config"
	"actually-colab-be/internal/model"
	"actually-colab-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create pgcrypto: %v. Continuing...", err)
	}

	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.User{},
		&model.Notebook{},
		&model.NotebookAccessLevel{},
		&model.Cell{},
		&model.CellOutput{},
		&model.ActiveSession{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 3: Creating partial indexes...")
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_active_sessions_open ON active_sessions (notebook_id) WHERE disconnected_at IS NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_cells_lock_held_by ON cells (notebook_id, lock_held_by) WHERE lock_held_by IS NOT NULL;`,
	}
	for _, sql := range indexes {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to create index: %v", err)
		}
	}

	log.Println("Migration completed!")
}
