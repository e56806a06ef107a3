package main

import (
	"context"
	"log"
	"time"

	"actually-colab-be/internal/bootstrap"
	"actually-colab-be/internal/config"
	"actually-colab-be/internal/pkg/serverutils"
	"actually-colab-be/internal/repository/unitofwork"
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

	log.Println("Seeding demo users and notebook...")
	demo, err := bootstrap.SeedDemo(context.Background(), unitofwork.NewRepositoryFactory(db), "Alice", "Bob")
	if err != nil {
		log.Fatalf("Error: seeding failed: %v", err)
	}

	log.Printf("Notebook: %s", demo.NotebookId)
	for _, u := range demo.Users {
		line := u.Email + " " + u.Id.String()
		if cfg.Auth.JWTSecret != "" {
			token, err := serverutils.IssueToken(cfg.Auth.JWTSecret, u.Id, 24*time.Hour)
			if err != nil {
				log.Fatalf("Error: issuing token: %v", err)
			}
			line += " token=" + token
		}
		log.Println(line)
	}
	log.Println("Seeding completed!")
}
