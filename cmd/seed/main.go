package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/adiwijaya/identity-service/config"
	"github.com/adiwijaya/identity-service/internal/domain/entity"
	pginfra "github.com/adiwijaya/identity-service/internal/infrastructure/postgres"
)

// Seeds a demo account for local development.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	u, err := entity.NewUser("demo@example.com", "DemoPass123")
	if err != nil {
		log.Fatalf("failed to build demo user: %v", err)
	}
	u.Extra = map[string]any{"display_name": "Demo User"}

	raw, err := json.Marshal(u.Document())
	if err != nil {
		log.Fatalf("failed to encode demo user: %v", err)
	}

	var id string
	err = pool.QueryRow(ctx, `
		INSERT INTO users (id, doc) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
		RETURNING id
	`, u.ID, raw).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", id, u.Email, u.Password)
}
