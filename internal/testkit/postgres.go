//go:build integration

package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ovaphlow/pitchfork/service-community-go/pkg/database"
)

// StartPostgres runs a throwaway PostgreSQL container with the embedded
// migrations applied. The container is terminated when the test ends.
func StartPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("community"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := pg.Terminate(ctx); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	if err := database.MigrateUp(dsn, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := database.Connect(database.Config{DSN: dsn, MaxConns: 4, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	db := sqlx.NewDb(sqlDB, "postgres")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// SeedUser inserts a users row.
func SeedUser(t *testing.T, db *sqlx.DB, id, username, first, last, image string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, username, first_name, last_name, image) VALUES ($1, $2, $3, $4, $5)`,
		id, username, first, last, image)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}
