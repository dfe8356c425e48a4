package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/seedbridge/crm-portal/internal/infrastructure/database"
)

var (
	pgOnce sync.Once
	pgDSN  string
	pgErr  error
)

// setupTestDB starts one PostgreSQL container for the whole package run,
// applies the migrations once, and returns a fresh connection to it.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres tests skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	pgOnce.Do(func() {
		pgDSN, pgErr = startPostgres()
	})
	if pgErr != nil {
		t.Fatalf("failed to set up test database: %v", pgErr)
	}

	db, err := gorm.Open(postgres.Open(pgDSN), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { _ = database.CloseDB(db) })
	return db
}

func startPostgres() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "crm",
				"POSTGRES_PASSWORD": "crm",
				"POSTGRES_DB":       "crm_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("mapped port: %w", err)
	}
	dsn := fmt.Sprintf("postgres://crm:crm@%s:%s/crm_test?sslmode=disable", host, port.Port())

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return "", fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = database.CloseDB(db) }()

	if _, err := database.Migrate(db, migrationsDir(), migrate.Up, 0); err != nil {
		return "", err
	}
	return dsn, nil
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}
