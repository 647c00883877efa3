package testutil

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/code-sleuth/ike-tube/pkg/db"

	"github.com/joho/godotenv"
)

// SetupTestDB creates a test database connection and runs migrations for the
// given embedding dimension. It skips the test when no database is configured.
func SetupTestDB(t *testing.T, dimension int) *sql.DB {
	t.Helper()
	// Load environment variables from .env file
	if err := LoadEnvFromFile("../../../.env"); err != nil {
		t.Logf("No .env file loaded: %v", err)
	}

	dbURL := os.Getenv("TURSO_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TURSO_DATABASE_URL not set - skipping integration test")
	}

	database, err := db.Open(dbURL, os.Getenv("TURSO_AUTH_TOKEN"))
	if errors.Is(err, db.ErrAuthTokenRequired) {
		t.Skip("TURSO_AUTH_TOKEN not set for remote database - skipping integration test")
	}
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := database.Migrate(context.Background(), dimension); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	// Ensure database is clean for testing
	cleanupTestData(t, database.DB)

	return database.DB
}

// CleanupTestDB performs cleanup after tests.
func CleanupTestDB(t *testing.T, database *sql.DB) {
	t.Helper()
	if database == nil {
		return
	}

	cleanupTestData(t, database)
	database.Close()
}

// cleanupTestData removes the rows written by integration tests.
func cleanupTestData(t *testing.T, database *sql.DB) {
	t.Helper()
	if _, err := database.Exec(`DELETE FROM vectors WHERE namespace LIKE 'integration-test-%'`); err != nil {
		t.Logf("Warning: Failed to clean vectors: %v", err)
	}
}

// LoadEnvFromFile loads environment variables from a dotenv file without
// overriding variables already set.
func LoadEnvFromFile(filepath string) error {
	return godotenv.Load(filepath)
}
