package database

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"catalog-admin/internal/config"
)

const migrationsDir = "../../migrations"

func TestMigrationFilesExist(t *testing.T) {
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		t.Fatal("Migrations directory does not exist")
	}

	expectedMigrations := []string{
		"00001_create_admin_sessions_table.sql",
		"00002_index_admin_sessions_expiry.sql",
	}

	for _, migration := range expectedMigrations {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		content, err := os.ReadFile(filepath.Join(migrationsDir, file.Name()))
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", file.Name(), err)
			continue
		}

		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			if !strings.Contains(string(content), directive) {
				t.Errorf("Migration file %s missing '%s' directive", file.Name(), directive)
			}
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestSessionsTableColumns(t *testing.T) {
	content, err := os.ReadFile(filepath.Join(migrationsDir, "00001_create_admin_sessions_table.sql"))
	if err != nil {
		t.Fatalf("Failed to read sessions migration: %v", err)
	}

	for _, column := range []string{"id UUID PRIMARY KEY", "access_token", "refresh_token", "expires_at"} {
		if !strings.Contains(string(content), column) {
			t.Errorf("admin_sessions migration is missing %q", column)
		}
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "admin",
		Password: "p@ss word",
		Database: "console",
		Schema:   "public",
	})

	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("DSN is not a URL: %v", err)
	}
	if pwd, _ := u.User.Password(); pwd != "p@ss word" {
		t.Errorf("password = %q", pwd)
	}
	if u.Host != "db:5432" || u.Path != "/console" {
		t.Errorf("host/path = %s %s", u.Host, u.Path)
	}
	if u.Query().Get("search_path") != "public" || u.Query().Get("sslmode") != "disable" {
		t.Errorf("query = %s", u.RawQuery)
	}
}
