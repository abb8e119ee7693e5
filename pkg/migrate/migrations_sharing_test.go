package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSharingMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_sharing.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no sharing migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE profile_shares",
		"PRIMARY KEY (profile_id, target_account_id)",
		"permissions text[] NOT NULL",
		"CREATE TABLE profile_invites",
		"code text PRIMARY KEY",
		"consumed boolean NOT NULL DEFAULT false",
		"DROP TABLE profile_invites",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEveryMigrationHasDown(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration files found")
	}
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if !strings.Contains(string(data), "-- +goose Down") {
			t.Errorf("%s has no down migration", filepath.Base(path))
		}
	}
}
