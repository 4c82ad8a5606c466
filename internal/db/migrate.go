package db

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
)

func ApplyMigrationFile(db *sql.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := db.Exec(string(b)); err != nil && !isDuplicateErr(err) {
		return fmt.Errorf("apply migration: %w", err)
	}

	// Backward-compatible patching for schema revisions that predate the
	// profile picture column.
	for _, stmt := range []string{
		`ALTER TABLE employees ADD COLUMN profile_picture TEXT`,
	} {
		if _, err := db.Exec(stmt); err != nil && !isDuplicateErr(err) {
			return fmt.Errorf("apply compatibility migration %q: %w", stmt, err)
		}
	}
	return nil
}

func isDuplicateErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}
