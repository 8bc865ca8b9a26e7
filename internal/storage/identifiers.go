package storage

import (
	"fmt"
	"regexp"
)

var (
	tableNamePattern    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	databaseNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidTableName reports whether name is a plain or schema-qualified SQL
// identifier that is safe to interpolate into a query.
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}

// CheckTableName returns an error wrapping ErrInvalidInput unless name is a
// valid table name. role names the table in the message.
func CheckTableName(role, name string) error {
	if !ValidTableName(name) {
		return fmt.Errorf("%s table %q: %w", role, name, ErrInvalidInput)
	}
	return nil
}

// CheckDatabaseName returns an error wrapping ErrInvalidInput unless name is a
// plain unqualified identifier.
func CheckDatabaseName(name string) error {
	if !databaseNamePattern.MatchString(name) {
		return fmt.Errorf("database %q: %w", name, ErrInvalidInput)
	}
	return nil
}
