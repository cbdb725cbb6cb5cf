package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/artmarket-backend/pkg/errors"
)

// IsUniqueViolation reports whether err is a unique constraint violation. Postgres
// errors are matched on SQLSTATE and constraint name; SQLite only exposes text, so
// the message is searched instead. An empty constraintName matches any constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pkgerrors.SQLState(err) == pkgerrors.SQLStateUniqueViolation {
		return constraintName == "" || pkgerrors.ConstraintName(err) == constraintName
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}
