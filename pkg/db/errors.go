package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const sqlStateUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraintName is set the violation must also name that constraint
// (or, on sqlite, the indexed column list the message carries instead).
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == sqlStateUniqueViolation &&
			(constraintName == "" || pgxErr.ConstraintName == constraintName)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == sqlStateUniqueViolation &&
			(constraintName == "" || pqErr.Constraint == constraintName)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return constraintName == "" || matchesSQLiteColumns(msg, constraintName)
	case strings.Contains(msg, "duplicate key value"):
		return constraintName == "" || strings.Contains(msg, constraintName)
	}
	return false
}

// sqlite reports "UNIQUE constraint failed: orders.payment_id"; the index
// names used here follow ux_<table>_<column>.
func matchesSQLiteColumns(msg, constraintName string) bool {
	idx := strings.Index(msg, "UNIQUE constraint failed:")
	if idx < 0 {
		return false
	}
	cols := strings.TrimSpace(msg[idx+len("UNIQUE constraint failed:"):])
	for _, col := range strings.Split(cols, ",") {
		col = strings.TrimSpace(col)
		table, column, ok := strings.Cut(col, ".")
		if !ok {
			continue
		}
		if constraintName == "ux_"+table+"_"+column {
			return true
		}
	}
	return false
}
