package repository

import (
	"context"
	"database/sql"
	"errors"

	"price-catalog/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories translate into domain errors
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repositories need,
// so the same repository can run inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

func pgErrorCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isUniqueViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgUniqueViolation
}

// foreignKeyViolation returns the violated constraint name, or "" if err is not a foreign key violation
func foreignKeyViolation(err error) string {
	code, constraint := pgErrorCode(err)
	if code != pgForeignKeyViolation {
		return ""
	}
	return constraint
}

func checkRowsAffected(result sql.Result, op string, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return domain.NewStorageError(op, err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
