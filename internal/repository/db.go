package repository

import (
	"context"
	"errors"
	"fmt"

	apperrors "event-ticketing/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by the repositories.
// pgx.Tx satisfies it too, so tx-scoped helpers accept either.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// postgres error codes
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// classify maps driver errors onto the application error taxonomy.
// Sentinels already in the chain are passed through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w", op, apperrors.ErrDuplicateActiveBooking)
		case codeCheckViolation, codeForeignKeyViolation:
			return wrapWithDetail(op, apperrors.ErrConstraintViolation, pgErr.ConstraintName)
		case codeSerializationFailure, codeDeadlockDetected:
			return wrapWithDetail(op, apperrors.ErrStoreUnavailable, pgErr.Message)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, apperrors.ErrStoreUnavailable, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

// wrapWithDetail appends detail only when the driver supplied one.
func wrapWithDetail(op string, sentinel error, detail string) error {
	if detail == "" {
		return fmt.Errorf("%s: %w", op, sentinel)
	}
	return fmt.Errorf("%s: %w: %s", op, sentinel, detail)
}
