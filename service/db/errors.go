package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicateSignature means a buy with this signature was already
	// recorded. Callers treat it as a benign idempotent retry.
	ErrDuplicateSignature = errors.New("db: buy signature already recorded")

	// ErrOpenPositionExists means the (wallet, token) pair already has an
	// open position, so a second one cannot be opened.
	ErrOpenPositionExists = errors.New("db: open position already exists for wallet and token")

	// ErrNoOpenPosition means a sell arrived with no matching open position.
	ErrNoOpenPosition = errors.New("db: no open position for wallet and token")

	// ErrWalletNotFound means the requested wallet is not tracked.
	ErrWalletNotFound = errors.New("db: wallet not found")
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// constraintViolated returns the name of the violated unique constraint, or
// "" if err is not a unique violation.
func constraintViolated(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}
