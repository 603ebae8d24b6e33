package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Shared sentinel errors for the data layer.
var (
	// ErrUserNotFound is returned when no identity matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrStoreUnavailable is returned when the backing store cannot be
	// reached. It is deliberately distinct from ErrUserNotFound so callers
	// can tell "no such user" apart from "lookups are broken" and avoid
	// degrading infrastructure failures into anonymous results.
	ErrStoreUnavailable = errors.New("user store unavailable")
)

// classifyStoreError wraps infrastructure-class failures in
// ErrStoreUnavailable and passes everything else through.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgerrcode.IsOperatorIntervention(pgErr.Code),
			pgerrcode.IsInsufficientResources(pgErr.Code):
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, pgErr)
		default:
			return err
		}
	}

	// Non-postgres failures from the driver (dial errors, closed pools)
	// also mean the store is unreachable.
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return err
}
