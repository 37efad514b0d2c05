package database

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tribu-research/challenge-backend/internal/apperr"
)

// IsConnectionFailure reports whether err comes from losing or failing to
// reach the server, or from a conflict PostgreSQL asks the client to retry.
// Constraint violations and missing rows never are.
func IsConnectionFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case len(pgErr.Code) == 5 && pgErr.Code[:2] == "08":
			return true
		case pgErr.Code == "57P01", pgErr.Code == "40001", pgErr.Code == "40P01":
			return true
		}
		return false
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Transient marks a connection failure with apperr.ErrTransient and returns
// any other error unchanged.
func Transient(err error) error {
	if !IsConnectionFailure(err) || errors.Is(err, apperr.ErrTransient) {
		return err
	}
	return fmt.Errorf("%w: %w", apperr.ErrTransient, err)
}

// Wrap annotates a storage error with op, marking connection failures as
// transient.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, Transient(err))
}
