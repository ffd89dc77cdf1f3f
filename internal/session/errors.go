package session

import (
	"errors"
	"fmt"

	"github.com/charleshuang3/kinderauth/internal/storage"
)

var (
	// ErrInvalidSession means the presented secret matches no record.
	ErrInvalidSession = errors.New("invalid session")

	// ErrSessionExpired means the record reached its absolute expiry.
	ErrSessionExpired = errors.New("session expired")

	// ErrReplayDetected means an already revoked secret was presented. All
	// sessions of the owner are revoked when this is returned.
	ErrReplayDetected = errors.New("refresh token replay detected")

	// ErrPersistenceFailure wraps any error from the token store.
	ErrPersistenceFailure = errors.New("session store failure")

	// ErrConstraintViolation is returned when a freshly generated hash
	// already exists.
	ErrConstraintViolation = storage.ErrConstraintViolation
)

func persistenceFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
}

// IsUnauthorized reports whether err ends the session from the client's
// point of view, as opposed to a server side failure.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrPersistenceFailure) || errors.Is(err, ErrConstraintViolation) {
		return false
	}
	return errors.Is(err, ErrInvalidSession) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrReplayDetected)
}
