package session

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/charleshuang3/kinderauth/internal/gormw"
	"github.com/charleshuang3/kinderauth/internal/metrics"
	"github.com/charleshuang3/kinderauth/internal/models"
	"github.com/charleshuang3/kinderauth/internal/storage"
)

// errLostRace aborts the rotation transaction when another request revoked
// the record between our read and our conditional update.
var errLostRace = errors.New("refresh token revoked concurrently")

// Rotate exchanges a refresh secret for a new token pair.
//
// The record is checked in this order: not found, revoked, expired, valid.
// A valid record is revoked and its replacement issued in one transaction.
// The revoke only applies to a not yet revoked row, so of several
// concurrent rotations of the same secret exactly one succeeds and the
// others are treated as a replay.
func (m *Manager) Rotate(ctx context.Context, secret string) (*TokenPair, error) {
	pair, err := m.rotate(ctx, secret)
	metrics.Rotations.WithLabelValues(rotationOutcome(err)).Inc()
	return pair, err
}

func (m *Manager) rotate(ctx context.Context, secret string) (*TokenPair, error) {
	if secret == "" {
		return nil, ErrInvalidSession
	}

	db := m.db.WithContext(ctx)

	record, err := storage.GetRefreshTokenByHash(db, HashSecret(secret))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, persistenceFailure(err)
	}

	if record.Revoked {
		return nil, m.replayDetected(ctx, record)
	}

	now := m.clock.Now()
	if record.Expired(now) {
		return nil, ErrSessionExpired
	}

	var pair *TokenPair
	err = db.Transaction(func(tx *gormw.DB) error {
		ok, err := storage.RevokeRefreshToken(tx, record.ID, now)
		if err != nil {
			return persistenceFailure(err)
		}
		if !ok {
			return errLostRace
		}

		user, err := storage.GetUserByID(tx, record.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidSession
			}
			return persistenceFailure(err)
		}

		pair, err = m.issue(tx, user)
		return err
	})

	switch {
	case err == nil:
		logger.Debug().
			Uint("user_id", record.UserID).
			Str("from", record.ID).
			Str("to", pair.RefreshRecordID).
			Msg("Refresh token rotated")
		return pair, nil
	case errors.Is(err, errLostRace):
		return nil, m.replayDetected(ctx, record)
	case errors.Is(err, ErrInvalidSession),
		errors.Is(err, ErrPersistenceFailure),
		errors.Is(err, ErrConstraintViolation):
		return nil, err
	default:
		// commit failures and signing errors.
		logger.Error().Err(err).Str("record_id", record.ID).Msg("Refresh token rotation failed")
		return nil, persistenceFailure(err)
	}
}

// replayDetected burns every session of the record's owner.
func (m *Manager) replayDetected(ctx context.Context, record *models.RefreshToken) error {
	logger.Warn().
		Str("security_event", "refresh_token_replay").
		Uint("user_id", record.UserID).
		Str("record_id", record.ID).
		Msg("Replay of revoked refresh token, revoking all sessions of user")

	if _, err := m.RevokeAllForUser(ctx, record.UserID); err != nil {
		logger.Error().Err(err).Uint("user_id", record.UserID).Msg("Failed to revoke sessions after replay")
		return errors.Join(ErrReplayDetected, err)
	}
	return ErrReplayDetected
}

func rotationOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeRotated
	case !IsUnauthorized(err):
		return metrics.OutcomeError
	case errors.Is(err, ErrReplayDetected):
		return metrics.OutcomeReplay
	case errors.Is(err, ErrSessionExpired):
		return metrics.OutcomeExpired
	default:
		return metrics.OutcomeInvalid
	}
}
