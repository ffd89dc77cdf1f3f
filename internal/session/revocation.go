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

// RevokeSession revokes a single refresh record. Revoking an already
// revoked record succeeds.
func (m *Manager) RevokeSession(ctx context.Context, recordID string) error {
	ok, err := storage.RevokeRefreshToken(m.db.WithContext(ctx), recordID, m.clock.Now())
	if err != nil {
		return persistenceFailure(err)
	}
	if ok {
		metrics.Revocations.WithLabelValues(metrics.ReasonLogout).Inc()
	}
	return nil
}

// Logout revokes the record behind a refresh secret. Unknown secrets are
// ignored since there is nothing left to revoke.
func (m *Manager) Logout(ctx context.Context, secret string) error {
	if secret == "" {
		return nil
	}

	record, err := storage.GetRefreshTokenByHash(m.db.WithContext(ctx), HashSecret(secret))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return persistenceFailure(err)
	}

	return m.RevokeSession(ctx, record.ID)
}

// RevokeAllForUser revokes every live refresh record of the user. Used on
// replay, password change and admin sign out. Takes effect for the next
// rotation attempt; access tokens already out stay valid until they expire.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID uint) (int64, error) {
	n, err := storage.RevokeRefreshTokensForUser(m.db.WithContext(ctx), userID, m.clock.Now())
	if err != nil {
		return 0, persistenceFailure(err)
	}

	metrics.Revocations.WithLabelValues(metrics.ReasonUser).Add(float64(n))
	logger.Info().Uint("user_id", userID).Int64("revoked", n).Msg("Revoked all sessions of user")
	return n, nil
}

// ReplaceSessions runs update, revokes every session of user and issues a new
// pair in one transaction, so either all of them take effect or none. Used
// when the user's credentials change.
func (m *Manager) ReplaceSessions(ctx context.Context, user *models.User, update func(tx *gormw.DB) error) (*TokenPair, error) {
	now := m.clock.Now()

	var (
		pair    *TokenPair
		revoked int64
	)
	err := m.db.WithContext(ctx).Transaction(func(tx *gormw.DB) error {
		if err := update(tx); err != nil {
			return persistenceFailure(err)
		}

		n, err := storage.RevokeRefreshTokensForUser(tx, user.ID, now)
		if err != nil {
			return persistenceFailure(err)
		}
		revoked = n

		pair, err = m.issue(tx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrPersistenceFailure) || errors.Is(err, ErrConstraintViolation) {
			return nil, err
		}
		return nil, persistenceFailure(err)
	}

	metrics.Revocations.WithLabelValues(metrics.ReasonUser).Add(float64(revoked))
	logger.Info().Uint("user_id", user.ID).Int64("revoked", revoked).Msg("Replaced all sessions of user")
	return pair, nil
}
