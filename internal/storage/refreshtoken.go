package storage

import (
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charleshuang3/kinderauth/internal/gormw"
	"github.com/charleshuang3/kinderauth/internal/models"
)

var (
	logger = log.With().Str("component", "storage").Logger()

	// ErrConstraintViolation means a refresh token hash collided with an
	// existing row. With 256 bit secrets this implies a broken random source.
	ErrConstraintViolation = errors.New("refresh token hash collision")
)

func AddRefreshToken(db *gormw.DB, userID uint, tokenHash string, expiresAt time.Time) (*models.RefreshToken, error) {
	rt := &models.RefreshToken{
		ID:        uuid.NewString(),
		TokenHash: tokenHash,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
	}
	if err := db.Omit(clause.Associations).Create(rt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConstraintViolation
		}
		return nil, err
	}
	return rt, nil
}

// GetRefreshTokenByHash returns gorm.ErrRecordNotFound if no row has the hash.
func GetRefreshTokenByHash(db *gormw.DB, tokenHash string) (*models.RefreshToken, error) {
	o := &models.RefreshToken{}
	err := db.Where("token_hash = ?", tokenHash).First(o).Error
	if err != nil {
		return nil, err
	}
	return o, nil
}

// RevokeRefreshToken marks the token revoked if it is not already. The
// returned bool is true only for the caller whose write took effect, which
// makes it safe to race.
func RevokeRefreshToken(db *gormw.DB, id string, at time.Time) (bool, error) {
	res := db.Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", id, false).
		Updates(map[string]any{
			"revoked":    true,
			"revoked_at": at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func RevokeRefreshTokensForUser(db *gormw.DB, userID uint, at time.Time) (int64, error) {
	res := db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]any{
			"revoked":    true,
			"revoked_at": at.UTC(),
		})
	return res.RowsAffected, res.Error
}

func CountLiveRefreshTokens(db *gormw.DB, userID uint, now time.Time) (int64, error) {
	var n int64
	err := db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, now.UTC()).
		Count(&n).Error
	return n, err
}

// PurgeRefreshTokensExpiredBefore deletes rows whose expiry is before cutoff,
// revoked or not.
func PurgeRefreshTokensExpiredBefore(db *gormw.DB, cutoff time.Time) (int64, error) {
	res := db.Where("expires_at < ?", cutoff.UTC()).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

// Refresh token will exists in database forever if not register a cleaner.
// Rows are kept for retention after expiry so replays of old secrets are
// still recognised.
func RegisterRefreshTokensCleaner(scheduler gocron.Scheduler, db *gormw.DB, retention time.Duration) error {
	_, err := scheduler.NewJob(
		gocron.CronJob(
			// 4am Daily
			"0 4 * * *",
			false,
		),
		gocron.NewTask(
			func() {
				logger.Info().Msg("Cleaning up expired refresh tokens")
				n, err := PurgeRefreshTokensExpiredBefore(db, time.Now().Add(-retention))
				if err != nil {
					logger.Error().Err(err).Msg("Failed to clean up expired refresh tokens")
					return
				}
				logger.Info().Int64("purged", n).Msg("Cleaned up expired refresh tokens")
			},
		),
		gocron.WithName("refresh-tokens-cleaner"),
	)
	return err
}
