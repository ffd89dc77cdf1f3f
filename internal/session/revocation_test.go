package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charleshuang3/kinderauth/internal/gormw"
	"github.com/charleshuang3/kinderauth/internal/models"
	"github.com/charleshuang3/kinderauth/internal/storage"
)

func TestRevokeSession_Idempotent(t *testing.T) {
	m, db, _, user := setupTestManager(t)
	ctx := context.Background()

	p1, err := m.Issue(ctx, user)
	require.NoError(t, err)

	require.NoError(t, m.RevokeSession(ctx, p1.RefreshRecordID))
	require.NoError(t, m.RevokeSession(ctx, p1.RefreshRecordID))

	record, err := storage.GetRefreshTokenByHash(db, HashSecret(p1.RefreshSecret))
	require.NoError(t, err)
	assert.True(t, record.Revoked)
}

func TestLogout(t *testing.T) {
	m, _, _, user := setupTestManager(t)
	ctx := context.Background()

	p1, err := m.Issue(ctx, user)
	require.NoError(t, err)
	p2, err := m.Issue(ctx, user)
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx, p1.RefreshSecret))
	assert.NoError(t, m.Logout(ctx, "unknown-secret"))
	assert.NoError(t, m.Logout(ctx, ""))

	_, err = m.Rotate(ctx, p2.RefreshSecret)
	assert.NoError(t, err, "logout only ends one session")
}

func TestRevokeAllForUser(t *testing.T) {
	m, _, _, user := setupTestManager(t)
	ctx := context.Background()

	p1, err := m.Issue(ctx, user)
	require.NoError(t, err)
	p2, err := m.Issue(ctx, user)
	require.NoError(t, err)

	n, err := m.RevokeAllForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, secret := range []string{p1.RefreshSecret, p2.RefreshSecret} {
		_, err = m.Rotate(ctx, secret)
		assert.ErrorIs(t, err, ErrReplayDetected)
	}
}

func TestRevokeAllForUser_StoreDown(t *testing.T) {
	m, db, _, user := setupTestManager(t)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = m.RevokeAllForUser(context.Background(), user.ID)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.ErrorIs(t, m.RevokeSession(context.Background(), "some-id"), ErrPersistenceFailure)
}

func TestReplaceSessions(t *testing.T) {
	m, db, _, user := setupTestManager(t)
	ctx := context.Background()

	old, err := m.Issue(ctx, user)
	require.NoError(t, err)

	require.NoError(t, user.SetPassword("newpassword"))
	pair, err := m.ReplaceSessions(ctx, user, func(tx *gormw.DB) error {
		return storage.UpdateUserPassword(tx, user)
	})
	require.NoError(t, err)

	got, err := storage.GetUserByID(db, user.ID)
	require.NoError(t, err)
	assert.True(t, got.CheckPassword("newpassword"))

	n, err := storage.CountLiveRefreshTokens(db, user.ID, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the new session is live")

	record, err := storage.GetRefreshTokenByHash(db, HashSecret(old.RefreshSecret))
	require.NoError(t, err)
	assert.True(t, record.Revoked)

	_, err = m.Rotate(ctx, pair.RefreshSecret)
	assert.NoError(t, err)
}

func TestReplaceSessions_RollsBackTogether(t *testing.T) {
	tests := []struct {
		name   string
		update func(user *models.User) func(tx *gormw.DB) error
	}{
		{
			name: "update fails",
			update: func(user *models.User) func(tx *gormw.DB) error {
				return func(tx *gormw.DB) error {
					if err := storage.UpdateUserPassword(tx, user); err != nil {
						return err
					}
					return assert.AnError
				}
			},
		},
		{
			name: "revoke fails after password changed",
			update: func(user *models.User) func(tx *gormw.DB) error {
				return func(tx *gormw.DB) error {
					if err := storage.UpdateUserPassword(tx, user); err != nil {
						return err
					}
					// sqlite DDL is transactional, the table comes back on rollback.
					return tx.Exec("DROP TABLE refresh_tokens").Error
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, db, _, user := setupTestManager(t)
			ctx := context.Background()
			require.NoError(t, user.SetPassword("oldpassword"))
			require.NoError(t, storage.UpdateUserPassword(db, user))

			old, err := m.Issue(ctx, user)
			require.NoError(t, err)

			require.NoError(t, user.SetPassword("newpassword"))
			_, err = m.ReplaceSessions(ctx, user, tt.update(user))
			assert.ErrorIs(t, err, ErrPersistenceFailure)

			got, err := storage.GetUserByID(db, user.ID)
			require.NoError(t, err)
			assert.True(t, got.CheckPassword("oldpassword"), "password change rolled back")

			record, err := storage.GetRefreshTokenByHash(db, HashSecret(old.RefreshSecret))
			require.NoError(t, err)
			assert.False(t, record.Revoked)
			n, err := storage.CountLiveRefreshTokens(db, user.ID, testNow)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n, "no new session issued")
		})
	}
}
