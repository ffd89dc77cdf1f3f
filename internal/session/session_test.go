package session

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	gormlog "gorm.io/gorm/logger"

	"github.com/charleshuang3/kinderauth/internal/gormw"
	"github.com/charleshuang3/kinderauth/internal/models"
	"github.com/charleshuang3/kinderauth/internal/storage"
	"github.com/charleshuang3/kinderauth/testdata"
)

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func setupTestManager(t *testing.T) (*Manager, *gormw.DB, *clockwork.FakeClock, *models.User) {
	t.Helper()
	return setupTestManagerWithDSN(t, "")
}

// setupTestManagerWithDSN opens dsn, or in-memory sqlite when empty.
func setupTestManagerWithDSN(t *testing.T, dsn string) (*Manager, *gormw.DB, *clockwork.FakeClock, *models.User) {
	t.Helper()
	db, err := gormw.Open(&gormw.Config{
		DSN:      dsn,
		LogLevel: gormlog.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, db.Migrate())

	user := &models.User{
		Username: "parent1",
		Email:    "parent1@example.com",
		Roles:    "parent",
	}
	require.NoError(t, storage.CreateUser(db, user))

	clock := clockwork.NewFakeClockAt(testNow)
	m, err := NewManager(&Config{
		PrivateKeyPEM:   testdata.PrivateKeyPEM,
		Issuer:          "http://localhost:8080",
		AccessTokenTTL:  600,
		RefreshTokenTTL: 24 * 3600,
	}, db, clock)
	require.NoError(t, err)

	return m, db, clock, user
}
