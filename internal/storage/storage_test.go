package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
	gormlog "gorm.io/gorm/logger"

	"github.com/charleshuang3/kinderauth/internal/gormw"
	"github.com/charleshuang3/kinderauth/internal/models"
)

func setupTestDB(t *testing.T) (*gormw.DB, *models.User) {
	t.Helper()
	db, err := gormw.Open(&gormw.Config{
		LogLevel: gormlog.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	user := &models.User{
		Username: "teacher1",
		Email:    "teacher1@example.com",
		Roles:    "teacher",
	}
	require.NoError(t, CreateUser(db, user))

	return db, user
}
