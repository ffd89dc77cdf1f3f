package storage

import (
	"github.com/charleshuang3/kinderauth/internal/gormw"
	"github.com/charleshuang3/kinderauth/internal/models"
)

func GetUserByUsernameOrEmail(db *gormw.DB, identifier string) (*models.User, error) {
	user := &models.User{}
	if err := db.Where("username = ? OR email = ?", identifier, identifier).First(&user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func GetUserByID(db *gormw.DB, id uint) (*models.User, error) {
	user := &models.User{}
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func CreateUser(db *gormw.DB, user *models.User) error {
	return db.Create(user).Error
}

func UpdateUserPassword(db *gormw.DB, user *models.User) error {
	return db.Model(user).Update("hashed_password", user.HashedPassword).Error
}
