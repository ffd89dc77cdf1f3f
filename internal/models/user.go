package models

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Known roles across the portals.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleTeacher    = "teacher"
	RoleParent     = "parent"
)

type User struct {
	gorm.Model
	Username       string `gorm:"uniqueIndex"`
	Name           string
	HashedPassword string
	Email          string `gorm:"uniqueIndex"`
	Roles          string // multi-roles splitted by " "
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)) == nil
}

func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.HashedPassword = string(hashed)
	return nil
}

func (u *User) RoleList() []string {
	return strings.Fields(u.Roles)
}
