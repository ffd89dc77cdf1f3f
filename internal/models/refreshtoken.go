package models

import "time"

// RefreshToken is the persisted half of a refresh token. Only the hash of the
// secret handed to the client is stored.
type RefreshToken struct {
	ID        string    `gorm:"primarykey;size:36"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex"`
	UserID    uint      `gorm:"not null;index;index:idx_refresh_tokens_user_revoked,priority:1"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	ExpiresAt time.Time `gorm:"not null"`
	Revoked   bool      `gorm:"not null;default:false;index;index:idx_refresh_tokens_user_revoked,priority:2"`
	RevokedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// Expired reports whether the record reached its absolute expiry at t. The
// expiry instant itself counts as expired.
func (r *RefreshToken) Expired(t time.Time) bool {
	return !t.Before(r.ExpiresAt)
}
