package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetOTP holds a pending password-reset code tied to an account.
type PasswordResetOTP struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Code      string    `gorm:"column:code;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
}
