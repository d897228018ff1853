package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationOTP holds a pending registration code. Exactly one of Email or
// Phone is set; there is no account yet to reference.
type RegistrationOTP struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     *string   `gorm:"column:email;index"`
	Phone     *string   `gorm:"column:phone;index"`
	Code      string    `gorm:"column:code;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
}
