package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical identity entity. Username, email, phone, and
// the public account id each carry a unique index; login may present any of
// the first three.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID    string     `gorm:"column:account_id;not null;uniqueIndex"`
	Username     string     `gorm:"column:username;not null;uniqueIndex"`
	Email        *string    `gorm:"column:email;uniqueIndex"`
	Phone        *string    `gorm:"column:phone;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FirstName    string     `gorm:"column:first_name;not null;default:''"`
	LastName     string     `gorm:"column:last_name;not null;default:''"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
