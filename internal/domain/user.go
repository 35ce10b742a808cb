package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:254" json:"email"`
	FirstName    string     `gorm:"size:150" json:"first_name"`
	LastName     string     `gorm:"size:150" json:"last_name"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	IsStaff      bool       `gorm:"not null;default:false" json:"is_staff"`
	DateJoined   time.Time  `gorm:"not null" json:"date_joined"`
	LastLogin    *time.Time `json:"last_login,omitempty"`

	RefreshToken          uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"-"`
	RefreshTokenCreatedAt *time.Time `json:"-"`
	RefreshTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// NewUser returns an inactive-session user with a fresh refresh token value.
func NewUser(username, email, passwordHash string, joined time.Time) *User {
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		DateJoined:   joined.UTC(),
		RefreshToken: uuid.New(),
	}
}
