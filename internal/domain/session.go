package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshSession is the refresh credential currently held on a user row.
// CreatedAt and ExpiresAt are both nil when no session is active.
type RefreshSession struct {
	Value     uuid.UUID
	CreatedAt *time.Time
	ExpiresAt *time.Time
}

func (u *User) RefreshSession() RefreshSession {
	return RefreshSession{
		Value:     u.RefreshToken,
		CreatedAt: u.RefreshTokenCreatedAt,
		ExpiresAt: u.RefreshTokenExpiresAt,
	}
}

func (u *User) StartRefreshSession(value uuid.UUID, now time.Time, ttl time.Duration) {
	created := now.UTC()
	expires := created.Add(ttl)
	u.RefreshToken = value
	u.RefreshTokenCreatedAt = &created
	u.RefreshTokenExpiresAt = &expires
}

func (u *User) EndRefreshSession() {
	u.RefreshTokenCreatedAt = nil
	u.RefreshTokenExpiresAt = nil
}

func (s RefreshSession) Active() bool {
	return s.CreatedAt != nil && s.ExpiresAt != nil
}

func (s RefreshSession) ValidAt(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.After(now)
}
