package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/token-session-auth-service/internal/domain"
	"github.com/sandeepkv93/token-session-auth-service/internal/observability"
	"github.com/sandeepkv93/token-session-auth-service/internal/repository"
	"github.com/sandeepkv93/token-session-auth-service/internal/security"
)

const unknownRefreshTokenNamespace = "refresh_token.unknown"

type RefreshTokenStoreConfig struct {
	TTL              time.Duration
	NegativeCacheTTL time.Duration
	Clock            security.Clock
	NewValue         func() uuid.UUID
}

// RefreshTokenStore manages the single refresh session stored on each user
// row: its value and its created/expires pair.
type RefreshTokenStore struct {
	users    repository.UserRepository
	negCache NegativeLookupCacheStore
	negTTL   time.Duration
	ttl      time.Duration
	now      security.Clock
	newValue func() uuid.UUID
}

func NewRefreshTokenStore(users repository.UserRepository, negCache NegativeLookupCacheStore, cfg RefreshTokenStoreConfig) *RefreshTokenStore {
	if negCache == nil {
		negCache = NewNoopNegativeLookupCacheStore()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	newValue := cfg.NewValue
	if newValue == nil {
		newValue = uuid.New
	}
	return &RefreshTokenStore{
		users:    users,
		negCache: negCache,
		negTTL:   cfg.NegativeCacheTTL,
		ttl:      cfg.TTL,
		now:      now,
		newValue: newValue,
	}
}

// Issue rotates the user onto a fresh refresh token value. One value collision
// is retried; a second one fails with ErrRefreshTokenCollision and leaves user
// as it was.
func (s *RefreshTokenStore) Issue(ctx context.Context, user *domain.User) (uuid.UUID, error) {
	prev := user.RefreshSession()
	for attempt := 0; attempt < 2; attempt++ {
		value := s.newValue()
		user.StartRefreshSession(value, s.now(), s.ttl)
		err := s.users.Save(ctx, user)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, repository.ErrRefreshTokenConflict) {
			restoreRefreshSession(user, prev)
			return uuid.Nil, err
		}
		observability.RecordRefreshTokenCollision(ctx, "retried")
	}
	restoreRefreshSession(user, prev)
	observability.RecordRefreshTokenCollision(ctx, "exhausted")
	return uuid.Nil, ErrRefreshTokenCollision
}

func (s *RefreshTokenStore) FindByValue(ctx context.Context, value uuid.UUID) (*domain.User, error) {
	key := value.String()
	if hit, err := s.negCache.Get(ctx, unknownRefreshTokenNamespace, key); err == nil && hit {
		return nil, ErrUnknownCredential
	}
	user, err := s.users.FindByRefreshToken(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_ = s.negCache.Set(ctx, unknownRefreshTokenNamespace, key, s.negTTL)
			return nil, ErrUnknownCredential
		}
		return nil, err
	}
	return user, nil
}

// Revoke ends the refresh session. The stored value is kept.
func (s *RefreshTokenStore) Revoke(ctx context.Context, user *domain.User) error {
	prev := user.RefreshSession()
	user.EndRefreshSession()
	if err := s.users.Save(ctx, user); err != nil {
		restoreRefreshSession(user, prev)
		return err
	}
	return nil
}

func (s *RefreshTokenStore) IsValid(user *domain.User) bool {
	return user.RefreshSession().ValidAt(s.now())
}

func restoreRefreshSession(user *domain.User, prev domain.RefreshSession) {
	user.RefreshToken = prev.Value
	user.RefreshTokenCreatedAt = prev.CreatedAt
	user.RefreshTokenExpiresAt = prev.ExpiresAt
}
