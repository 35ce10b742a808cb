package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/sandeepkv93/token-session-auth-service/internal/domain"
)

// InMemoryUserRepository keeps users in process memory with the same unique
// constraints as the SQL schema. Records are copied in and out.
type InMemoryUserRepository struct {
	mu      sync.RWMutex
	nextID  uint
	byID    map[uint]*domain.User
	byName  map[string]uint
	byToken map[uuid.UUID]uint
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		nextID:  1,
		byID:    make(map[uint]*domain.User),
		byName:  make(map[string]uint),
		byToken: make(map[uuid.UUID]uint),
	}
}

func (r *InMemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[user.Username]; ok {
		return ErrUsernameTaken
	}
	if _, ok := r.byToken[user.RefreshToken]; ok {
		return ErrRefreshTokenConflict
	}
	user.ID = r.nextID
	r.nextID++
	r.put(user)
	return nil
}

func (r *InMemoryUserRepository) FindByID(_ context.Context, id uint) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *InMemoryUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	id, ok := r.byName[username]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *InMemoryUserRepository) FindByRefreshToken(ctx context.Context, value uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	id, ok := r.byToken[value]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *InMemoryUserRepository) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byID[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if id, taken := r.byName[user.Username]; taken && id != user.ID {
		return ErrUsernameTaken
	}
	if id, taken := r.byToken[user.RefreshToken]; taken && id != user.ID {
		return ErrRefreshTokenConflict
	}
	delete(r.byName, old.Username)
	delete(r.byToken, old.RefreshToken)
	r.put(user)
	return nil
}

func (r *InMemoryUserRepository) put(user *domain.User) {
	cp := *user
	r.byID[cp.ID] = &cp
	r.byName[cp.Username] = cp.ID
	r.byToken[cp.RefreshToken] = cp.ID
}
