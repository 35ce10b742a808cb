package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sandeepkv93/token-session-auth-service/internal/domain"
	"github.com/sandeepkv93/token-session-auth-service/internal/observability"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrRefreshTokenConflict = errors.New("refresh token value already in use")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByRefreshToken(ctx context.Context, value uuid.UUID) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = r.classifyConflict(ctx, user)
			observability.RecordRepositoryOperation(ctx, "user", "create", "conflict")
			return err
		}
		observability.RecordRepositoryOperation(ctx, "user", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "user", "create", "success")
	return nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	return r.found(ctx, "find_by_id", &u, err)
}

func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	return r.found(ctx, "find_by_username", &u, err)
}

func (r *GormUserRepository) FindByRefreshToken(ctx context.Context, value uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("refresh_token = ?", value).First(&u).Error
	return r.found(ctx, "find_by_refresh_token", &u, err)
}

func (r *GormUserRepository) Save(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Save(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = r.classifyConflict(ctx, user)
			observability.RecordRepositoryOperation(ctx, "user", "save", "conflict")
			return err
		}
		observability.RecordRepositoryOperation(ctx, "user", "save", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "user", "save", "success")
	return nil
}

func (r *GormUserRepository) found(ctx context.Context, op string, u *domain.User, err error) (*domain.User, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "user", op, "not_found")
			return nil, ErrUserNotFound
		}
		observability.RecordRepositoryOperation(ctx, "user", op, "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "user", op, "success")
	return u, nil
}

// classifyConflict tells the two unique columns apart. A duplicate that is not
// the username can only be the refresh token value.
func (r *GormUserRepository) classifyConflict(ctx context.Context, user *domain.User) error {
	var count int64
	q := r.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", user.Username)
	if user.ID != 0 {
		q = q.Where("id <> ?", user.ID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUsernameTaken
	}
	return ErrRefreshTokenConflict
}
