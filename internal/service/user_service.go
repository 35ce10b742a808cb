package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sandeepkv93/token-session-auth-service/internal/domain"
	"github.com/sandeepkv93/token-session-auth-service/internal/repository"
	"github.com/sandeepkv93/token-session-auth-service/internal/security"
)

// UpdateProfileInput is a partial update; nil fields are left untouched.
type UpdateProfileInput struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type UserService struct {
	users     repository.UserRepository
	hasher    security.PasswordHasher
	validator *fieldValidator
}

func NewUserService(users repository.UserRepository, hasher security.PasswordHasher) *UserService {
	return &UserService{users: users, hasher: hasher, validator: newFieldValidator()}
}

// UpdateProfile applies in to user with the same rules as registration. The
// refresh session is not touched.
func (s *UserService) UpdateProfile(ctx context.Context, user *domain.User, in UpdateProfileInput) (*domain.User, error) {
	trimProfileInput(&in)
	verr := &ValidationError{}
	if in.Username != nil {
		s.validator.check(verr, "username", *in.Username, usernameRules)
		if !verr.has("username") && *in.Username != user.Username {
			existing, err := s.users.FindByUsername(ctx, *in.Username)
			switch {
			case err == nil && existing.ID != user.ID:
				verr.add("username", msgUsernameTaken)
			case err != nil && !errors.Is(err, repository.ErrUserNotFound):
				return nil, err
			}
		}
	}
	if in.Email != nil {
		s.validator.check(verr, "email", *in.Email, emailRules)
	}
	if in.Password != nil {
		s.validator.check(verr, "password", *in.Password, passwordRules)
	}
	if in.FirstName != nil {
		s.validator.check(verr, "first_name", *in.FirstName, nameRules)
	}
	if in.LastName != nil {
		s.validator.check(verr, "last_name", *in.LastName, nameRules)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	updated := *user
	if in.Username != nil {
		updated.Username = *in.Username
	}
	if in.Email != nil {
		updated.Email = *in.Email
	}
	if in.FirstName != nil {
		updated.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		updated.LastName = *in.LastName
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		updated.PasswordHash = hash
	}
	if err := s.users.Save(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, &ValidationError{Fields: map[string][]string{"username": {msgUsernameTaken}}}
		}
		return nil, err
	}
	*user = updated
	return user, nil
}

// trimProfileInput strips surrounding whitespace from every text field except
// the password.
func trimProfileInput(in *UpdateProfileInput) {
	for _, field := range []**string{&in.Username, &in.Email, &in.FirstName, &in.LastName} {
		if *field != nil {
			trimmed := strings.TrimSpace(**field)
			*field = &trimmed
		}
	}
}
