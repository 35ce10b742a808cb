package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sandeepkv93/token-session-auth-service/internal/domain"
	"github.com/sandeepkv93/token-session-auth-service/internal/observability"
	"github.com/sandeepkv93/token-session-auth-service/internal/repository"
	"github.com/sandeepkv93/token-session-auth-service/internal/security"
)

type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SessionService drives a user from registration through login, refresh
// rotation and logout.
type SessionService struct {
	users     repository.UserRepository
	hasher    security.PasswordHasher
	codec     *security.TokenCodec
	tokens    *RefreshTokenStore
	validator *fieldValidator
	now       security.Clock

	dummyOnce sync.Once
	dummyHash string
}

func NewSessionService(
	users repository.UserRepository,
	hasher security.PasswordHasher,
	codec *security.TokenCodec,
	tokens *RefreshTokenStore,
	clock security.Clock,
) *SessionService {
	if clock == nil {
		clock = tokens.now
	}
	return &SessionService{
		users:     users,
		hasher:    hasher,
		codec:     codec,
		tokens:    tokens,
		validator: newFieldValidator(),
		now:       clock,
	}
}

func (s *SessionService) Register(ctx context.Context, in RegisterInput) (user *domain.User, err error) {
	ctx, span := observability.StartSpan(ctx, "session.register")
	defer func() { endSpan(span, err); observability.RecordAuthRegister(ctx, outcome(err)) }()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	verr := &ValidationError{}
	s.validator.check(verr, "username", in.Username, usernameRules)
	s.validator.check(verr, "email", in.Email, emailRules)
	s.validator.check(verr, "password", in.Password, passwordRules)
	s.validator.check(verr, "first_name", in.FirstName, nameRules)
	s.validator.check(verr, "last_name", in.LastName, nameRules)
	if !verr.has("username") {
		taken, err := s.usernameTaken(ctx, in.Username, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			verr.add("username", msgUsernameTaken)
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < 2; attempt++ {
		user = domain.NewUser(in.Username, in.Email, hash, s.now())
		user.FirstName = in.FirstName
		user.LastName = in.LastName
		err = s.users.Create(ctx, user)
		switch {
		case err == nil:
			return user, nil
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, &ValidationError{Fields: map[string][]string{"username": {msgUsernameTaken}}}
		case errors.Is(err, repository.ErrRefreshTokenConflict):
			observability.RecordRefreshTokenCollision(ctx, "retried")
			continue
		default:
			return nil, err
		}
	}
	observability.RecordRefreshTokenCollision(ctx, "exhausted")
	return nil, ErrRefreshTokenCollision
}

// Login answers every credential failure with ErrAuthFailed. IsActive is not
// consulted here; inactive users are stopped when they present the access
// token.
func (s *SessionService) Login(ctx context.Context, username, password string) (pair *TokenPair, err error) {
	ctx, span := observability.StartSpan(ctx, "session.login")
	defer func() { endSpan(span, err); observability.RecordAuthLogin(ctx, outcome(err)) }()

	if username == "" || password == "" {
		return nil, ErrAuthFailed
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.burnPasswordCheck(password)
			return nil, ErrAuthFailed
		}
		return nil, err
	}
	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrAuthFailed
	}

	now := s.now().UTC()
	user.LastLogin = &now
	return s.issuePair(ctx, user)
}

func (s *SessionService) Refresh(ctx context.Context, raw string) (pair *TokenPair, err error) {
	ctx, span := observability.StartSpan(ctx, "session.refresh")
	defer func() { endSpan(span, err); observability.RecordAuthRefresh(ctx, outcome(err)) }()

	user, err := s.resolveRefreshToken(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !s.tokens.IsValid(user) {
		return nil, ErrExpiredCredential
	}
	return s.issuePair(ctx, user)
}

// Logout ends the refresh session named by raw. Expiry is not checked, so an
// expired session can still be closed.
func (s *SessionService) Logout(ctx context.Context, raw string) (err error) {
	ctx, span := observability.StartSpan(ctx, "session.logout")
	defer func() { endSpan(span, err); observability.RecordAuthLogout(ctx, outcome(err)) }()

	user, err := s.resolveRefreshToken(ctx, raw)
	if err != nil {
		return err
	}
	return s.tokens.Revoke(ctx, user)
}

func (s *SessionService) resolveRefreshToken(ctx context.Context, raw string) (*domain.User, error) {
	if raw == "" {
		return nil, ErrMissingCredential
	}
	value, err := uuid.Parse(raw)
	if err != nil {
		return nil, ErrMalformedCredential
	}
	return s.tokens.FindByValue(ctx, value)
}

func (s *SessionService) issuePair(ctx context.Context, user *domain.User) (*TokenPair, error) {
	access, err := s.codec.IssueAccessToken(user.ID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh.String()}, nil
}

func (s *SessionService) usernameTaken(ctx context.Context, username string, selfID uint) (bool, error) {
	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return existing.ID != selfID, nil
}

// burnPasswordCheck spends one hash comparison so that unknown usernames
// take about as long as wrong passwords.
func (s *SessionService) burnPasswordCheck(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, outcome(err))
	}
	span.End()
}
