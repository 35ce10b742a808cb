package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrExpiredToken   = errors.New("access token expired")
	ErrMalformedToken = errors.New("malformed access token")
)

type Clock func() time.Time

type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

type TokenCodecConfig struct {
	Secret    string
	Issuer    string
	AccessTTL time.Duration
	Clock     Clock
}

// TokenCodec signs and verifies HS256 access tokens. It holds no per-token
// state; an issued token is valid until it expires.
type TokenCodec struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	now       Clock
}

func NewTokenCodec(cfg TokenCodecConfig) *TokenCodec {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &TokenCodec{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		accessTTL: cfg.AccessTTL,
		now:       now,
	}
}

func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

func (c *TokenCodec) IssueAccessToken(userID uint) (string, error) {
	now := c.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken returns the user id carried by raw. Expiry is only
// reported for tokens whose signature checked out; everything else is
// ErrMalformedToken.
func (c *TokenCodec) VerifyAccessToken(raw string) (uint, error) {
	if raw == "" {
		return 0, ErrMalformedToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrExpiredToken
		}
		return 0, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if !tok.Valid || claims.UserID == 0 {
		return 0, ErrMalformedToken
	}
	return claims.UserID, nil
}
