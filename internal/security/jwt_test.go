package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "abcdefghijklmnopqrstuvwxyz123456"

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCodec(clock *fakeClock) *TokenCodec {
	return NewTokenCodec(TokenCodecConfig{
		Secret:    testSecret,
		Issuer:    "iss",
		AccessTTL: 5 * time.Minute,
		Clock:     clock.Now,
	})
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	codec := newTestCodec(clock)

	token, err := codec.IssueAccessToken(42)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	userID, err := codec.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestVerifyAccessTokenExpiresAfterLifetime(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	codec := newTestCodec(clock)

	token, err := codec.IssueAccessToken(7)
	require.NoError(t, err)

	clock.Advance(5*time.Minute - time.Second)
	_, err = codec.VerifyAccessToken(token)
	require.NoError(t, err, "token should still verify just before expiry")

	clock.Advance(2 * time.Second)
	_, err = codec.VerifyAccessToken(token)
	require.ErrorIs(t, err, ErrExpiredToken)
	assert.False(t, errors.Is(err, ErrMalformedToken), "expiry must never surface as malformed")
}

func TestVerifyAccessTokenMalformedInputs(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	codec := newTestCodec(clock)
	other := NewTokenCodec(TokenCodecConfig{Secret: "another-secret-another-secret-000", Issuer: "iss", AccessTTL: time.Minute, Clock: clock.Now})

	foreign, err := other.IssueAccessToken(1)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "iss",
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Minute)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "iss",
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Minute)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "iss"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not.a.jwt",
		"two segments":   "abc.def",
		"wrong secret":   foreign,
		"alg none":       noneToken,
		"missing userid": noUser,
		"missing exp":    noExpiry,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := codec.VerifyAccessToken(raw)
			require.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestVerifyAccessTokenExpiredWithBadSignatureIsMalformed(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	other := NewTokenCodec(TokenCodecConfig{Secret: "another-secret-another-secret-000", Issuer: "iss", AccessTTL: time.Minute, Clock: clock.Now})
	token, err := other.IssueAccessToken(1)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = newTestCodec(clock).VerifyAccessToken(token)
	require.ErrorIs(t, err, ErrMalformedToken)
}

func FuzzVerifyAccessToken(f *testing.F) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	codec := newTestCodec(clock)
	valid, err := codec.IssueAccessToken(1)
	if err != nil {
		f.Fatal(err)
	}
	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJ1c2VyX2lkIjoxfQ.")

	f.Fuzz(func(t *testing.T, raw string) {
		userID, err := codec.VerifyAccessToken(raw)
		if err != nil {
			if !errors.Is(err, ErrMalformedToken) && !errors.Is(err, ErrExpiredToken) {
				t.Fatalf("unexpected error class: %v", err)
			}
			return
		}
		if userID == 0 {
			t.Fatal("verified token must carry a user id")
		}
	})
}
