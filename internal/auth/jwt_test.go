package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/figure-api/internal/apperr"
	"github.com/iliyamo/figure-api/internal/model"
)

func TestJWTService_RoundTrip(t *testing.T) {
	s := NewJWTService("secret", time.Hour)
	p := ProfileFromUser(model.User{ID: "u1", Email: "a@x.com", FirstName: "Ann", LastName: "Lee", Role: model.RoleAdmin})

	tok, err := s.GenerateToken(p)
	require.NoError(t, err)

	got, err := s.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, UserProfile{ID: "u1", Email: "a@x.com", Name: "Ann Lee", Role: "ADMIN"}, got)
}

func TestJWTService_RejectsProfileWithoutID(t *testing.T) {
	_, err := NewJWTService("secret", time.Hour).GenerateToken(UserProfile{Role: "USER"})
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestJWTService_Expired(t *testing.T) {
	s := NewJWTService("secret", -time.Minute)
	tok, err := s.GenerateToken(UserProfile{ID: "u1", Role: "USER"})
	require.NoError(t, err)

	_, err = s.VerifyToken(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestJWTService_Invalid(t *testing.T) {
	s := NewJWTService("secret", time.Hour)
	tok, err := NewJWTService("other", time.Hour).GenerateToken(UserProfile{ID: "u1"})
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong secret": tok,
		"garbage":      "not.a.jwt",
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.VerifyToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Equal(t, 401, apperr.Status(err))
		})
	}
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTService("secret", time.Hour).VerifyToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RequiresSubject(t *testing.T) {
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTService("secret", time.Hour).VerifyToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
