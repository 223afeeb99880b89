package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/figure-api/internal/apperr"
)

var (
	// ErrInvalidProfile is returned when a token is requested for a profile
	// without an id.
	ErrInvalidProfile = errors.New("user profile has no id")
	// ErrInvalidToken covers bad signatures, malformed tokens and missing
	// identity claims.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", apperr.ErrUnauthorized)
	// ErrTokenExpired is returned for tokens past their exp claim.
	ErrTokenExpired = fmt.Errorf("%w: token expired", apperr.ErrUnauthorized)
)

type accessClaims struct {
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies HS256 access tokens. It keeps no state
// between calls.
type JWTService struct {
	secret    []byte
	expiresIn time.Duration
}

func NewJWTService(secret string, expiresIn time.Duration) *JWTService {
	return &JWTService{secret: []byte(secret), expiresIn: expiresIn}
}

// GenerateToken signs an access token carrying p.
func (s *JWTService) GenerateToken(p UserProfile) (string, error) {
	if p.ID == "" {
		return "", ErrInvalidProfile
	}
	now := time.Now().UTC()
	claims := accessClaims{
		Role:  p.Role,
		Email: p.Email,
		Name:  p.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature and expiry and returns the embedded profile.
func (s *JWTService) VerifyToken(token string) (UserProfile, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return UserProfile{}, ErrTokenExpired
		}
		return UserProfile{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return UserProfile{}, ErrInvalidToken
	}
	return UserProfile{ID: claims.Subject, Email: claims.Email, Name: claims.Name, Role: claims.Role}, nil
}
