package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/figure-api/internal/apperr"
	"github.com/iliyamo/figure-api/internal/model"
	"github.com/iliyamo/figure-api/internal/repository"
)

// TokenPair is returned by login and refresh. Refresh responses carry only
// the access token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RefreshTokens persists issued refresh tokens.
type RefreshTokens interface {
	StoreRefresh(ctx context.Context, userID, token string) (model.RefreshToken, error)
	FindByToken(ctx context.Context, token string) (model.RefreshToken, error)
}

// UserFinder loads users by id.
type UserFinder interface {
	FindByID(ctx context.Context, id string, include ...string) (model.User, error)
}

// AccessIssuer mints access tokens.
type AccessIssuer interface {
	GenerateToken(p UserProfile) (string, error)
}

// RefreshTokenService issues long lived refresh tokens bound to a user and
// exchanges them for new access tokens. Tokens are not rotated: a refresh
// token stays valid until it expires.
type RefreshTokenService struct {
	secret    []byte
	issuer    string
	expiresIn time.Duration
	tokens    RefreshTokens
	users     UserFinder
	access    AccessIssuer
}

func NewRefreshTokenService(secret, issuer string, expiresIn time.Duration, tokens RefreshTokens, users UserFinder, access AccessIssuer) *RefreshTokenService {
	return &RefreshTokenService{
		secret:    []byte(secret),
		issuer:    issuer,
		expiresIn: expiresIn,
		tokens:    tokens,
		users:     users,
		access:    access,
	}
}

// GenerateToken signs a refresh token for p, stores it and pairs it with
// accessToken.
func (s *RefreshTokenService) GenerateToken(ctx context.Context, p UserProfile, accessToken string) (TokenPair, error) {
	if p.ID == "" {
		return TokenPair{}, ErrInvalidProfile
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	if _, err := s.tokens.StoreRefresh(ctx, p.ID, signed); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return TokenPair{AccessToken: accessToken, RefreshToken: signed}, nil
}

// RefreshToken returns a fresh access token for the user the refresh token
// was issued to.
func (s *RefreshTokenService) RefreshToken(ctx context.Context, token string) (TokenPair, error) {
	if token == "" {
		return TokenPair{}, apperr.Unauthorized("refresh token is empty")
	}
	rt, err := s.VerifyToken(ctx, token)
	if err != nil {
		return TokenPair{}, err
	}
	u, err := s.users.FindByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, apperr.Unauthorized("user no longer exists")
		}
		return TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	access, err := s.access.GenerateToken(ProfileFromUser(u))
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access}, nil
}

// VerifyToken checks signature, issuer and expiry, then requires a stored
// row with exactly this token string.
func (s *RefreshTokenService) VerifyToken(ctx context.Context, token string) (model.RefreshToken, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.RefreshToken{}, apperr.Unauthorized("refresh token expired")
		}
		return model.RefreshToken{}, apperr.Unauthorized("invalid refresh token")
	}

	rt, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.RefreshToken{}, apperr.Unauthorized("refresh token not recognized")
		}
		return model.RefreshToken{}, fmt.Errorf("load refresh token: %w", err)
	}
	return rt, nil
}
