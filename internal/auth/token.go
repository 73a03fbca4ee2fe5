package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/shared"
)

// TokenType discriminates access from refresh tokens inside the claims.
type TokenType int

const (
	AccessToken TokenType = iota
	RefreshToken
)

var (
	// ErrWrongTokenType is returned when a token of the other kind is presented.
	ErrWrongTokenType = errors.New("auth: wrong token type")
	// ErrInvalidToken wraps signature and format failures.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Claims is the JWT payload shared by access and refresh tokens.
type Claims struct {
	UserID    string    `json:"user_id"`
	TokenType TokenType `json:"token_type"`
	Roles     []string  `json:"roles"`
	jwt.RegisteredClaims
}

// TokenConfig configures the issuer.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenIssuer signs and verifies HS256 tokens with separate secrets per type.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(cfg TokenConfig) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

// IssueAccess signs a short lived access token.
func (t *TokenIssuer) IssueAccess(userID uuid.UUID, roles []string) (string, error) {
	now := t.now()
	token, _, err := t.sign(t.accessSecret, AccessToken, userID, roles, now, now.Add(t.accessTTL))
	return token, err
}

// IssueRefresh signs a refresh token. A nil exp starts a new chain; a non-nil
// exp carries the original expiry forward on rotation.
func (t *TokenIssuer) IssueRefresh(userID uuid.UUID, roles []string, exp *time.Time) (string, *Claims, error) {
	now := t.now()
	expiresAt := now.Add(t.refreshTTL)
	if exp != nil {
		expiresAt = *exp
	}
	return t.sign(t.refreshSecret, RefreshToken, userID, roles, now, expiresAt)
}

func (t *TokenIssuer) sign(secret []byte, typ TokenType, userID uuid.UUID, roles []string, issued, expires time.Time) (string, *Claims, error) {
	claims := &Claims{
		UserID:    userID.String(),
		TokenType: typ,
		Roles:     roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, claims, nil
}

// VerifyAccess parses an access token.
func (t *TokenIssuer) VerifyAccess(token string) (*Claims, error) {
	return t.verify(token, t.accessSecret, AccessToken)
}

// VerifyRefresh parses a refresh token.
func (t *TokenIssuer) VerifyRefresh(token string) (*Claims, error) {
	return t.verify(token, t.refreshSecret, RefreshToken)
}

func (t *TokenIssuer) verify(token string, secret []byte, want TokenType) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != want {
		return nil, ErrWrongTokenType
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, fmt.Errorf("%w: user_id: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// VerifyAccessToken decodes a bearer access token into a caller identity.
func (t *TokenIssuer) VerifyAccessToken(token string) (shared.Identity, error) {
	claims, err := t.VerifyAccess(token)
	if err != nil {
		return shared.Identity{}, shared.Authentication("Invalid access token", shared.Context{"api": "accessTokenValidator"})
	}
	return shared.Identity{UserID: uuid.MustParse(claims.UserID), Roles: claims.Roles}, nil
}
