package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/hrforms/internal/shared"
)

// DefaultOAuthRole is granted to accounts created through Google sign in.
const DefaultOAuthRole = "Employee"

// TokenPair is returned by every successful sign in.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service wraps authentication business rules.
type Service struct {
	repo       Repository
	tokens     *TokenIssuer
	google     IdentityProvider
	bcryptCost int
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer, google IdentityProvider, bcryptCost int) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, tokens: tokens, google: google, bcryptCost: bcryptCost}
}

// Login validates email/password credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	errCtx := shared.Context{"api": "login"}
	account, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return TokenPair{}, shared.Authentication("Email or password is incorrect", errCtx)
		}
		return TokenPair{}, shared.Database(err, errCtx)
	}
	if account.IsDeleted {
		return TokenPair{}, shared.Authentication("Your account is deleted", errCtx)
	}
	if account.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return TokenPair{}, shared.Authentication("Email or password is incorrect", errCtx)
	}
	return s.issue(ctx, account.ID)
}

func (s *Service) issue(ctx context.Context, userID uuid.UUID) (TokenPair, error) {
	errCtx := shared.Context{"api": "issueTokens", "userId": userID.String()}
	roles, err := s.repo.RoleNames(ctx, userID)
	if err != nil {
		return TokenPair{}, shared.Database(err, errCtx)
	}
	if len(roles) == 0 {
		return TokenPair{}, shared.Authentication("User has no roles", errCtx)
	}
	access, err := s.tokens.IssueAccess(userID, roles)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, claims, err := s.tokens.IssueRefresh(userID, roles, nil)
	if err != nil {
		return TokenPair{}, err
	}
	stored := StoredRefreshToken{
		Token:     refresh,
		UserID:    userID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := s.repo.SaveRefreshToken(ctx, stored); err != nil {
		return TokenPair{}, shared.Database(err, errCtx)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh rotates a refresh token. The replacement keeps the original expiry,
// so a chain never outlives its first token.
func (s *Service) Refresh(ctx context.Context, token string) (TokenPair, error) {
	errCtx := shared.Context{"api": "refreshToken"}
	if strings.TrimSpace(token) == "" {
		return TokenPair{}, shared.Authorization("Refresh token is required", errCtx)
	}
	claims, err := s.tokens.VerifyRefresh(token)
	if err != nil {
		return TokenPair{}, shared.Authorization("Invalid refresh token", errCtx)
	}
	if _, err := s.repo.FindRefreshToken(ctx, token); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return TokenPair{}, shared.NotFound("Refresh token not found", errCtx)
		}
		return TokenPair{}, shared.Database(err, errCtx)
	}
	userID := uuid.MustParse(claims.UserID)
	account, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return TokenPair{}, shared.Authentication("User not found", errCtx)
		}
		return TokenPair{}, shared.Database(err, errCtx)
	}
	if account.IsDeleted {
		return TokenPair{}, shared.Authentication("Your account is deleted", errCtx)
	}

	exp := claims.ExpiresAt.Time
	access, err := s.tokens.IssueAccess(userID, claims.Roles)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, next, err := s.tokens.IssueRefresh(userID, claims.Roles, &exp)
	if err != nil {
		return TokenPair{}, err
	}
	err = s.repo.RotateRefreshToken(ctx, token, StoredRefreshToken{
		Token:     refresh,
		UserID:    userID,
		IssuedAt:  next.IssuedAt.Time,
		ExpiresAt: next.ExpiresAt.Time,
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return TokenPair{}, shared.NotFound("Refresh token not found", errCtx)
		}
		return TokenPair{}, shared.Database(err, errCtx)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// GoogleAuthURL returns the Google consent URL for the front end.
func (s *Service) GoogleAuthURL() string {
	return s.google.AuthCodeURL(uuid.NewString())
}

// LoginWithGoogle signs in the Google account owner, creating an Employee
// account on first sign in.
func (s *Service) LoginWithGoogle(ctx context.Context, code string) (TokenPair, error) {
	errCtx := shared.Context{"api": "oauthGoogle"}
	if strings.TrimSpace(code) == "" {
		return TokenPair{}, shared.BadRequest("Authorization code is required", errCtx)
	}
	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		return TokenPair{}, shared.Authentication("Google sign in failed", shared.Context{"api": "oauthGoogle", "reason": err.Error()})
	}

	account, err := s.repo.FindByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if account.IsDeleted {
			return TokenPair{}, shared.Authentication("Your account is deleted", errCtx)
		}
		return s.issue(ctx, account.ID)
	case !errors.Is(err, shared.ErrNotFound):
		return TokenPair{}, shared.Database(err, errCtx)
	}

	// Google accounts get an unusable random password until they set one.
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.bcryptCost)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth: hash password: %w", err)
	}
	created, err := s.repo.CreateOAuthAccount(ctx, NewOAuthAccount{
		Email:        profile.Email,
		FirstName:    truncate(profile.GivenName, 30),
		LastName:     truncate(profile.FamilyName, 30),
		AvatarURL:    profile.Picture,
		PasswordHash: string(hash),
		Role:         DefaultOAuthRole,
	})
	if err != nil {
		return TokenPair{}, shared.Database(err, errCtx)
	}
	return s.issue(ctx, created.ID)
}

// RedirectURL builds the front end URL carrying a token pair.
func RedirectURL(frontend string, pair TokenPair) string {
	return fmt.Sprintf("%s/?access_token=%s&refresh_token=%s", strings.TrimRight(frontend, "/"), pair.AccessToken, pair.RefreshToken)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
