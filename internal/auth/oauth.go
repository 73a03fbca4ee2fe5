package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

var googleScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
}

// GoogleProfile is the subset of the userinfo response used for sign in.
type GoogleProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// IdentityProvider exchanges an authorization code for a user profile.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (GoogleProfile, error)
}

// GoogleConfig configures the Google OAuth client.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GoogleProvider implements IdentityProvider for Google accounts.
type GoogleProvider struct {
	oauth2Config *oauth2.Config
	userInfoURL  string
}

// NewGoogleProvider creates a Google OAuth provider.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	return &GoogleProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       googleScopes,
		},
		userInfoURL: googleUserInfoURL,
	}
}

// AuthCodeURL returns the consent page URL, always asking for offline access.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades the code for a token and fetches the userinfo document.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (GoogleProfile, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("auth: exchange code: %w", err)
	}
	client := p.oauth2Config.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return GoogleProfile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("auth: fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return GoogleProfile{}, fmt.Errorf("auth: userinfo status %d: %s", resp.StatusCode, string(body))
	}
	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return GoogleProfile{}, fmt.Errorf("auth: decode userinfo: %w", err)
	}
	if profile.Email == "" {
		return GoogleProfile{}, fmt.Errorf("auth: userinfo without email")
	}
	return profile, nil
}
