package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	revokeURL   = "https://oauth2.googleapis.com/revoke"
)

// Scopes requested for dashboard sign-in.
var LoginScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// GoogleProvider handles Google OAuth2 for both dashboard sign-in and the
// Drive/Calendar integration
type GoogleProvider struct {
	login       *oauth2.Config
	integration *oauth2.Config
	httpClient  *http.Client
	userInfoURL string
	revokeURL   string
}

// GoogleUserInfo represents the user information from Google
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

// StatusError is a non-2xx response from a Google OAuth endpoint
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status=%d body=%s", e.Op, e.Status, e.Body)
}

// ResponseStatus exposes the HTTP status to the retry helper
func (e *StatusError) ResponseStatus() int {
	return e.Status
}

// NewGoogleProvider creates a new Google OAuth provider
func NewGoogleProvider(clientID, clientSecret, loginRedirectURL, integrationRedirectURL string) *GoogleProvider {
	return &GoogleProvider{
		login: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  loginRedirectURL,
			Scopes:       LoginScopes,
			Endpoint:     google.Endpoint,
		},
		integration: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  integrationRedirectURL,
			Endpoint:     google.Endpoint,
		},
		httpClient:  http.DefaultClient,
		userInfoURL: userInfoURL,
		revokeURL:   revokeURL,
	}
}

// GetAuthURL returns the sign-in authorization URL
func (g *GoogleProvider) GetAuthURL(state string) string {
	return g.login.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ExchangeCode exchanges a sign-in authorization code for tokens
func (g *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := g.login.Exchange(g.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return token, nil
}

// GetUserInfo retrieves user information from Google using the access token
func (g *GoogleProvider) GetUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	client := g.login.Client(g.clientContext(ctx), token)

	resp, err := client.Get(g.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "userinfo", Status: resp.StatusCode, Body: string(body)}
	}

	var userInfo GoogleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user info: %w", err)
	}

	return &userInfo, nil
}

// AuthCodeURL returns the integration consent URL. Offline access and a
// forced consent prompt make Google issue a refresh token every time.
func (g *GoogleProvider) AuthCodeURL(state string, scopes []string) string {
	cfg := *g.integration
	cfg.Scopes = scopes
	return cfg.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange exchanges an integration authorization code for tokens
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := g.integration.Exchange(g.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return token, nil
}

// Refresh obtains a new access token from a refresh token
func (g *GoogleProvider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	tokenSource := g.integration.TokenSource(g.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return newToken, nil
}

// Revoke invalidates a token at Google
func (g *GoogleProvider) Revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Op: "revoke", Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// clientContext makes x/oauth2 use the provider's HTTP client
func (g *GoogleProvider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
}
