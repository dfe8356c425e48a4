package entities

import (
	"time"

	"golang.org/x/oauth2"
)

// TokenBundle is the set of Google credentials held for one user. The
// refresh token is long-lived and persisted; the access token expires.
type TokenBundle struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"-"`
	Expiry       time.Time `json:"expiry"`
	TokenType    string    `json:"token_type,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// OAuth2 converts the bundle for use with golang.org/x/oauth2.
func (b *TokenBundle) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		Expiry:       b.Expiry,
		TokenType:    b.TokenType,
	}
}

// TokenBundleFromOAuth2 builds a bundle from a token response. When the
// provider omits the refresh token, previousRefresh is kept.
func TokenBundleFromOAuth2(tok *oauth2.Token, previousRefresh string, scopes []string) *TokenBundle {
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return &TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		Expiry:       tok.Expiry,
		TokenType:    tok.TokenType,
		Scopes:       scopes,
	}
}
