package integration

import "time"

// AuthorizeResponse carries the Google consent URL
type AuthorizeResponse struct {
	URL string `json:"url"`
}

// ExchangeRequest redeems the code returned to the consent redirect
type ExchangeRequest struct {
	Code  string `json:"code" validate:"required"`
	State string `json:"state" validate:"required"`
}

// RefreshRequest refreshes the Google access token. Without a refresh token
// the stored one is used.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RevokeRequest disconnects Google. Without a refresh token the stored one
// is revoked.
type RevokeRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// NotesToggleRequest turns notes ingestion on or off
type NotesToggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// TokenResponse is the client-visible part of a token bundle. The refresh
// token never leaves the server.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	Expiry      time.Time `json:"expiry"`
	Scopes      []string  `json:"scopes,omitempty"`
}

// StatusResponse describes the caller's Google connection
type StatusResponse struct {
	Connected      bool       `json:"connected"`
	Scopes         []string   `json:"scopes,omitempty"`
	Expiry         *time.Time `json:"expiry,omitempty"`
	NotesIngestion bool       `json:"notes_ingestion_enabled"`
}
