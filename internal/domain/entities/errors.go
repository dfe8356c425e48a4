package entities

import "errors"

// Domain errors
var (
	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidEmail = errors.New("invalid email")
	ErrInvalidName  = errors.New("invalid name")
	ErrInvalidRole  = errors.New("invalid role")

	// OAuth errors
	ErrOAuthStateMismatch  = errors.New("oauth state mismatch")
	ErrOAuthCodeMissing    = errors.New("oauth authorization code is required")
	ErrOAuthScopesMissing  = errors.New("at least one oauth scope is required")
	ErrRefreshTokenMissing = errors.New("refresh token is required")
	ErrGoogleNotConnected  = errors.New("google account not connected")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidToken    = errors.New("invalid token")

	// CRM errors
	ErrEntityNotFound    = errors.New("crm entity not found")
	ErrInvalidEntityType = errors.New("invalid crm entity type")
	ErrContactNotFound   = errors.New("contact not found")
	ErrLeadAlreadyExists = errors.New("lead already submitted")
	ErrLeadNotFound      = errors.New("lead not found")
	ErrMeetingNotFound   = errors.New("meeting not found")
	ErrSweepInProgress   = errors.New("notes sweep already in progress")
	ErrLeaseNotHeld      = errors.New("lease not held")

	// Generic errors
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid request")
)
