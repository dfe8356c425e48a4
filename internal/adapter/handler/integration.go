package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	integrationDTO "github.com/seedbridge/crm-portal/internal/adapter/dto/integration"
	"github.com/seedbridge/crm-portal/internal/adapter/presenter"
	"github.com/seedbridge/crm-portal/internal/domain/entities"
)

// DefaultIntegrationScopes are requested when the client names none.
var DefaultIntegrationScopes = []string{
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/calendar.readonly",
}

// IntegrationService manages the caller's Google connection
type IntegrationService interface {
	BuildAuthorizationURL(ctx context.Context, identity *entities.User, scopes []string) (string, error)
	ExchangeCodeForTokens(ctx context.Context, identity *entities.User, code, state string) (*entities.TokenBundle, error)
	RefreshAccessToken(ctx context.Context, identity *entities.User, refreshToken string) (*entities.TokenBundle, error)
	Revoke(ctx context.Context, identity *entities.User, refreshToken string) error
	SetNotesIngestion(ctx context.Context, identity *entities.User, enabled bool) error
}

// Integration handles the Google Drive/Calendar connection endpoints
type Integration struct {
	service IntegrationService
	logger  *zap.Logger
}

// NewIntegration creates a new integration handler
func NewIntegration(service IntegrationService, logger *zap.Logger) *Integration {
	return &Integration{service: service, logger: logger}
}

// Status returns the caller's Google connection
// @Summary      Google connection status
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  integration.StatusResponse
// @Router       /integrations/google [get]
func (h *Integration) Status(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, presenter.ToIntegrationStatus(user))
}

// Authorize returns the Google consent URL
// @Summary      Build the Google consent URL
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Param        scopes  query     string  false  "Space or comma separated scopes"
// @Success      200     {object}  integration.AuthorizeResponse
// @Failure      400     {object}  common.ErrorResponse
// @Router       /integrations/google/authorize [get]
func (h *Integration) Authorize(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	scopes := DefaultIntegrationScopes
	if raw := c.QueryParam("scopes"); raw != "" {
		scopes = strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	}

	url, err := h.service.BuildAuthorizationURL(c.Request().Context(), user, scopes)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, integrationDTO.AuthorizeResponse{URL: url})
}

// Exchange redeems the authorization code
// @Summary      Exchange the authorization code
// @Tags         Integrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      integration.ExchangeRequest  true  "Code and state"
// @Success      200      {object}  integration.TokenResponse
// @Failure      400      {object}  common.ErrorResponse
// @Failure      503      {object}  common.ErrorResponse
// @Router       /integrations/google/exchange [post]
func (h *Integration) Exchange(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req integrationDTO.ExchangeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	bundle, err := h.service.ExchangeCodeForTokens(c.Request().Context(), user, req.Code, req.State)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, presenter.ToTokenResponse(bundle))
}

// Refresh obtains a fresh Google access token
// @Summary      Refresh the Google access token
// @Tags         Integrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      integration.RefreshRequest  false  "Refresh token"
// @Success      200      {object}  integration.TokenResponse
// @Failure      503      {object}  common.ErrorResponse
// @Router       /integrations/google/refresh [post]
func (h *Integration) Refresh(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req integrationDTO.RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	bundle, err := h.service.RefreshAccessToken(c.Request().Context(), user, storedRefreshToken(user, req.RefreshToken))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, presenter.ToTokenResponse(bundle))
}

// Revoke disconnects Google
// @Summary      Disconnect Google
// @Tags         Integrations
// @Accept       json
// @Security     BearerAuth
// @Param        request  body  integration.RevokeRequest  false  "Refresh token"
// @Success      200
// @Router       /integrations/google/revoke [post]
func (h *Integration) Revoke(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req integrationDTO.RevokeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.service.Revoke(c.Request().Context(), user, storedRefreshToken(user, req.RefreshToken)); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, presenter.ToIntegrationStatus(user))
}

// SetNotes toggles notes ingestion for the caller
// @Summary      Toggle notes ingestion
// @Tags         Integrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      integration.NotesToggleRequest  true  "Toggle"
// @Success      200      {object}  integration.StatusResponse
// @Failure      412      {object}  common.ErrorResponse
// @Router       /integrations/google/notes [put]
func (h *Integration) SetNotes(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req integrationDTO.NotesToggleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.service.SetNotesIngestion(c.Request().Context(), user, *req.Enabled); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, presenter.ToIntegrationStatus(user))
}

func storedRefreshToken(user *entities.User, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if user.GoogleRefreshToken != nil {
		return *user.GoogleRefreshToken
	}
	return ""
}
