package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	authDTO "github.com/seedbridge/crm-portal/internal/adapter/dto/auth"
	"github.com/seedbridge/crm-portal/internal/adapter/presenter"
	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/usecase/auth"
	"github.com/seedbridge/crm-portal/pkg/config"
)

const refreshCookie = "refresh_token"

// LoginService is the dashboard sign-in flow
type LoginService interface {
	GetGoogleAuthURL(ctx context.Context) (*auth.GoogleAuthURLResponse, error)
	HandleGoogleCallback(ctx context.Context, req *auth.GoogleCallbackRequest) (*auth.AuthResponse, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*auth.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) error
}

// Auth handles authentication HTTP requests
type Auth struct {
	oauthService LoginService
	logger       *zap.Logger
	cfg          *config.Config
}

// NewAuth creates a new auth handler
func NewAuth(oauthService LoginService, logger *zap.Logger, cfg *config.Config) *Auth {
	return &Auth{
		oauthService: oauthService,
		logger:       logger,
		cfg:          cfg,
	}
}

// GoogleLogin handles the initial Google OAuth login request
// @Summary      Start Google sign-in
// @Tags         Auth
// @Success      307
// @Router       /auth/google/login [get]
func (h *Auth) GoogleLogin(c echo.Context) error {
	authURL, err := h.oauthService.GetGoogleAuthURL(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return c.Redirect(http.StatusTemporaryRedirect, authURL.URL)
}

// GoogleCallback handles the OAuth callback from Google
// @Summary      Complete Google sign-in
// @Tags         Auth
// @Produce      json
// @Param        code   query     string  true  "Authorization code"
// @Param        state  query     string  true  "CSRF state"
// @Success      200    {object}  auth.AuthResponse
// @Failure      400    {object}  common.ErrorResponse
// @Failure      401    {object}  common.ErrorResponse
// @Router       /auth/google/callback [get]
func (h *Auth) GoogleCallback(c echo.Context) error {
	req := &auth.GoogleCallbackRequest{
		Code:  c.QueryParam("code"),
		State: c.QueryParam("state"),
	}
	if req.Code == "" || req.State == "" {
		return HandleError(h.logger, c, entities.ErrOAuthCodeMissing)
	}

	response, err := h.oauthService.HandleGoogleCallback(c.Request().Context(), req)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	h.setRefreshCookie(c, response.RefreshToken)
	return HandleSuccess(h.logger, c, http.StatusOK, presenter.ToAuthResponse(response))
}

// RefreshToken refreshes the access token
// @Summary      Refresh the access token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      auth.RefreshTokenRequest  false  "Refresh token, if not sent as cookie"
// @Success      200      {object}  auth.RefreshTokenResponse
// @Failure      401      {object}  common.ErrorResponse
// @Router       /auth/refresh [post]
func (h *Auth) RefreshToken(c echo.Context) error {
	var req authDTO.RefreshTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	token := h.refreshToken(c, req.RefreshToken)
	if token == "" {
		return HandleError(h.logger, c, entities.ErrRefreshTokenMissing)
	}

	response, err := h.oauthService.RefreshAccessToken(c.Request().Context(), token)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusOK, presenter.ToAuthRefreshTokenResponse(response))
}

// Logout logs out the current session, or every session of the user
// @Summary      Sign out
// @Tags         Auth
// @Accept       json
// @Security     BearerAuth
// @Param        request  body  auth.LogoutRequest  false  "Logout options"
// @Success      200
// @Router       /auth/logout [post]
func (h *Auth) Logout(c echo.Context) error {
	var req authDTO.LogoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	ctx := c.Request().Context()

	if req.AllSessions {
		user, err := currentUser(c)
		if err != nil {
			return HandleError(h.logger, c, err)
		}
		if err := h.oauthService.LogoutAll(ctx, user.ID); err != nil {
			return HandleError(h.logger, c, err)
		}
	} else {
		token := h.refreshToken(c, req.RefreshToken)
		if token == "" {
			return HandleError(h.logger, c, entities.ErrRefreshTokenMissing)
		}
		if err := h.oauthService.Logout(ctx, token); err != nil {
			return HandleError(h.logger, c, err)
		}
	}

	h.clearRefreshCookie(c)
	return HandleSuccess(h.logger, c, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me returns the current user information
// @Summary      Current user
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  auth.UserResponse
// @Failure      401  {object}  common.ErrorResponse
// @Router       /auth/me [get]
func (h *Auth) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, presenter.ToUserResponse(user))
}

func (h *Auth) refreshToken(c echo.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if cookie, err := c.Cookie(refreshCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func (h *Auth) setRefreshCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     "/v1/auth",
		Expires:  time.Now().Add(h.cfg.JWT.RefreshExpiry),
		HttpOnly: true,
		Secure:   h.cfg.Server.Environment == "production",
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Auth) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
