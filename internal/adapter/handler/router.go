package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/seedbridge/crm-portal/pkg/config"
	pkgmw "github.com/seedbridge/crm-portal/pkg/middleware"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Router holds all handlers
type Router struct {
	cfg                *config.Config
	authHandler        *Auth
	integrationHandler *Integration
	notesHandler       *Notes
	crmHandler         *CRM
	authMW             echo.MiddlewareFunc
	optionalAuthMW     echo.MiddlewareFunc
	checks             map[string]HealthCheck
}

// NewRouter creates a new router with all handlers
func NewRouter(
	cfg *config.Config,
	authHandler *Auth,
	integrationHandler *Integration,
	notesHandler *Notes,
	crmHandler *CRM,
	authMW echo.MiddlewareFunc,
	optionalAuthMW echo.MiddlewareFunc,
	checks map[string]HealthCheck,
) *Router {
	return &Router{
		cfg:                cfg,
		authHandler:        authHandler,
		integrationHandler: integrationHandler,
		notesHandler:       notesHandler,
		crmHandler:         crmHandler,
		authMW:             authMW,
		optionalAuthMW:     optionalAuthMW,
		checks:             checks,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/v1")

	rt.setupAuthRoutes(v1)
	rt.setupIntegrationRoutes(v1)
	rt.setupNotesRoutes(v1)
	rt.setupCRMRoutes(v1)
}

// setupAuthRoutes configures authentication routes
func (rt *Router) setupAuthRoutes(g *echo.Group) {
	authGroup := g.Group("/auth")

	authGroup.GET("/google/login", rt.authHandler.GoogleLogin)
	authGroup.GET("/google/callback", rt.authHandler.GoogleCallback)
	authGroup.POST("/refresh", rt.authHandler.RefreshToken)
	authGroup.POST("/logout", rt.authHandler.Logout, rt.optionalAuthMW)
	authGroup.GET("/me", rt.authHandler.Me, rt.authMW)
}

// setupIntegrationRoutes configures the Google connection routes
func (rt *Router) setupIntegrationRoutes(g *echo.Group) {
	google := g.Group("/integrations/google", rt.authMW, pkgmw.RequireTeam())

	google.GET("", rt.integrationHandler.Status)
	google.GET("/authorize", rt.integrationHandler.Authorize)
	google.POST("/exchange", rt.integrationHandler.Exchange)
	google.POST("/refresh", rt.integrationHandler.Refresh)
	google.POST("/revoke", rt.integrationHandler.Revoke)
	google.PUT("/notes", rt.integrationHandler.SetNotes)
}

// setupNotesRoutes configures notes ingestion routes
func (rt *Router) setupNotesRoutes(g *echo.Group) {
	notesGroup := g.Group("/notes", rt.authMW, pkgmw.RequireTeam())

	notesGroup.POST("/sweep", rt.notesHandler.Sweep)
	notesGroup.GET("/review", rt.notesHandler.Review)
}

// setupCRMRoutes configures lead intake and entity routes
func (rt *Router) setupCRMRoutes(g *echo.Group) {
	g.POST("/leads", rt.crmHandler.SubmitLead)
	g.GET("/leads", rt.crmHandler.ListLeads, rt.authMW, pkgmw.RequireTeam())
	g.GET("/entities/:type/:id/meetings", rt.crmHandler.EntityMeetings, rt.authMW, pkgmw.RequireTeam())
}

// healthCheck returns health status
// @Summary      Health check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (rt *Router) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(rt.checks))
	for name, check := range rt.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	return c.JSON(status, map[string]interface{}{
		"status":       overall,
		"environment":  rt.cfg.Server.Environment,
		"dependencies": deps,
		"time":         time.Now().UTC().Format(time.RFC3339),
	})
}
