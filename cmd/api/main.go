package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/seedbridge/crm-portal/docs"
	"github.com/seedbridge/crm-portal/internal/adapter/handler"
	"github.com/seedbridge/crm-portal/internal/adapter/repository"
	"github.com/seedbridge/crm-portal/internal/infrastructure/cache"
	"github.com/seedbridge/crm-portal/internal/infrastructure/database"
	"github.com/seedbridge/crm-portal/internal/infrastructure/external/google"
	"github.com/seedbridge/crm-portal/internal/infrastructure/external/oauth"
	"github.com/seedbridge/crm-portal/internal/infrastructure/external/sendgrid"
	httpmw "github.com/seedbridge/crm-portal/internal/infrastructure/http/middleware"
	"github.com/seedbridge/crm-portal/internal/infrastructure/lease"
	"github.com/seedbridge/crm-portal/internal/infrastructure/storage"
	"github.com/seedbridge/crm-portal/internal/usecase/auth"
	"github.com/seedbridge/crm-portal/internal/usecase/crm"
	"github.com/seedbridge/crm-portal/internal/usecase/matcher"
	"github.com/seedbridge/crm-portal/internal/usecase/notes"
	"github.com/seedbridge/crm-portal/internal/usecase/notify"
	"github.com/seedbridge/crm-portal/pkg/config"
	"github.com/seedbridge/crm-portal/pkg/jwt"
	"github.com/seedbridge/crm-portal/pkg/retry"
	pkgvalidator "github.com/seedbridge/crm-portal/pkg/validator"
)

// @title           Seedbridge CRM Portal API
// @version         1.0
// @description     Team dashboard backend: Google sign-in, Drive meeting notes ingestion and lead intake.

// @contact.name   Seedbridge Engineering
// @contact.email  engineering@seedbridge.vc

// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Echo instance
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HTTPErrorHandler = handler.ErrorHandler(logger)
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${id} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Set-Cookie", "Cookie"},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit("1M"))

	log.Println("🔧 Initializing dependencies...")

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Production deployments run cmd/migrate explicitly.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE and run cmd/migrate.")
		}
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run AutoMigrate: %v", err)
		}
	}

	// Initialize Redis; development falls back to an in-process store
	log.Println("📦 Connecting to Redis...")
	var store cache.Store
	redisClient, err := cache.NewRedisClient(cfg)
	switch {
	case err == nil:
		defer redisClient.Close()
		store = cache.NewRedisStore(redisClient)
	case cfg.Server.Environment == "production":
		log.Fatalf("Failed to connect to Redis: %v", err)
	default:
		logger.Warn("redis unavailable, using in-memory store", zap.Error(err))
		memory := cache.NewMemoryStore()
		defer memory.Close()
		store = memory
	}

	var locker lease.Locker = lease.NewStoreLocker(store)
	if cfg.Lease.Backend == "file" {
		locker = lease.NewFileLocker(cfg.Lease.Dir)
	}

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	notesRepo := repository.NewNotesRepository(db)
	contactRepo := repository.NewContactRepository(db)
	entityRepo := repository.NewEntityRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	leadRepo := repository.NewLeadRepository(db)

	retryOpts := []retry.Option{
		retry.WithMaxRetries(cfg.Notes.RetryMax),
		retry.WithMaxBackoff(cfg.Notes.RetryMaxBackoff),
	}

	// Initialize OAuth
	log.Println("🔐 Initializing OAuth provider...")
	googleProvider := oauth.NewGoogleProvider(
		cfg.OAuth.Google.ClientID,
		cfg.OAuth.Google.ClientSecret,
		cfg.OAuth.Google.RedirectURL,
		cfg.OAuth.Google.IntegrationRedirectURL,
	)
	stateManager := oauth.NewStateManager(store)
	jwtManager := jwt.NewManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	oauthService := auth.NewOAuthService(userRepo, sessionRepo, googleProvider, stateManager, jwtManager, logger)
	integrationService := auth.NewIntegrationService(googleProvider, stateManager, userRepo, sessionRepo, logger, retryOpts...)

	// Email
	mailer := sendgrid.NewMailer(cfg.SendGrid, logger, retryOpts...)
	if !mailer.Enabled() {
		log.Println("⚠️  SENDGRID_API_KEY not set, emails are logged and dropped")
	}
	notifier := notify.NewService(mailer, cfg.SendGrid.TeamEmail, cfg.Server.PortalURL, logger)

	// Notes archive
	var archive *storage.MinIOClient
	if cfg.Storage.Enabled {
		log.Println("🗄️  Connecting to object storage...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		archive, err = storage.NewMinIOClient(ctx, &cfg.Storage)
		cancel()
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
	}

	// Notes ingestion
	log.Println("📝 Initializing notes ingestion...")
	factory := google.NewClientFactory()
	driveLimits := google.DefaultRateLimits[google.ServiceDrive]
	if cfg.Notes.RequestsPerSecond > 0 {
		driveLimits.RequestsPerSecond = cfg.Notes.RequestsPerSecond
	}
	scanner := google.NewDriveScanner(factory, google.DriveConfig{
		NameMarker: cfg.Notes.NameMarker,
		PageSize:   cfg.Notes.PageSize,
		Limiter:    google.NewRateLimiterWithConfig(driveLimits),
		Retry:      retryOpts,
	}, logger)
	resolver := google.NewCalendarResolver(factory, google.CalendarConfig{
		Limiter: google.NewRateLimiter(google.ServiceCalendar),
		Retry:   retryOpts,
	}, logger)

	deps := notes.Deps{
		Users:        userRepo,
		Notes:        notesRepo,
		Tokens:       integrationService,
		Scanner:      scanner,
		Participants: resolver,
		Matcher:      matcher.New(contactRepo, cfg.Notes.TeamDomains, logger),
		Locker:       locker,
		Notifier:     notifier,
	}
	var presigner crm.Presigner
	if archive != nil {
		deps.Archiver = archive
		presigner = archive
	}
	notesService := notes.NewService(deps, notes.Config{
		Lookback:         cfg.Notes.Lookback,
		SweepTimeout:     cfg.Notes.SweepTimeout,
		DeadlineMargin:   cfg.Notes.DeadlineMargin,
		LeaseTTL:         cfg.Lease.TTL,
		MaxMatchAttempts: cfg.Notes.MaxMatchAttempts,
		NameMarker:       cfg.Notes.NameMarker,
	}, logger)

	leadService := crm.NewLeadService(leadRepo, activityRepo, notifier, logger)
	entityService := crm.NewEntityService(entityRepo, meetingRepo, presigner, logger)

	// Handlers and routes
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(
		cfg,
		handler.NewAuth(oauthService, logger, cfg),
		handler.NewIntegration(integrationService, logger),
		handler.NewNotes(notesService, logger),
		handler.NewCRM(leadService, entityService, logger),
		httpmw.EchoAuth(oauthService),
		httpmw.OptionalAuth(oauthService),
		healthChecks(db, redisClient),
	)
	router.Setup(e)

	// Scheduler
	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	scheduler := notes.NewScheduler(notesService, cfg.Notes.SweepInterval, logger)
	if cfg.Notes.SchedulerEnabled {
		if err := scheduler.Start(rootCtx); err != nil {
			log.Fatalf("Failed to start notes scheduler: %v", err)
		}
	} else {
		log.Println("⏸️  Notes scheduler disabled")
	}

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	stopRoot()
	scheduler.Stop()

	log.Println("✅ Server stopped gracefully")
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func healthChecks(db *gorm.DB, redisClient *redis.Client) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
