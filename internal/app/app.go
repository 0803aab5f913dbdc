package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ems-platform/auth-service/internal/config"
	domainService "github.com/ems-platform/auth-service/internal/domain/service"
	"github.com/ems-platform/auth-service/internal/events"
	eventsKafka "github.com/ems-platform/auth-service/internal/events/kafka"
	handlerHTTP "github.com/ems-platform/auth-service/internal/handler/http"
	"github.com/ems-platform/auth-service/internal/infrastructure/database"
	"github.com/ems-platform/auth-service/internal/infrastructure/mail"
	"github.com/ems-platform/auth-service/internal/infrastructure/oauth"
	"github.com/ems-platform/auth-service/internal/infrastructure/ratelimit"
	"github.com/ems-platform/auth-service/internal/infrastructure/security"
	"github.com/ems-platform/auth-service/internal/service"
	"github.com/ems-platform/auth-service/migrations"
)

// App owns every long-lived component of the service and their shutdown
// order.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	pool      *pgxpool.Pool
	redis     *redis.Client
	publisher events.Publisher
	cleaner   *service.SessionCleaner
	server    *http.Server
}

// New wires the whole service together. Components with external connections
// are opened here; Run starts serving and Shutdown closes everything in
// reverse order.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg.Database.AutoMigrate {
		if err := migrations.Run(cfg.Database, "migrations", logger); err != nil {
			return nil, err
		}
	}

	pool, err := database.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	employeeRepo := database.NewPgxEmployeeRepository(pool)
	sessionRepo := database.NewPgxSessionRepository(pool)
	codeRepo := database.NewPgxVerificationCodeRepository(pool)
	txManager := database.NewTxManager(pool)

	tokens := security.NewJWTService(cfg.JWT)
	passwords, err := security.NewArgon2idPasswordService(cfg.Security.PasswordHash)
	if err != nil {
		pool.Close()
		return nil, err
	}

	var mailer domainService.MailService
	if cfg.Mail.Enabled {
		mailer, err = mail.NewGraphMailer(cfg.Mail, cfg.OTP.TTL, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
	} else {
		mailer = mail.NewLogMailer(logger)
	}

	var oauthProvider domainService.OAuthProvider
	if cfg.OAuth.Enabled {
		oauthProvider = oauth.NewMicrosoftProvider(cfg.OAuth)
	}

	var redisClient *redis.Client
	var limiter domainService.RateLimiter
	if cfg.Security.RateLimiting.Enabled {
		redisClient, err = ratelimit.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			pool.Close()
			return nil, err
		}
		limiter = ratelimit.NewRedisRateLimiter(redisClient, logger)
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = eventsKafka.NewProducer(cfg.Kafka, logger)
	}

	loginLimit := cfg.Security.RateLimiting.LoginPerKey
	loginLimit.Enabled = loginLimit.Enabled && cfg.Security.RateLimiting.Enabled

	authService := service.NewAuthService(service.AuthServiceDeps{
		Employees: employeeRepo,
		Sessions:  sessionRepo,
		Codes:     codeRepo,
		Tokens:    tokens,
		Passwords: passwords,
		Mail:      mailer,
		OAuth:     oauthProvider,
		Limiter:   limiter,
		Tx:        txManager,
		Publisher: publisher,
		Logger:    logger,
	}, cfg.JWT, cfg.OTP, loginLimit)

	cleaner := service.NewSessionCleaner(sessionRepo, codeRepo,
		cfg.Cleanup.Interval, cfg.Cleanup.OTPRetention, logger)

	router := handlerHTTP.NewRouter(handlerHTTP.RouterDeps{
		AuthHandler:    handlerHTTP.NewAuthHandler(authService, logger),
		Tokens:         tokens,
		Logger:         logger,
		APIPrefix:      cfg.Server.APIPrefix,
		ReadinessCheck: pool.Ping,
		Environment:    cfg.Logging.Environment,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		redis:     redisClient,
		publisher: publisher,
		cleaner:   cleaner,
		server:    server,
	}, nil
}

// Run starts the background cleaner and serves HTTP until the server is shut
// down.
func (a *App) Run() error {
	a.cleaner.Start()
	a.logger.Info("listening", zap.String("addr", a.server.Addr))
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and closes every component.
func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		firstErr = fmt.Errorf("http shutdown failed: %w", err)
	}

	a.cleaner.Stop()

	if err := a.publisher.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.pool.Close()

	_ = a.logger.Sync()
	return firstErr
}
