package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "authservice/docs"
	"authservice/internal/config"
	"authservice/internal/db"
	"authservice/internal/handlers"
	"authservice/internal/jobs"
	"authservice/internal/logging"
	"authservice/internal/middleware"
	"authservice/internal/models"
	"authservice/internal/repositories"
	"authservice/internal/routes"
	"authservice/internal/services"
	"authservice/internal/utils"
)

const shutdownTimeout = 15 * time.Second

// App owns the long-lived pieces: router, notification workers, cron.
type App struct {
	cfg        *config.Config
	log        *zap.Logger
	router     *gin.Engine
	dispatcher *services.Dispatcher
	scheduler  *jobs.Scheduler
	rdb        *redis.Client
}

// Run loads config, opens the database and serves until SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.LoadConfig(config.DefaultPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logging.New(cfg.Server.Debug)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// === DB ===
	conn, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn("db close failed", zap.Error(err))
		}
	}()
	if cfg.Database.Migrate {
		if err := db.Migrate(conn); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	a, err := New(cfg, conn, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

func tokenPolicy(name string, p config.TokenPolicyConfig) (services.TokenPolicy, error) {
	policy := services.TokenPolicy{Charset: utils.Charset(p.Charset), Length: p.Length, TTL: p.TTL}
	if !policy.Charset.Valid() || policy.Length <= 0 || policy.TTL <= 0 {
		return policy, fmt.Errorf("token policy %s: invalid charset %q, length %d or ttl %s", name, p.Charset, p.Length, p.TTL)
	}
	return policy, nil
}

func tokenPolicies(cfg config.TokensConfig) (services.TokenPolicies, error) {
	var (
		out services.TokenPolicies
		err error
	)
	if out.Verify, err = tokenPolicy("verify", cfg.Verify); err != nil {
		return out, err
	}
	if out.Phone, err = tokenPolicy("phone", cfg.Phone); err != nil {
		return out, err
	}
	if out.Reset, err = tokenPolicy("reset", cfg.Reset); err != nil {
		return out, err
	}
	if out.Update, err = tokenPolicy("update", cfg.Update); err != nil {
		return out, err
	}
	return out, nil
}

// New wires repositories, services and handlers on top of conn.
func New(cfg *config.Config, conn *sql.DB, log *zap.Logger) (*App, error) {
	clock := utils.SystemClock{}

	policies, err := tokenPolicies(cfg.Tokens)
	if err != nil {
		return nil, err
	}

	// === Repos ===
	accountRepo := repositories.NewAccountRepository(conn)
	tokenRepo := repositories.NewTokenRepository(conn)
	totpRepo := repositories.NewTOTPRepository(conn)

	// === Notifications ===
	dispatcher := services.NewDispatcher(services.DispatcherOptions{
		Workers:     cfg.Jobs.Workers,
		QueueSize:   cfg.Jobs.QueueSize,
		MaxAttempts: cfg.Jobs.MaxAttempts,
		Backoff:     cfg.Jobs.Backoff,
		SendTimeout: 30 * time.Second,
	}, log)
	dispatcher.Register(models.ChannelEmail, services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
		cfg.Email.FromName,
		log,
	))
	mobizonClient := utils.NewClientWithOptions(cfg.Mobizon.APIKey, cfg.Mobizon.SenderID, cfg.Mobizon.DryRun, log)
	dispatcher.Register(models.ChannelSMS, services.NewSMSService(mobizonClient))

	// Telegram опционален: без токена просто нет алертов
	if cfg.Telegram.BotToken != "" {
		tg, err := services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.AlertChatID, log)
		if err != nil {
			log.Warn("telegram disabled", zap.Error(err))
		} else {
			dispatcher.Register(models.ChannelTelegram, tg)
			dispatcher.AlertOnFailure(tg)
		}
	}

	// === Services ===
	tokenService := services.NewTokenService(tokenRepo, policies, clock, log)
	sessionService := services.NewSessionService(cfg.JWT.Secret)
	deps := services.Deps{
		Accounts:    accountRepo,
		Tokens:      tokenService,
		Credentials: services.NewCredentialService(cfg.Security.BcryptCost),
		Sessions:    sessionService,
		TOTP: services.NewTOTPService(totpRepo, services.TOTPOptions{
			Issuer: cfg.TOTP.Issuer,
			Skew:   cfg.TOTP.Skew,
			Strict: cfg.TOTP.Strict,
		}, clock),
		Notifications: dispatcher,
		Templates:     services.NewTemplates(cfg.TOTP.Issuer, cfg.Frontend.BaseURL),
		Clock:         clock,
		Logger:        log,
		Debug:         cfg.Server.Debug,
	}
	authService := services.NewAuthService(deps)
	userService := services.NewUserService(deps)

	// === Jobs ===
	scheduler := jobs.NewScheduler(tokenService, cfg.Jobs.TokenRetention, clock, log)
	if err := scheduler.Schedule(cfg.Jobs.CleanupSchedule); err != nil {
		return nil, err
	}

	// === Rate limit (Redis) ===
	var (
		rdb     *redis.Client
		limiter gin.HandlerFunc
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		limiter = middleware.RateLimit(middleware.NewRedisRateStore(rdb), middleware.RateLimitOptions{
			Limit:  cfg.RateLimit.Limit,
			Window: cfg.RateLimit.Window,
			Block:  cfg.RateLimit.Block,
			Prefix: "rl:auth",
		}, log)
	}

	// === Gin ===
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeaders())
	if cfg.Frontend.BaseURL != "" {
		router.Use(middleware.CORS(cfg.Frontend.BaseURL))
	} else {
		router.Use(middleware.CORS())
	}

	routes.SetupRoutes(router, routes.Handlers{
		Auth:    handlers.NewAuthHandler(authService),
		User:    handlers.NewUserHandler(userService),
		Admin:   handlers.NewAdminHandler(userService),
		Health:  handlers.NewHealthHandler(conn),
		Session: middleware.AuthMiddleware(sessionService, accountRepo, log),
		Limiter: limiter,
	})

	return &App{
		cfg:        cfg,
		log:        log,
		router:     router,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		rdb:        rdb,
	}, nil
}

func (a *App) Handler() http.Handler { return a.router }

// Serve starts the workers, cron and HTTP server, and shuts them down in
// reverse order once ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	a.dispatcher.Start()
	a.scheduler.Start()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("http shutdown", zap.Error(err))
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.log.Warn("cron stop", zap.Error(err))
	}
	if err := a.dispatcher.Stop(shutdownCtx); err != nil {
		a.log.Warn("dispatcher drain", zap.Error(err))
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Warn("redis close", zap.Error(err))
		}
	}
	return serveErr
}
