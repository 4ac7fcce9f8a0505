package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/audit"
	auditPostgres "github.com/frahmantamala/company-authz/internal/audit/postgres"
	"github.com/frahmantamala/company-authz/internal/auth"
	authPostgres "github.com/frahmantamala/company-authz/internal/auth/postgres"
	"github.com/frahmantamala/company-authz/internal/authz"
	"github.com/frahmantamala/company-authz/internal/company"
	companyPostgres "github.com/frahmantamala/company-authz/internal/company/postgres"
	"github.com/frahmantamala/company-authz/internal/core/events"
	"github.com/frahmantamala/company-authz/internal/membership"
	membershipPostgres "github.com/frahmantamala/company-authz/internal/membership/postgres"
	"github.com/frahmantamala/company-authz/internal/ratelimit"
	"github.com/frahmantamala/company-authz/internal/settings"
	"github.com/frahmantamala/company-authz/internal/transport"
	authzMiddleware "github.com/frahmantamala/company-authz/internal/transport/middleware"
	"github.com/frahmantamala/company-authz/internal/transport/rest"
	"github.com/frahmantamala/company-authz/internal/transport/swagger"
	"github.com/frahmantamala/company-authz/internal/user"
	"github.com/frahmantamala/company-authz/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Router   *chi.Mux
	EventBus *events.EventBus
	Limiters []*ratelimit.Limiter
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	for _, l := range deps.Limiters {
		go l.Run(ctx)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		// let pending operator alerts flush before the pool goes away
		deps.EventBus.Wait()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Configure(os.Stdout, config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	if _, err := swagger.Load(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}

	trusted, err := config.Server.TrustedProxyPrefixes()
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	eventBus := events.NewEventBus(lg)
	eventBus.Subscribe(events.EventTypeAuditWriteFailed, audit.NewOperatorAlertHandler(logger.Operator()))

	auditSvc := audit.NewService(
		auditPostgres.NewAuditRepository(gdb),
		auditPostgres.NewQueryRepository(db),
		eventBus,
		audit.Options{
			LogAllActions:      config.Authorization.LogAllActions,
			SecurityEventsOnly: config.Authorization.SecurityEventsOnly,
		},
		lg,
	)

	settingsSvc := settings.NewService(config.Authorization.EnforceCompanyIsolation, auditSvc, lg)
	store := membership.NewStore(membershipPostgres.NewMembershipRepository(gdb), settingsSvc, lg)
	engine := authz.NewEngine(store, settingsSvc)
	enforcer := authz.NewEnforcer(engine, auditSvc, lg)
	membershipSvc := membership.NewService(store, engine, auditSvc)
	companySvc := company.NewService(companyPostgres.NewCompanyRepository(gdb), membershipSvc, auditSvc, lg)

	tokens := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authSvc := auth.NewService(authPostgres.NewRepository(gdb), tokens, auditSvc, config.Security.BCryptCost, lg)

	var userLimiter, addressLimiter *ratelimit.Limiter
	var limiters []*ratelimit.Limiter
	if config.RateLimit.Enabled {
		userLimiter = ratelimit.New(config.RateLimit.Window(), config.RateLimit.MaxRequests)
		addressLimiter = ratelimit.New(config.RateLimit.Window(), config.RateLimit.MaxRequestsPerAddress)
		limiters = append(limiters, userLimiter, addressLimiter)
	}

	base := transport.NewBaseHandler(lg)
	router := chi.NewRouter()
	if config.Server.RequestTimeout > 0 {
		router.Use(middleware.Timeout(config.Server.RequestTimeout))
	}

	rest.RegisterAllRoutes(router, rest.Handlers{
		Health:     rest.NewHealthHandler(db).WithIsolation(settingsSvc),
		Auth:       auth.NewHandler(base, authSvc, auditSvc),
		User:       user.NewHandler(base, user.NewService(store)),
		Company:    company.NewHandler(base, companySvc, store),
		Membership: membership.NewHandler(base, membershipSvc, engine),
		Audit:      audit.NewHandler(base, auditSvc),
		Settings:   settings.NewHandler(base, settingsSvc),
	}, rest.Options{
		Authorizer:     enforcer,
		Limiter:        userLimiter,
		AddressLimiter: addressLimiter,
		ClientIP:       authzMiddleware.NewClientIP(trusted),
		AllowedOrigins: splitOrigins(config.Server.AllowedOrigins),
		MetricsEnabled: config.Observability.Metrics.Enabled,
		MetricsPath:    config.Observability.Metrics.Path,
		Logger:         lg,
	})

	return &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gdb,
		Router:   router,
		EventBus: eventBus,
		Limiters: limiters,
		Logger:   lg,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers gorm over the sqlx pool so both share one set of connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
