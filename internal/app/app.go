package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/userdesk/internal/config"
	"github.com/simp-lee/userdesk/internal/domain"
	"github.com/simp-lee/userdesk/internal/middleware"
	"github.com/simp-lee/userdesk/internal/module/user"
	"github.com/simp-lee/userdesk/internal/pkg"
)

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine    *gin.Engine
	db        *gorm.DB
	logger    *logger.Logger
	ownLogger bool
	cfg       *config.Config
}

// Option customises New.
type Option func(*options)

type options struct {
	logger  *logger.Logger
	migrate bool
}

// WithLogger makes the app log through l instead of building its own from
// cfg.Log. The caller keeps ownership of l.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMigrate runs AutoMigrate on startup regardless of server mode.
func WithMigrate(migrate bool) Option {
	return func(o *options) { o.migrate = migrate }
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler, timeout time.Duration) httpServer {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if timeout > 0 {
		srv.ReadTimeout = timeout
		srv.WriteTimeout = timeout
	}
	return srv
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New creates and wires a fully configured App from the given Config.
//
// It sets up logging, the database, the users repository, service and
// handler, middleware and routes. The schema is migrated in debug mode or
// when WithMigrate(true) is given.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	success := false

	log, ownLogger := o.logger, false
	if log == nil {
		var err error
		log, err = config.SetupLogger(&cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("setup logger: %w", err)
		}
		ownLogger = true
		defer func() {
			if success {
				return
			}
			if err := log.Close(); err != nil {
				slog.Error("logger close error", slog.Any("error", err))
			}
		}()
	}

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == config.DefaultHost {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior and permissive CORS")
	}

	db, err := config.SetupDatabase(&cfg.Database, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				slog.Error("database close error", slog.Any("error", err))
			}
		}
	}()

	if o.migrate || cfg.Server.Mode == gin.DebugMode {
		if err := db.AutoMigrate(&domain.User{}); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("auto migration completed")
	}

	if err := pkg.RegisterBinding(); err != nil {
		return nil, fmt.Errorf("register validation rules: %w", err)
	}

	// Manual dependency injection: repository → service → handler.
	repo := user.NewUserRepository(db)
	svc := user.NewUserService(repo)
	handler := user.NewUserHandler(svc)

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestID(cfg.Server.TrustRequestID),
		middleware.Logger(log.Logger),
		middleware.CORS(corsConfig(cfg.Server.CORS)),
		middleware.Metrics(),
	)
	if rl := cfg.Server.RateLimit; rl.Enabled {
		engine.Use(middleware.RateLimit(rl.RPS, rl.Burst))
	}

	if err := RegisterRoutes(engine, &RouteDeps{
		Modules: []Module{user.NewModule(handler)},
		DB:      db,
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	success = true
	return &App{
		engine:    engine,
		db:        db,
		logger:    log,
		ownLogger: ownLogger,
		cfg:       cfg,
	}, nil
}

func corsConfig(c config.CORSConfig) middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowOrigins:     c.AllowOrigins,
		AllowMethods:     c.AllowMethods,
		AllowHeaders:     c.AllowHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           config.Duration(c.MaxAge),
	}
}

// Handler exposes the configured engine, mainly for httptest servers.
func (a *App) Handler() http.Handler {
	return a.engine
}

// Run starts the HTTP server and blocks until ctx is done, a shutdown signal
// arrives or the server fails. It shuts down gracefully with a 5-second
// deadline and then releases the database and logger.
func (a *App) Run(ctx context.Context) error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	addr := a.cfg.Server.Addr()
	srv := newHTTPServer(addr, a.engine, config.Duration(a.cfg.Server.Timeout))

	ctx, stop := notifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log().Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log().Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log().Error("server shutdown error", slog.Any("error", err))
		}
	}

	a.log().Info("server stopped")
	if err := a.Close(); err != nil {
		slog.Error("close error", slog.Any("error", err))
	}
	return runErr
}

// Close releases the database connection and, when the app built it, the
// logger.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
		a.db = nil
	}
	if a.ownLogger && a.logger != nil {
		if err := a.logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close logger: %w", err))
		}
		a.logger = nil
	}
	return errors.Join(errs...)
}

func (a *App) log() *slog.Logger {
	if a.logger != nil {
		return a.logger.Logger
	}
	return slog.Default()
}
