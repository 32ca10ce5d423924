package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/attempts"
	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/events"
	httpapi "github.com/aussiebroadwan/bakeboard/internal/admin/http"
	"github.com/aussiebroadwan/bakeboard/internal/admin/metrics"
	"github.com/aussiebroadwan/bakeboard/internal/admin/notify"
	"github.com/aussiebroadwan/bakeboard/internal/admin/service"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store/drivers/postgres"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store/drivers/sqlite"
	"github.com/aussiebroadwan/bakeboard/pkg/cryptox"
	"github.com/aussiebroadwan/bakeboard/pkg/jwtx"
	"github.com/aussiebroadwan/bakeboard/pkg/slogx"
	retry "github.com/avast/retry-go/v4"
	"github.com/go-redis/redis/v8"
)

// BuildVersion is overridden at build time with -ldflags "-X ...".
var BuildVersion = "v0.1.0"

// memoryCounterSize bounds the number of invitations tracked in-process.
const memoryCounterSize = 10_000

// Application owns the admin service and its dependencies.
type Application struct {
	cfg       Config
	logger    *slog.Logger
	logCloser io.Closer

	db      store.Store
	redis   *redis.Client
	counter attempts.Counter
	queue   *notify.Queue
	bus     *events.Bus

	invitationService   *service.InvitationService
	numberingService    *service.NumberingService
	rolesService        *service.RolesService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	logger, closer := slogx.New(slogx.Config{
		Service: "admin-service",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
	})
	app := &Application{cfg: cfg, logger: logger, logCloser: closer}

	cryptox.SetPepperPath(cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initAttempts(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initNotify(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	if err := app.initHTTP(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("admin service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains requests first, then pending notifications, then closes
// the backends.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down admin service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.queue.Close(ctx); err != nil {
		app.logger.Warn("notifications still queued at shutdown", "error", err)
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("admin service stopped")
	return app.logCloser.Close()
}

func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.Database.Driver {
	case DriverPostgres:
		// The database container may still be starting.
		err = retry.Do(
			func() error {
				var openErr error
				db, openErr = postgres.NewStore(app.cfg.Database.URL)
				return openErr
			},
			retry.Attempts(5),
			retry.Delay(time.Second),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				app.logger.Warn("database not reachable, retrying", "attempt", n+1, "error", err)
			}),
		)
	default:
		db, err = sqlite.NewStore(app.cfg.Database.File)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.Database.Driver)
	return nil
}

func (app *Application) initAttempts() error {
	if app.cfg.RedisURL == "" {
		app.counter = attempts.NewMemoryCounter(memoryCounterSize, domain.AttemptWindow)
		app.logger.Info("attempt counter: in-memory")
		return nil
	}

	opts, err := redis.ParseURL(app.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	app.redis = redis.NewClient(opts)
	app.counter = attempts.NewRedisCounter(app.redis, domain.AttemptWindow)
	app.logger.Info("attempt counter: redis", "addr", opts.Addr)
	return nil
}

func (app *Application) initNotify() error {
	var next notify.Dispatcher = notify.LogDispatcher{}
	if app.cfg.SMTP.Host != "" {
		mailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     app.cfg.SMTP.Host,
			Port:     app.cfg.SMTP.Port,
			Username: app.cfg.SMTP.Username,
			Password: app.cfg.SMTP.Password,
			From:     app.cfg.SMTP.From,
		})
		if err != nil {
			return fmt.Errorf("failed to configure smtp: %w", err)
		}
		next = mailer
	} else {
		app.logger.Warn("SMTP_HOST not set, notifications are only logged")
	}

	app.queue = notify.NewQueue(next, app.cfg.Notify.queue())
	app.queue.OnResult(metrics.RecordNotification)

	app.bus = events.NewBus()
	app.bus.Subscribe(events.UserRegisteredEvent, service.WelcomeListener(app.queue))
	return nil
}

func (app *Application) initServices() {
	app.invitationService = &service.InvitationService{
		Store:       app.db,
		Attempts:    attempts.NewTracker(app.counter),
		Notifier:    app.queue,
		Events:      app.bus,
		Validity:    app.cfg.InvitationValidity,
		BaseURL:     app.cfg.RegistrationBaseURL,
		PhoneRegion: app.cfg.PhoneRegion,
	}
	app.numberingService = &service.NumberingService{
		Store:       app.db,
		MaxAttempts: app.cfg.SequenceAttempts,
	}
	app.rolesService = &service.RolesService{Store: app.db}
	app.userService = &service.UserService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.InvitationRetention,
	)
}

func (app *Application) initHTTP() error {
	verifier, err := jwtx.NewHS256([]byte(app.cfg.JWTSecret), app.cfg.JWTIssuer)
	if err != nil {
		return fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	opts := []httpapi.Option{
		httpapi.WithLimits(app.cfg.RateLimit.Limits()),
		httpapi.WithAttemptCounter(app.counter),
	}
	if app.cfg.EnableMetrics {
		opts = append(opts, httpapi.WithMetrics())
	}
	if app.cfg.EnableSwagger {
		opts = append(opts, httpapi.WithSwagger())
	}

	router := httpapi.NewRouter(verifier, BuildVersion, app.db, app.logger, opts...)
	router.InvitationService = app.invitationService
	router.NumberingService = app.numberingService
	router.RolesService = app.rolesService
	router.UserService = app.userService
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
