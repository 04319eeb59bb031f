package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"katalog/internal/config"
	"katalog/internal/flash"
	"katalog/internal/handlers"
	"katalog/internal/middleware"
	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/internal/services"
	"katalog/internal/storage"
	"katalog/pkg/mail"
	"katalog/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// App is the wired HTTP server with its backing resources.
type App struct {
	Fiber  *fiber.App
	cfg    config.Config
	logger *zap.Logger
	db     *gorm.DB
	mq     *rabbitmq.Client
	// closers run in reverse order on Shutdown.
	closers []func() error
}

type options struct {
	db       *gorm.DB
	images   services.ImageStore
	notifier services.ResetNotifier
	flashes  flash.Store
}

// Option overrides a dependency New would otherwise build from config.
type Option func(*options)

func WithDatabase(db *gorm.DB) Option {
	return func(o *options) { o.db = db }
}

func WithImageStore(images services.ImageStore) Option {
	return func(o *options) { o.images = images }
}

func WithNotifier(notifier services.ResetNotifier) Option {
	return func(o *options) { o.notifier = notifier }
}

func WithFlashStore(flashes flash.Store) Option {
	return func(o *options) { o.flashes = flashes }
}

// New connects every backing service named in cfg and registers all routes.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{cfg: cfg, logger: logger}
	if err := a.build(o); err != nil {
		if closeErr := a.closeResources(); closeErr != nil {
			logger.Warn("cleanup after failed startup", zap.Error(closeErr))
		}
		return nil, err
	}
	return a, nil
}

func (a *App) build(o *options) error {
	ctx := context.Background()

	// --- Database ---
	db := o.db
	if db == nil {
		var err error
		db, err = OpenDatabase(a.cfg)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
	}
	if err := Migrate(db); err != nil {
		return err
	}
	a.db = db

	// --- Upload store ---
	images := o.images
	if images == nil {
		disk, err := storage.NewDiskImageStore(a.cfg.UploadDir)
		if err != nil {
			return err
		}
		images = disk
	}

	// --- RabbitMQ ---
	var events services.EventPublisher
	if a.cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: a.cfg.RabbitMQURL}, a.logger)
		if err != nil {
			return err
		}
		a.mq = mq
		events = mq
		a.closers = append(a.closers, mq.Close)
	} else {
		a.logger.Info("RABBITMQ_URL not set, product events disabled")
	}

	// --- Flash store ---
	flashes := o.flashes
	if flashes == nil {
		if a.cfg.RedisURL != "" {
			redisStore, err := flash.NewRedisStore(ctx, a.cfg.RedisURL, flash.DefaultTTL)
			if err != nil {
				return err
			}
			flashes = redisStore
			a.closers = append(a.closers, redisStore.Close)
		} else {
			flashes = flash.NewMemoryStore(flash.DefaultTTL)
		}
	}

	// --- Reset delivery ---
	notifier := o.notifier
	if notifier == nil {
		if a.cfg.ResendAPIKey != "" {
			notifier = mail.NewResendMailer(a.cfg.ResendAPIKey, a.cfg.MailFrom, a.cfg.BaseURL, a.logger)
		} else {
			if !a.cfg.IsDevelopment() {
				a.logger.Warn("RESEND_API_KEY not set, password reset links are only logged")
			}
			notifier = services.NewLogNotifier(a.cfg.BaseURL, a.logger)
		}
	}

	// --- Services ---
	tokens := services.NewTokenService(a.cfg.JWTSecret, services.AccessTokenTTL)
	authService := services.NewAuthService(
		repositories.NewGORMUserRepository(db),
		services.NewBcryptHasher(a.cfg.BcryptCost),
		tokens,
		notifier,
		a.logger,
	)
	productService := services.NewProductService(repositories.NewGORMProductRepository(db), images, events, a.logger)

	// --- Fiber ---
	app := fiber.New(fiber.Config{
		AppName:      "katalog",
		ErrorHandler: a.errorHandler,
		BodyLimit:    10 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(a.logger))

	app.Get("/health", a.health)
	app.Static("/uploads", a.cfg.UploadDir)

	handlers.NewAuthHandler(authService, flashes, a.cfg.CookieSecure, a.logger).RegisterRoutes(app)
	handlers.NewProductHandler(productService, flashes, a.logger).
		RegisterRoutes(app, middleware.AuthRequired(authService, a.logger))

	a.Fiber = app
	return nil
}

// OpenDatabase opens the configured driver with duplicate-key errors
// translated to gorm.ErrDuplicatedKey.
func OpenDatabase(cfg config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseDSN)
	default:
		dialector = postgres.Open(cfg.DatabaseDSN)
	}

	level := gormlogger.Warn
	if !cfg.IsDevelopment() {
		level = gormlogger.Error
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Product{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// StartAuditConsumer logs product events read back from RabbitMQ. It is a
// no-op when RabbitMQ is not configured.
func (a *App) StartAuditConsumer() error {
	if a.mq == nil {
		return nil
	}
	return a.mq.ConsumeProductEvents(rabbitmq.AuditHandler(a.logger))
}

// Listen serves HTTP on addr until Shutdown.
func (a *App) Listen(addr string) error {
	return a.Fiber.Listen(addr)
}

// Shutdown stops the server and releases every resource opened by New.
func (a *App) Shutdown() error {
	var errs []error
	if a.Fiber != nil {
		if err := a.Fiber.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("fiber shutdown: %w", err))
		}
	}
	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) health(c *fiber.Ctx) error {
	status := fiber.StatusOK
	overall := "healthy"
	database := "connected"

	sqlDB, err := a.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		a.logger.Error("health check: database unreachable", zap.Error(err))
		status = fiber.StatusServiceUnavailable
		overall = "degraded"
		database = "unreachable"
	}

	rabbit := "disabled"
	if a.mq != nil {
		rabbit = "connected"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":   overall,
		"time":     time.Now().Format(time.RFC3339),
		"database": database,
		"rabbitmq": rabbit,
	})
}

// errorHandler answers errors that escape handlers, such as unknown routes.
func (a *App) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		a.logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		msg = "Internal server error"
	}
	return c.Status(code).JSON(fiber.Map{"msg": msg})
}
