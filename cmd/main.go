package main

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

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"examcms/internal/auth"
	"examcms/internal/config"
	"examcms/internal/handler"
	"examcms/internal/repository"
	"examcms/internal/service"
	"examcms/internal/service/s3"
)

// stores - хранилища, выбранные драйвером из конфигурации
type stores struct {
	contents    repository.ContentStore
	attachments repository.AttachmentStore
	blobs       s3.Storage
	health      func(ctx context.Context) error
	close       func() error
}

func connectWithRetry(cfg config.DatabaseConfig, maxAttempts int, delay time.Duration, logger *slog.Logger) (*sqlx.DB, error) {
	// Сначала подключаемся к системной базе postgres
	system := cfg
	system.Name = "postgres"
	pgDB, err := sqlx.Connect("postgres", system.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	defer pgDB.Close()

	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %w", err)
	}

	if !exists {
		logger.Info("database does not exist, creating", "database", cfg.Name)
		if _, err = pgDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(cfg.Name)); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", cfg.GetDSN())
		if err == nil {
			return db, nil
		}

		logger.Warn("failed to connect to database", "attempt", i+1, "max_attempts", maxAttempts, "error", err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxAttempts, err)
}

func runMigrations(cfg *config.Config, logger *slog.Logger) error {
	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New(cfg.Storage.MigrationsPath, cfg.Database.GetURL())
		if err == nil {
			break
		}
		logger.Warn("failed to create migrate instance", "attempt", i+1, "error", err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		logger.Warn("found dirty database state, forcing version", "version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func openStores(cfg *config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		logger.Info("using in-memory storage")
		return &stores{
			contents:    repository.NewMemoryContentRepository(),
			attachments: repository.NewMemoryAttachmentRepository(),
			blobs:       s3.NewMemoryStorage(),
			close:       func() error { return nil },
		}, nil
	}

	db, err := connectWithRetry(cfg.Database, 5, time.Second*5, logger)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := runMigrations(cfg, logger); err != nil {
		db.Close()
		return nil, err
	}

	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &stores{
		contents:    repository.NewContentRepository(db),
		attachments: repository.NewAttachmentRepository(db),
		blobs:       s3Client,
		health:      db.PingContext,
		close:       db.Close,
	}, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// Загружаем конфигурации
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	authConfig, err := auth.NewConfig(".auth.env")
	if err != nil {
		return fmt.Errorf("failed to load auth config: %w", err)
	}
	auth.Init(authConfig)

	st, err := openStores(appConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			logger.Error("error closing storage", "error", err)
		}
	}()

	// Инициализация сервисов
	navigator := service.NewVersionNavigator(st.contents)
	writer := service.NewVersionWriter(st.contents, st.attachments, logger)
	restorer := service.NewRestoreService(navigator, writer, logger)
	contentService := service.NewContentService(st.contents, writer, restorer, navigator)
	attachmentService := service.NewAttachmentService(st.attachments, st.blobs, appConfig.Upload.MaxSizeBytes, logger)

	// Инициализация хендлеров
	router := handler.NewRouter(
		handler.NewContentHandler(contentService, logger),
		handler.NewAttachmentHandler(attachmentService, logger),
		handler.RouterOptions{
			AllowedOrigins: appConfig.Server.AllowedOrigins,
			RequestTimeout: appConfig.Server.RequestTimeout,
			Health:         st.health,
		},
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "port", appConfig.Server.Port, "driver", appConfig.Storage.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server exited properly")
	return nil
}
