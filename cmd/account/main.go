package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/account_service/internal/config"
	"github.com/Skotchmaster/account_service/internal/domain"
	"github.com/Skotchmaster/account_service/internal/es"
	"github.com/Skotchmaster/account_service/internal/hash"
	"github.com/Skotchmaster/account_service/internal/httpserver"
	"github.com/Skotchmaster/account_service/internal/middleware"
	"github.com/Skotchmaster/account_service/internal/mykafka"
	"github.com/Skotchmaster/account_service/internal/policy"
	"github.com/Skotchmaster/account_service/internal/repo"
	"github.com/Skotchmaster/account_service/internal/service"
	"github.com/Skotchmaster/account_service/internal/session"
	"github.com/Skotchmaster/account_service/pkg/db"
	"github.com/Skotchmaster/account_service/pkg/logging"
	"github.com/Skotchmaster/account_service/pkg/middleware/metrics"
	"github.com/Skotchmaster/account_service/pkg/tokens"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// closer runs on shutdown, in reverse order of registration.
type closer func(ctx context.Context) error

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []closer
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](shutdownCtx); err != nil {
				slog.Error("shutdown step failed", "error", err)
			}
		}
	}()

	logger := logging.New(cfg.LogLevel)
	if cfg.ESURL != "" {
		esClient, err := es.NewClient(ctx, cfg)
		if err != nil {
			return err
		}
		eh := logging.NewElasticHandler(esClient, cfg.ESLogIndex, logging.ParseLevel("warn"))
		closers = append(closers, eh.Close)
		logger = logging.New(cfg.LogLevel, eh)
	}
	logger = logger.With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	var (
		users service.UserStore
		ready []func(context.Context) error
	)
	if cfg.MongoURI != "" {
		mr, err := repo.NewMongoRepo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		closers = append(closers, mr.Close)
		ready = append(ready, mr.Ping)
		users = mr
		logger.Info("user store", "backend", "mongo", "database", cfg.MongoDatabase)
	} else {
		gdb, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return fmt.Errorf("db handle: %w", err)
		}
		closers = append(closers, func(context.Context) error { return sqlDB.Close() })
		ready = append(ready, sqlDB.PingContext)
		gr := &repo.GormRepo{DB: gdb}
		if err := gr.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		users = gr
		logger.Info("user store", "backend", gdb.Dialector.Name())
	}

	var sessions session.Store
	if cfg.RedisURL != "" {
		rc, err := session.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		closers = append(closers, func(context.Context) error { return rc.Close() })
		ready = append(ready, func(ctx context.Context) error { return pingRedis(ctx, rc) })
		sessions = session.NewRedisStore(rc, cfg.SessionTTL)
	} else {
		logger.Warn("REDIS_URL not set, sessions are kept in process memory")
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}

	var publisher mykafka.Publisher = mykafka.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		prod, err := mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		closers = append(closers, func(context.Context) error { return prod.Close() })
		publisher = prod
	}
	events := &mykafka.Events{Publisher: publisher, Topic: cfg.KafkaTopic}
	closers = append(closers, func(context.Context) error { events.Wait(); return nil })

	table := policy.Default()
	if cfg.PolicyFile != "" {
		if table, err = policy.LoadFile(cfg.PolicyFile, table); err != nil {
			return err
		}
	}

	issuer := &tokens.Issuer{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		Issuer:        cfg.JWTIssuer,
	}
	hasher := hash.Bcrypt{Cost: cfg.BcryptCost}

	authSvc := &service.AuthService{
		Users:    users,
		Sessions: sessions,
		Tokens:   issuer,
		Hasher:   hasher,
		Lockout:  domain.DefaultLockoutPolicy(),
		Events:   events,
		Rotation: cfg.RefreshRotation,
	}
	usersSvc := &service.UsersService{Users: users, Sessions: sessions, Hasher: hasher, Events: events}

	if cfg.SuperAdminUsername != "" {
		if _, err := usersSvc.EnsureSuperAdmin(ctx, cfg.SuperAdminUsername, cfg.SuperAdminPassword); err != nil {
			return fmt.Errorf("bootstrap super admin: %w", err)
		}
		logger.Info("super admin ensured", "username", cfg.SuperAdminUsername)
	}

	e := httpserver.New(&httpserver.Deps{
		Auth:        &httpserver.AuthHTTP{Svc: authSvc},
		Users:       &httpserver.UsersHTTP{Svc: usersSvc},
		Gate:        &middleware.Gate{Tokens: issuer, Sessions: sessions, Policy: table},
		Metrics:     metrics.New(cfg.ServiceName, nil),
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		Ready: func(ctx context.Context) error {
			for _, check := range ready {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	return nil
}

func pingRedis(ctx context.Context, rc *redis.Client) error {
	return rc.Ping(ctx).Err()
}
