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

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/credential"
	h "github.com/fjod/storefront/internal/httpapi"
	"github.com/fjod/storefront/internal/userapi"
	"github.com/fjod/storefront/internal/users"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service: "storefront",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeKV()
	log.Info("cache ready", "backend", cfg.CacheBackend)

	creds, closeCreds, err := openCredentials(ctx, cfg, kv)
	if err != nil {
		return err
	}
	defer closeCreds()

	cartStore := cart.NewStore()
	cat := catalog.Demo(catalog.DefaultTotal)

	client := userapi.NewClient(cfg.UserAPIBaseURL, cfg.UserAPITimeout)
	loader := users.NewLoader(client, kv, log)

	if len(cfg.KafkaBrokers) > 0 {
		consumer := checkout.NewConsumer(cartStore, cfg.CartOwnerID, cfg.KafkaTopic, cfg.KafkaGroupID, log, cfg.KafkaBrokers...)
		defer consumer.Close()
		go consumer.Run(ctx)
		log.Info("checkout consumer started", "topic", cfg.KafkaTopic)
	}

	router := h.NewRouter(h.Handlers{
		Cart:  h.NewCartHandler(cartStore, cat),
		Users: h.NewUserHandler(loader),
		Token: h.NewTokenHandler(creds),
	}, cfg.RequestTimeout, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("storefront listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

func openCache(ctx context.Context, cfg config.Config) (cache.KVStore, func(), error) {
	switch cfg.CacheBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return cache.NewRedisStore(client, ""), func() { client.Close() }, nil

	case "mongo":
		db, err := cache.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewMongoStore(db), func() { db.Client().Disconnect(context.Background()) }, nil

	case "postgres":
		store, err := cache.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := store.RunMigrations(); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store, func() { store.Close() }, nil

	default:
		store, err := cache.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := store.RunMigrations(); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store, func() { store.Close() }, nil
	}
}

func openCredentials(ctx context.Context, cfg config.Config, kv cache.KVStore) (credential.Store, func(), error) {
	if cfg.CredentialBackend != "secretmanager" {
		return credential.NewKVStore(kv), func() {}, nil
	}

	sm, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("secretmanager.NewClient: %w", err)
	}
	return credential.NewSecretManagerStore(sm, cfg.GCPProjectID, "storefront-"), func() { sm.Close() }, nil
}
