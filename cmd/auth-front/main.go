package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/mkessler/auth-front/internal/config"
	"github.com/mkessler/auth-front/internal/idp"
	"github.com/mkessler/auth-front/internal/log"
	"github.com/mkessler/auth-front/internal/server"
	"github.com/mkessler/auth-front/internal/statestore"
)

var BuildVersion = "dev"

func main() {
	secretsPath := flag.String("secrets", "secrets.toml", "path to the secrets file")
	addr := flag.String("addr", ":8080", "listen address")
	redisURL := flag.String("redis-url", "", "redis URL for the shared login-state store (in-memory when empty)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println(BuildVersion)
		return
	}

	secrets, err := config.Load(*secretsPath)
	if err != nil {
		log.LogError("Failed to load secrets: %v", err)
		os.Exit(1)
	}
	if secrets.CookieSecret == "" {
		log.LogError("auth.cookie_secret is required in %s", *secretsPath)
		os.Exit(1)
	}

	store, err := buildStateStore(*redisURL)
	if err != nil {
		log.LogError("Failed to set up login-state store: %v", err)
		os.Exit(1)
	}

	handlers := server.NewAuthHandlers(secrets, []byte(secrets.CookieSecret), store, idp.NewFactory())
	srv := server.NewHTTPServer(server.NewRouter(handlers), *addr)

	log.LogInfoWithFields("main", "Starting auth-front", map[string]any{
		"version": BuildVersion,
		"addr":    *addr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.LogError("Server error: %v", err)
		os.Exit(1)
	}
}

func buildStateStore(redisURL string) (statestore.Store, error) {
	if redisURL == "" {
		return statestore.NewMemoryStore(), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return statestore.NewRedisStore(client), nil
}
