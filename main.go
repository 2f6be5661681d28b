package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-api/api"
	"kanban-api/board"
	"kanban-api/config"
	"kanban-api/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	rc := redis.NewClient(redisOptions(cfg.Redis.URL))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, closeFn, err := newServer(ctx, cfg, rc, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closeFn()

	go func() {
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// newServer wires boards, change fan-out and the HTTP API around rc. The
// returned func flushes pending change publishes.
func newServer(ctx context.Context, cfg config.Config, rc *redis.Client, logger *log.Logger) (*echo.Echo, func(), error) {
	var seed *board.Seed
	if cfg.Seed.File != "" {
		var err error
		if seed, err = board.LoadSeed(cfg.Seed.File); err != nil {
			return nil, nil, fmt.Errorf("seed: %w", err)
		}
	}
	auth, err := newAuthenticator(cfg.Auth)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: %w", err)
	}

	dispatcher := notify.NewDispatcher(
		notify.NewRedisPublisher(rc, cfg.Redis.UpdatesChannel),
		notify.DispatcherConfig{
			Workers: cfg.Publish.Workers,
			Buffer:  cfg.Publish.Buffer,
			Timeout: cfg.Publish.Timeout,
		},
		logger,
	)
	hub := notify.NewHub(0)
	go notify.Subscribe(ctx, logger, rc, cfg.Redis.UpdatesChannel, func(boardID string, data []byte) {
		hub.Broadcast(boardID, data)
	})

	boards := board.NewRegistry(board.UUIDs{}, seed, dispatcher, logger)
	deduper := api.NewRedisDeduper(rc, cfg.Dedupe.TTL)
	health := func(ctx context.Context) error { return rc.Ping(ctx).Err() }

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentEncoding},
	}))
	api.Register(e, boards, auth, deduper, hub, health, logger)
	return e, dispatcher.Close, nil
}

func newAuthenticator(cfg config.AuthConfig) (api.Authenticator, error) {
	switch cfg.Mode {
	case config.AuthModeNone:
		log.Warn("authentication disabled, bearer values are trusted as user ids")
		return api.HeaderAuth{DefaultUser: "local"}, nil
	case config.AuthModeHS256:
		return api.NewSharedSecretAuth([]byte(cfg.SharedSecret), cfg.Audience, issuerFor(cfg.Domain)), nil
	default:
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{RefreshInterval: time.Hour})
		if err != nil {
			return nil, fmt.Errorf("jwks: %w", err)
		}
		return api.NewJWKSAuth(jwks, cfg.Audience, issuerFor(cfg.Domain), cfg.JWKSCacheTTL), nil
	}
}

func issuerFor(domain string) string {
	if domain == "" {
		return ""
	}
	return "https://" + domain + "/"
}

// redisOptions accepts a redis:// URL or a "host:port,password=...,ssl=True"
// connection string.
func redisOptions(conn string) *redis.Options {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
