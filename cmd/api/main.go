package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/jx-dohwan/devlog/internal/auth"
	"github.com/jx-dohwan/devlog/internal/config"
	"github.com/jx-dohwan/devlog/internal/database"
	"github.com/jx-dohwan/devlog/internal/httpapi"
	"github.com/jx-dohwan/devlog/internal/notify"
	"github.com/jx-dohwan/devlog/internal/obs"
	"github.com/jx-dohwan/devlog/internal/post"
	"github.com/jx-dohwan/devlog/internal/user"
)

var version = "0.3.0"

func main() {
	// .env is a development convenience; the real environment wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Env,
			Release:     "devlog-api@" + version,
		}); err != nil {
			log.Fatalf("sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis keeps sessions with native TTLs when configured; otherwise the
	// Postgres store plus the admin cleanup endpoint serve the same role.
	var (
		sessions   auth.SessionStore
		maintainer httpapi.Maintainer
	)
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		client := redis.NewClient(redisOpts)
		defer client.Close()
		sessions = auth.NewRedisSessionStore(client)
	} else {
		store := auth.NewPGSessionStore(db)
		sessions = store
		maintainer = store
	}

	users := user.NewRepository(db)

	tokens, err := auth.NewTokenService(sessions, cfg.JWTSecret, cfg.JWTIssuer,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
		auth.WithRoleResolver(func(ctx context.Context, subjectID string) (user.Role, error) {
			u, err := users.FindByID(ctx, subjectID)
			if err != nil {
				return "", err
			}
			if u == nil {
				return "", auth.ErrUnauthorized
			}
			return u.Role, nil
		}),
	)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	authSvc, err := auth.NewService(users, auth.NewBcryptHasher(cfg.BcryptCost), tokens, notify.NewLogSender())
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	userSvc, err := user.NewService(users)
	if err != nil {
		log.Fatalf("user service: %v", err)
	}
	posts, err := post.NewService(post.NewRepository(db), users)
	if err != nil {
		log.Fatalf("post service: %v", err)
	}

	api := httpapi.New(httpapi.Options{
		Auth:                authSvc,
		Users:               userSvc,
		Posts:               posts,
		Maintainer:          maintainer,
		ReadyProbe:          httpapi.ReadyProbe{DB: db},
		Version:             version,
		LocalEnv:            cfg.Local(),
		SignInRatePerMinute: cfg.SignInRatePerMinute,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting devlog-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Println("Stopped")
}
