package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-verify/pkg/client"
	"github.com/tendant/simple-verify/pkg/code"
	codeapi "github.com/tendant/simple-verify/pkg/code/api"
	"github.com/tendant/simple-verify/pkg/codehash"
	"github.com/tendant/simple-verify/pkg/config"
	"github.com/tendant/simple-verify/pkg/metrics"
	"github.com/tendant/simple-verify/pkg/migrations"
	"github.com/tendant/simple-verify/pkg/notification"
	"github.com/tendant/simple-verify/pkg/ratelimit"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.Database.UsesPostgres() {
		if cfg.Database.MigrateOnStart {
			if err := migrations.Up(cfg.Database.ToDatabaseURL()); err != nil {
				slog.Error("Failed to apply migrations", "error", err)
				os.Exit(1)
			}
		}

		dbConfig := cfg.Database.ToDbConfig()
		pool, err = dbutils.NewDbPool(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User, "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	}

	repo, err := code.NewCodeRepository(cfg.Database.PersistenceType, code.RepositoryConfig{
		Pool:    pool,
		Schema:  cfg.Database.Schema,
		DataDir: cfg.Database.DataDir,
	})
	if err != nil {
		slog.Error("Failed to create code repository", "type", cfg.Database.PersistenceType, "error", err)
		os.Exit(1)
	}

	hasher, err := codehash.NewHasher(cfg.Code.Hasher)
	if err != nil {
		slog.Error("Failed to create code hasher", "hasher", cfg.Code.Hasher, "error", err)
		os.Exit(1)
	}

	notifierConfig, err := cfg.Emailer.ToNotificationConfig()
	if err != nil {
		slog.Error("Failed to map emailer configuration", "error", err)
		os.Exit(1)
	}
	notifier, err := notification.NewNotifier(notifierConfig)
	if err != nil {
		slog.Error("Failed to create notifier", "method", cfg.Emailer.Method, "error", err)
		os.Exit(1)
	}
	slog.Info("Verification codes will be delivered", "method", cfg.Emailer.Method)

	opts := []code.CodeServiceOption{
		code.WithNotifier(notifier),
		code.WithSubject(cfg.Code.Subject),
	}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("Failed to connect to redis", "addr", cfg.Redis.Addr(), "error", err)
			os.Exit(1)
		}
		opts = append(opts, code.WithLocker(code.NewRedisLocker(rdb, cfg.Redis.Prefix, code.WithLockTTL(cfg.Redis.LockTTL))))
		slog.Info("Using redis locks", "addr", cfg.Redis.Addr())
	}

	codeService := code.NewCodeService(repo, hasher, opts...)
	codeHandle := codeapi.NewHandle(codeService, codeapi.WithDefaults(codeapi.Defaults{
		Length:                 cfg.Code.DefaultLength,
		MaximumAttempts:        cfg.Code.DefaultMaxAttempts,
		MaximumDurationMinutes: cfg.Code.DefaultMaxDurationMinutes,
	}))

	var issueMiddlewares []func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewMiddleware(cfg.RateLimit.ToRateLimitConfig())
		limiter.Start(ctx)
		issueMiddlewares = append(issueMiddlewares, limiter.Handler)
	}

	server := app.DefaultApp()
	server.R.Use(metrics.RequestLogger)
	server.R.Use(metrics.PrometheusMiddleware)

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	server.R.Handle("/metrics", metrics.Handler())

	tokenAuth := jwtauth.New("HS256", []byte(cfg.JWT.Secret), nil)

	server.R.Group(func(r chi.Router) {
		r.Use(client.Verifier(tokenAuth))
		r.Use(client.AuthUserMiddleware)
		codeapi.Routes(r, codeHandle, issueMiddlewares...)
	})

	server.Run()
}

// loadEnvFile loads .env from the executable's directory, falling back to
// the working directory.
func loadEnvFile() {
	execPath, err := os.Executable()
	if err != nil {
		return
	}

	envFile := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		cwd, _ := os.Getwd()
		envFile = filepath.Join(cwd, ".env")
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
}
