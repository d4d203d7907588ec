package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openconvo/authcore"
	"github.com/openconvo/authcore/httpapi"
	"github.com/openconvo/authcore/metrics/export/prometheus"
	"github.com/openconvo/authcore/store"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("authd exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	credStore, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return errors.Join(errors.New("redis unreachable"), err)
	}

	engineCfg := authcore.DefaultConfig()
	engineCfg.JWT.AccessSecret = []byte(cfg.AccessTokenSecret)
	engineCfg.JWT.RefreshSecret = []byte(cfg.RefreshTokenSecret)
	engineCfg.JWT.AccessTTL = cfg.AccessTokenTTL
	engineCfg.JWT.RefreshTTL = cfg.RefreshTokenTTL
	engineCfg.Lockout.Threshold = cfg.LockoutThreshold
	engineCfg.Lockout.Duration = cfg.LockoutDuration
	engineCfg.RateLimit.MaxLoginAttempts = cfg.MaxLoginAttempts
	engineCfg.RateLimit.LoginWindow = cfg.LoginWindow
	engineCfg.Ledger.SweepInterval = cfg.SweepInterval

	builder := authcore.New().
		WithConfig(engineCfg).
		WithCredentialStore(credStore).
		WithRedis(redisClient).
		WithAuditSink(authcore.NewJSONWriterSink(os.Stdout))
	if cfg.SMTPHost != "" {
		builder = builder.WithMailer(newSMTPMailer(cfg))
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	engine.StartSweeper(ctx, func(err error) {
		logger.Error("ledger sweep failed", "error", err)
	})

	apiCfg := httpapi.Config{
		Engine:        engine,
		Logger:        logger,
		SessionSecret: []byte(cfg.SessionSecret),
		Secure:        cfg.production(),
		CORSOrigin:    cfg.CORSOrigin,
	}
	if cfg.GoogleClientID != "" {
		apiCfg.Google = &httpapi.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			CallbackURL:  cfg.GoogleCallback,
			SuccessURL:   cfg.GoogleSuccessURL,
			FailureURL:   cfg.GoogleFailureURL,
		}
	}

	_, router, err := httpapi.New(apiCfg)
	if err != nil {
		return err
	}
	router.GET("/metrics", gin.WrapH(prometheus.NewExporter(engine).Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("authd listening", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore picks Postgres when a database URL is configured, otherwise an
// in-memory store suitable only for development.
func openStore(ctx context.Context, cfg serviceConfig, logger *slog.Logger) (authcore.CredentialStore, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("no AUTHD_DATABASE_URL set, using in-memory store")
		return store.NewMemory(), func() {}, nil
	}

	pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	logger.Info("connected to postgres")
	return pg, pg.Close, nil
}
