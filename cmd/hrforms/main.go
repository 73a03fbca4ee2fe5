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

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/hrforms/cmd/hrforms/cli"
	"github.com/odyssey-erp/hrforms/internal/app"
	"github.com/odyssey-erp/hrforms/internal/auth"
	"github.com/odyssey-erp/hrforms/internal/forms"
	"github.com/odyssey-erp/hrforms/internal/notify"
	"github.com/odyssey-erp/hrforms/internal/observability"
	"github.com/odyssey-erp/hrforms/internal/platform/cache"
	"github.com/odyssey-erp/hrforms/internal/platform/db"
	"github.com/odyssey-erp/hrforms/internal/platform/storage"
	"github.com/odyssey-erp/hrforms/internal/rbac"
	"github.com/odyssey-erp/hrforms/internal/reports"
	"github.com/odyssey-erp/hrforms/internal/roles"
	"github.com/odyssey-erp/hrforms/internal/userforms"
	"github.com/odyssey-erp/hrforms/internal/users"
	"github.com/odyssey-erp/hrforms/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobs(ctx, cfg, logger, os.Args[2:]))
	}

	pool, err := db.New(ctx, cfg.Postgres())
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	avatars, err := storage.NewS3Store(ctx, storage.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		logger.Error("init avatar storage", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	redisOpts := cfg.Queue()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("job inspector close", slog.Any("error", err))
		}
	}()

	grants := rbac.NewGrantCache(redisClient, rbac.NewGrantStore(pool), cfg.PermissionCacheTTL, logger)
	engine := rbac.NewEngine(rbac.DefaultRanks(), grants)

	tokens := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	google := auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})

	guard := rbac.Middleware{
		Engine:  engine,
		Tokens:  tokens,
		Logger:  logger,
		Metrics: metrics,
	}

	dispatcher := notify.NewDispatcher(jobClient, cfg.FrontendURL, logger, metrics)

	authService := auth.NewService(auth.NewRepository(pool), tokens, google, cfg.BcryptCost)
	usersService := users.NewService(users.NewRepository(pool), engine, avatars, cfg.BcryptCost)
	rolesService := roles.NewService(roles.NewRepository(pool), grants, logger)
	formsService := forms.NewService(forms.NewRepository(pool), dispatcher, logger)
	reportsService := reports.NewService(reports.NewRepository(pool), reports.NewCache(redisClient, cfg.ReportCacheTTL), logger)
	userFormsService := userforms.NewService(userforms.NewRepository(pool), engine, dispatcher, logger)
	userFormsService.UseInvalidator(reportsService)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        auth.NewHandler(logger, authService, cfg.FrontendURL, app.LoginLimiter(cfg)),
		UsersHandler:       users.NewHandler(logger, usersService, guard, cfg.AvatarMaxBytes),
		RolesHandler:       roles.NewHandler(logger, rolesService, guard),
		FormsHandler:       forms.NewHandler(logger, formsService, guard),
		UserFormsHandler:   userforms.NewHandler(logger, userFormsService, guard),
		ReportsHandler:     reports.NewHandler(logger, reportsService, guard),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, engine, guard),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server starting", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
	dispatcher.Wait()
	logger.Info("server stopped")
}

func runJobs(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	jobsCLI, err := cli.NewJobsCLI(cfg.Queue())
	if err != nil {
		logger.Error("init jobs cli", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
	}()
	printf := func(format string, a ...any) { fmt.Fprintf(os.Stdout, format, a...) }
	if err := cli.Run(ctx, jobsCLI, args, printf); err != nil {
		logger.Error("jobs command", slog.Any("error", err))
		return 1
	}
	return 0
}
