package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"dashboard/internal/auth"
	"dashboard/internal/cache"
	"dashboard/internal/config"
	"dashboard/internal/db"
	"dashboard/internal/drive"
	"dashboard/internal/excel"
	httpapi "dashboard/internal/http"
	"dashboard/internal/logging"
	"dashboard/internal/repository"
	"dashboard/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	allowList, created, err := auth.LoadAllowList(cfg.AllowedUsersFile)
	if err != nil {
		logger.Fatal("allow-list error", zap.String("path", cfg.AllowedUsersFile), zap.Error(err))
	}
	if created {
		logger.Warn("allow-list file created; no one can sign in until emails are added", zap.String("path", cfg.AllowedUsersFile))
	} else {
		logger.Info("allow-list loaded", zap.String("path", cfg.AllowedUsersFile), zap.Int("emails", allowList.Len()))
	}

	ctx := context.Background()
	var activity service.ActivityLog
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database error", zap.Error(err))
		}
		defer pool.Close()

		applied, err := db.RunMigrations(ctx, pool)
		if err != nil {
			logger.Fatal("migration error", zap.Error(err))
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", zap.Strings("versions", applied))
		}
		activity = repository.New(pool)
	} else {
		logger.Info("DATABASE_URL not set; activity log disabled")
	}

	oauthConfig := auth.NewGoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret)
	fetcher := drive.NewFetcher(oauthConfig, drive.Options{
		Timeout: cfg.FetchTimeout,
		Retries: cfg.FetchRetries,
	}, logger.Named("drive"))

	svc := service.New(fetcher, cache.New(cfg.CacheTTL), activity, service.Options{
		FileID: cfg.DriveFileID,
		Layout: excel.Layout{
			OrdersSheet:         cfg.OrdersSheet,
			CustomersSheet:      cfg.CustomersSheet,
			CustomerNameColumn:  cfg.CustomerNameColumn,
			CustomerTotalColumn: cfg.CustomerTotalColumn,
			SummaryColumn:       cfg.SummaryColumn,
			SummaryStartRow:     cfg.SummaryStartRow,
			SummaryCells:        cfg.SummaryCells,
		},
	}, logger.Named("dashboard"))

	verifier, err := auth.NewIDTokenVerifier(ctx, cfg.GoogleClientID)
	if err != nil {
		logger.Fatal("id token verifier error", zap.Error(err))
	}

	handler, err := httpapi.NewHandler(httpapi.Deps{
		Service:   svc,
		Sessions:  auth.NewSessionStore(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure),
		Provider:  auth.NewProvider(oauthConfig),
		Verifier:  verifier,
		AllowList: allowList,
		PublicURL: cfg.PublicURL,
		Logger:    logger.Named("http"),
	})
	if err != nil {
		logger.Fatal("handler init error", zap.Error(err))
	}
	router := httpapi.NewRouter(handler)

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("dashboard listening", zap.String("addr", server.Addr), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("force close failed", zap.Error(closeErr))
		}
	}
}
