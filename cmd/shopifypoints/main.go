// Package main запускает HTTP-сервер сервиса бонусных баллов Shopify.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/shopify-points-system/internal/audit"
	"github.com/mmeshcher/shopify-points-system/internal/config"
	"github.com/mmeshcher/shopify-points-system/internal/dedup"
	"github.com/mmeshcher/shopify-points-system/internal/handler"
	"github.com/mmeshcher/shopify-points-system/internal/metrics"
	"github.com/mmeshcher/shopify-points-system/internal/middleware"
	"github.com/mmeshcher/shopify-points-system/internal/service"
	"github.com/mmeshcher/shopify-points-system/internal/shopify"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	// Учётные данные Shopify принято держать в .env рядом с приложением.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		sugar.Warnw("failed to load .env file", "error", err.Error())
	}

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	if err := cfg.Validate(); err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	auditLog, err := audit.NewLogger(cfg.AuditLogPath, logger)
	if err != nil {
		sugar.Fatalw("audit log initialization error", "error", err.Error())
	}
	defer auditLog.Close()

	var dedupStore dedup.Store
	if cfg.RedisAddr != "" {
		redisClient, err := dedup.NewRedisClient(context.Background(), cfg.RedisAddr)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer redisClient.Close()

		dedupStore = dedup.NewRedisStore(redisClient, cfg.DedupTTL)
		sugar.Infow("using redis dedup store", "addr", cfg.RedisAddr)
	} else {
		dedupStore = dedup.NewMemoryStore(cfg.DedupTTL)
	}

	shopifyClient := shopify.NewClient(cfg.ShopName, cfg.AccessToken, logger)

	svc := service.NewService(shopifyClient, dedupStore, auditLog, logger)

	hmacVerifier := middleware.NewHMACVerifier(cfg.ShopifySecret, logger, auditLog)
	h := handler.NewHandler(svc, logger, metrics.New(), hmacVerifier)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting shopify points server", "addr", cfg.RunAddress, "shop", cfg.ShopName)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
