package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storelink/affbridge/internal/affiliate"
	"github.com/storelink/affbridge/internal/bridge"
	"github.com/storelink/affbridge/internal/commerce"
	"github.com/storelink/affbridge/internal/config"
	"github.com/storelink/affbridge/internal/httpx"
	"github.com/storelink/affbridge/internal/metrics"
	"github.com/storelink/affbridge/internal/retry"
	"github.com/storelink/affbridge/internal/store"
	"github.com/storelink/affbridge/internal/utils"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if cfg.CommerceClientID == "" || cfg.CommerceClientSecret == "" || cfg.CommerceRedirectURL == "" {
		logger.Warn("commerce client id/secret/redirect url not fully configured")
	}

	var attrib store.AttributionStore
	var tokens store.TokenStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		attrib = store.NewRedisAttributionStore(rdb)
		tokens = store.NewRedisTokenStore(rdb)
		logger.Info("using redis stores", slog.String("addr", cfg.RedisAddr))
	} else {
		attrib = store.NewMemoryAttributionStore()
		tokens = store.NewMemoryTokenStore()
	}

	m := metrics.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue := retry.NewMemoryQueue(cfg.RetryQueueSize, utils.NewBackoff(cfg.RetryBaseDelay, cfg.RetryMaxAttempts), logger, m)
	queue.Start(ctx)

	cc := commerce.NewClient(commerce.NewHTTPClient(cfg.HTTPTimeout), tokens, cfg, logger)
	ac := affiliate.NewClient(affiliate.NewHTTPClient(cfg.HTTPTimeout), cfg.AffiliateAPIBase, cfg.AffiliateAccessToken, logger)
	svc := bridge.NewService(cc, ac, attrib, tokens, bridge.FirstConnected{Tokens: tokens}, queue, m, cfg, logger)

	r := httpx.NewRouter(logger, cfg, svc, m)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server", slog.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
