package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	HTTPTimeout time.Duration
	LogLevel    slog.Level

	// Commerce platform (store API + OAuth app credentials).
	CommerceClientID     string
	CommerceClientSecret string
	CommerceRedirectURL  string
	CommerceAPIBase      string
	CommerceAPIVersion   string
	CommerceTokenURL     string
	CommerceUserAgent    string
	CommerceScriptID     string

	// Affiliate platform (admin API + inbound webhook shared secret).
	AffiliateAPIBase       string
	AffiliateAccessToken   string
	AffiliateWebhookSecret string

	// Optional Redis backend for the attribution/token stores.
	RedisAddr string

	// Side-effect retry queue.
	RetryQueueSize   int
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
}

func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 15)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("COMMERCE_API_BASE", "https://api.nuvemshop.com.br")
	v.SetDefault("COMMERCE_API_VERSION", "2025-03")
	v.SetDefault("COMMERCE_TOKEN_URL", "https://www.tiendanube.com/apps/authorize/token")
	v.SetDefault("COMMERCE_USER_AGENT", "AffBridge (contact@example.com)")
	v.SetDefault("AFFILIATE_API_BASE", "https://api.goaffpro.com")
	v.SetDefault("AFFILIATE_WEBHOOK_SECRET", "change-me")
	v.SetDefault("RETRY_QUEUE_SIZE", 256)
	v.SetDefault("RETRY_MAX_ATTEMPTS", 5)
	v.SetDefault("RETRY_BASE_DELAY_MS", 500)

	return Config{
		Port:        v.GetString("PORT"),
		HTTPTimeout: time.Duration(v.GetInt("HTTP_TIMEOUT_SECONDS")) * time.Second,
		LogLevel:    parseLevel(v.GetString("LOG_LEVEL")),

		CommerceClientID:     v.GetString("COMMERCE_CLIENT_ID"),
		CommerceClientSecret: v.GetString("COMMERCE_CLIENT_SECRET"),
		CommerceRedirectURL:  v.GetString("COMMERCE_REDIRECT_URL"),
		CommerceAPIBase:      v.GetString("COMMERCE_API_BASE"),
		CommerceAPIVersion:   v.GetString("COMMERCE_API_VERSION"),
		CommerceTokenURL:     v.GetString("COMMERCE_TOKEN_URL"),
		CommerceUserAgent:    v.GetString("COMMERCE_USER_AGENT"),
		CommerceScriptID:     v.GetString("COMMERCE_SCRIPT_ID"),

		AffiliateAPIBase:       v.GetString("AFFILIATE_API_BASE"),
		AffiliateAccessToken:   v.GetString("AFFILIATE_ACCESS_TOKEN"),
		AffiliateWebhookSecret: v.GetString("AFFILIATE_WEBHOOK_SECRET"),

		RedisAddr: v.GetString("REDIS_ADDR"),

		RetryQueueSize:   v.GetInt("RETRY_QUEUE_SIZE"),
		RetryMaxAttempts: v.GetInt("RETRY_MAX_ATTEMPTS"),
		RetryBaseDelay:   time.Duration(v.GetInt("RETRY_BASE_DELAY_MS")) * time.Millisecond,
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
