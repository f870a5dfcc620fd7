package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ferryline/pkg/logger"
)

type Config struct {
	Port string

	AvailabilityURL      string
	ReconnectBase        time.Duration
	MaxReconnectAttempts int
	KeepaliveInterval    time.Duration

	KafkaBrokers        []string
	OperatorTopic       string
	OperatorGroup       string
	OperatorFeedEnabled bool

	SearchBaseURL  string
	PromoBaseURL   string
	BookingBaseURL string
	ClientTimeout  time.Duration

	SessionDBPath string
	ProtectionFee float64

	// FreeBackNavigation lets the user jump back to any earlier step.
	// When false, backward navigation is refused once a booking exists.
	FreeBackNavigation bool

	RequestTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log *logger.Logger
}

func Load(serviceName string) *Config {
	cfg := &Config{
		Port: getEnvStr(EnvPort, DefaultPort),

		AvailabilityURL:      getEnvStr(EnvAvailabilityURL, DefaultAvailabilityURL),
		ReconnectBase:        getEnvDuration(EnvReconnectBase, DefaultReconnectBase),
		MaxReconnectAttempts: getEnvNum(EnvMaxReconnectAttempts, DefaultMaxReconnectAttempts),
		KeepaliveInterval:    getEnvDuration(EnvKeepaliveInterval, DefaultKeepaliveInterval),

		KafkaBrokers:        splitList(getEnvStr(EnvKafkaBrokers, DefaultKafkaBrokers)),
		OperatorTopic:       getEnvStr(EnvOperatorTopic, DefaultOperatorTopic),
		OperatorGroup:       getEnvStr(EnvOperatorGroup, DefaultOperatorGroup),
		OperatorFeedEnabled: getEnvBool(EnvOperatorFeedOn, true),

		SearchBaseURL:  getEnvStr(EnvSearchBaseURL, DefaultSearchBaseURL),
		PromoBaseURL:   getEnvStr(EnvPromoBaseURL, DefaultPromoBaseURL),
		BookingBaseURL: getEnvStr(EnvBookingBaseURL, DefaultBookingBaseURL),
		ClientTimeout:  getEnvDuration(EnvClientTimeout, DefaultClientTimeout),

		SessionDBPath: getEnvStr(EnvSessionDBPath, DefaultSessionDBPath),
		ProtectionFee: getEnvFloat(EnvProtectionFee, DefaultProtectionFee),

		FreeBackNavigation: getEnvBool(EnvFreeBackNav, true),

		RequestTimeout:  getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}
	if !strings.HasPrefix(cfg.AvailabilityURL, "ws://") && !strings.HasPrefix(cfg.AvailabilityURL, "wss://") {
		errs = append(errs, fmt.Sprintf("AvailabilityURL must start with 'ws://' or 'wss://', got: %s", cfg.AvailabilityURL))
	}
	if cfg.ReconnectBase <= 0 {
		errs = append(errs, fmt.Sprintf("ReconnectBase must be positive, got: %s", cfg.ReconnectBase))
	}
	if cfg.MaxReconnectAttempts <= 0 {
		errs = append(errs, fmt.Sprintf("MaxReconnectAttempts must be positive, got: %d", cfg.MaxReconnectAttempts))
	}
	if cfg.KeepaliveInterval <= 0 {
		errs = append(errs, fmt.Sprintf("KeepaliveInterval must be positive, got: %s", cfg.KeepaliveInterval))
	}
	if cfg.OperatorFeedEnabled && len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, "KafkaBrokers cannot be empty while the operator feed is enabled")
	}
	for _, pair := range []struct{ name, url string }{
		{"SearchBaseURL", cfg.SearchBaseURL},
		{"PromoBaseURL", cfg.PromoBaseURL},
		{"BookingBaseURL", cfg.BookingBaseURL},
	} {
		if !strings.HasPrefix(pair.url, "http://") && !strings.HasPrefix(pair.url, "https://") {
			errs = append(errs, fmt.Sprintf("%s must start with 'http://' or 'https://', got: %s", pair.name, pair.url))
		}
	}
	if cfg.SessionDBPath == "" {
		errs = append(errs, "SessionDBPath cannot be empty")
	}
	if cfg.ProtectionFee < 0 {
		errs = append(errs, fmt.Sprintf("ProtectionFee cannot be negative, got: %v", cfg.ProtectionFee))
	}
	for _, pair := range []struct {
		name string
		d    time.Duration
	}{
		{"ClientTimeout", cfg.ClientTimeout},
		{"RequestTimeout", cfg.RequestTimeout},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
	} {
		if pair.d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %s", pair.name, pair.d))
		}
	}

	if len(errs) > 0 {
		msg := "Configuration validation failed:\n"
		for i, e := range errs {
			msg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"availability_url", cfg.AvailabilityURL,
		"reconnect_base", cfg.ReconnectBase,
		"max_reconnect_attempts", cfg.MaxReconnectAttempts,
		"keepalive_interval", cfg.KeepaliveInterval,
		"kafka_brokers", cfg.KafkaBrokers,
		"operator_topic", cfg.OperatorTopic,
		"operator_feed_enabled", cfg.OperatorFeedEnabled,
		"search_base_url", cfg.SearchBaseURL,
		"promo_base_url", cfg.PromoBaseURL,
		"booking_base_url", cfg.BookingBaseURL,
		"session_db_path", cfg.SessionDBPath,
		"protection_fee", cfg.ProtectionFee,
		"free_back_navigation", cfg.FreeBackNavigation,
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
