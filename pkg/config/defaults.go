package config

import "time"

const (
	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultAvailabilityURL      = "ws://localhost:9010/ws/availability"
	DefaultReconnectBase        = 3 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultKeepaliveInterval    = 30 * time.Second

	DefaultKafkaBrokers  = "localhost:9092"
	DefaultOperatorTopic = "operator.availability"
	DefaultOperatorGroup = "ferryline"

	DefaultSearchBaseURL  = "http://localhost:9001"
	DefaultPromoBaseURL   = "http://localhost:9002"
	DefaultBookingBaseURL = "http://localhost:9003"
	DefaultClientTimeout  = 15 * time.Second

	DefaultSessionDBPath = "ferryline-session.db"
	DefaultProtectionFee = 12.0

	DefaultRequestTimeout  = 30 * time.Second
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
