package config

const (
	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvAvailabilityURL      = "AVAILABILITY_WS_URL"
	EnvReconnectBase        = "AVAILABILITY_RECONNECT_BASE"
	EnvMaxReconnectAttempts = "AVAILABILITY_MAX_RECONNECT_ATTEMPTS"
	EnvKeepaliveInterval    = "AVAILABILITY_KEEPALIVE_INTERVAL"

	EnvKafkaBrokers   = "KAFKA_BROKERS"
	EnvOperatorTopic  = "OPERATOR_FEED_TOPIC"
	EnvOperatorGroup  = "OPERATOR_FEED_GROUP"
	EnvOperatorFeedOn = "OPERATOR_FEED_ENABLED"

	EnvSearchBaseURL  = "SEARCH_BASE_URL"
	EnvPromoBaseURL   = "PROMO_BASE_URL"
	EnvBookingBaseURL = "BOOKING_BASE_URL"
	EnvClientTimeout  = "CLIENT_TIMEOUT"

	EnvSessionDBPath = "SESSION_DB_PATH"
	EnvProtectionFee = "CANCELLATION_PROTECTION_FEE"
	EnvFreeBackNav   = "FREE_BACK_NAVIGATION"

	EnvRequestTimeout  = "REQUEST_TIMEOUT"
	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
