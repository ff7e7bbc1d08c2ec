package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Warehouse bulk load target (pgx connection string)
	WarehouseURL string

	// Redis
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaGroupID       string
	DatasetEventsTopic string
	DatasetSubmitTopic string

	// OIDC
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string

	// HMAC tokens for service-to-service calls
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTTTL      time.Duration

	// Analytics
	InsightsConfigPath string
	ViewCacheTTL       time.Duration
	FetchTimeout       time.Duration
	FetchAttempts      int
	EngineMemoSize     int

	// Gateway specific
	GatewayRateLimitRPS   int
	GatewayRateLimitBurst int
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 64*1024*1024)),

		PostgresEnabled:  getBoolEnv("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "noshow"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "noshow123"),
		PostgresDB:       getEnv("POSTGRES_DB", "noshow"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		WarehouseURL: getEnv("WAREHOUSE_URL", ""),

		RedisEnabled:  getBoolEnv("REDIS_ENABLED", false),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaEnabled:       getBoolEnv("KAFKA_ENABLED", false),
		KafkaBrokers:       getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "noshow-analytics"),
		DatasetEventsTopic: getEnv("DATASET_EVENTS_TOPIC", "noshow.dataset.loaded"),
		DatasetSubmitTopic: getEnv("DATASET_SUBMIT_TOPIC", "noshow.dataset.submitted"),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTIssuer:   getEnv("JWT_ISSUER", "noshow-analytics"),
		JWTAudience: getEnv("JWT_AUDIENCE", "noshow-dashboard"),
		JWTTTL:      getDuration("JWT_TTL", time.Hour),

		InsightsConfigPath: getEnv("INSIGHTS_CONFIG", ""),
		ViewCacheTTL:       getDuration("VIEW_CACHE_TTL", 5*time.Minute),
		FetchTimeout:       getDuration("FETCH_TIMEOUT", 30*time.Second),
		FetchAttempts:      getIntEnv("FETCH_ATTEMPTS", 3),
		EngineMemoSize:     getIntEnv("ENGINE_MEMO_SIZE", 256),

		GatewayRateLimitRPS:   getIntEnv("GATEWAY_RATE_LIMIT_RPS", 50),
		GatewayRateLimitBurst: getIntEnv("GATEWAY_RATE_LIMIT_BURST", 100),
	}
}

// PostgresDSN renders the gorm connection string.
func (c *Config) PostgresDSN() string {
	return "host=" + c.PostgresHost +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" port=" + c.PostgresPort +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
