package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

const (
	StoreMongo  = "mongo"
	StoreCRDB   = "crdb"
	StoreMemory = "memory"

	ExportRabbit = "rabbit"
	ExportFile   = "file"
	ExportOff    = "off"
)

type Config struct {
	HTTPAddr    string
	StoreDriver string

	MongoURI                    string
	MongoDB                     string
	MongoServerSelectionTimeout time.Duration
	MongoSocketTimeout          time.Duration
	MongoMaxPoolSize            uint64

	CRDBDSN      string
	CRDBMaxConns int32

	RedisAddr string
	RabbitURL string

	JWTSecret string
	TokenTTL  time.Duration

	GatewayBaseURL   string
	GatewayKeyID     string
	GatewayKeySecret string
	GatewayTimeout   time.Duration

	InstamojoBaseURL   string
	InstamojoAPIKey    string
	InstamojoAuthToken string

	ExportMode      string
	ExportFile      string
	ExportQueueSize int
	ExportWorkers   int

	FinalizeTimeout    time.Duration
	RateLimitPerWindow int
	RateLimitWindow    time.Duration
	IdempotencyTTL     time.Duration

	OTLPEndpoint string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:    getString("HTTP_ADDR", ":8080"),
		StoreDriver: getString("STORE_DRIVER", StoreMongo),

		MongoURI:                    os.Getenv("MONGO_URI"),
		MongoDB:                     getString("MONGO_DB", "vortex"),
		MongoServerSelectionTimeout: getDuration("MONGO_SERVER_SELECTION_TIMEOUT", 5*time.Second),
		MongoSocketTimeout:          getDuration("MONGO_SOCKET_TIMEOUT", 45*time.Second),
		MongoMaxPoolSize:            uint64(getInt("MONGO_MAX_POOL_SIZE", 10)),

		CRDBDSN:      os.Getenv("CRDB_DSN"),
		CRDBMaxConns: int32(getInt("CRDB_MAX_CONNS", 10)),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RabbitURL: os.Getenv("RABBIT_URL"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  getDuration("TOKEN_TTL", time.Hour),

		GatewayBaseURL:   getString("GATEWAY_BASE_URL", "https://api.razorpay.com/v1"),
		GatewayKeyID:     os.Getenv("GATEWAY_KEY_ID"),
		GatewayKeySecret: os.Getenv("GATEWAY_KEY_SECRET"),
		GatewayTimeout:   getDuration("GATEWAY_TIMEOUT", 10*time.Second),

		InstamojoBaseURL:   getString("INSTAMOJO_BASE_URL", "https://www.instamojo.com/api/1.1"),
		InstamojoAPIKey:    os.Getenv("INSTAMOJO_API_KEY"),
		InstamojoAuthToken: os.Getenv("INSTAMOJO_AUTH_TOKEN"),

		ExportMode:      getString("EXPORT_MODE", ExportFile),
		ExportFile:      getString("EXPORT_FILE", "registrations.xlsx"),
		ExportQueueSize: getInt("EXPORT_QUEUE_SIZE", 100),
		ExportWorkers:   getInt("EXPORT_WORKERS", 2),

		FinalizeTimeout:    getDuration("FINALIZE_TIMEOUT", 15*time.Second),
		RateLimitPerWindow: getInt("RATE_LIMIT_PER_WINDOW", 100),
		RateLimitWindow:    getDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		IdempotencyTTL:     getDuration("IDEMPOTENCY_TTL", time.Hour),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}

// Validate rejects configurations the api cannot safely serve with.
// Secrets have no compiled-in fallback.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.GatewayKeySecret == "" {
		return errors.New("GATEWAY_KEY_SECRET is required")
	}
	if err := c.ValidateStore(); err != nil {
		return err
	}
	switch c.ExportMode {
	case ExportFile, ExportOff:
	case ExportRabbit:
		if c.RabbitURL == "" {
			return errors.New("RABBIT_URL is required when EXPORT_MODE=rabbit")
		}
	default:
		return errors.Newf("unknown EXPORT_MODE %q", c.ExportMode)
	}
	return nil
}

// ValidateStore checks only the settings needed to open the configured store.
func (c *Config) ValidateStore() error {
	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the mongo store")
		}
	case StoreCRDB:
		if c.CRDBDSN == "" {
			return errors.New("CRDB_DSN is required for the crdb store")
		}
	case StoreMemory:
	default:
		return errors.Newf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	d, _ := time.ParseDuration(os.Getenv(key))
	if d == 0 {
		return def
	}
	return d
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
