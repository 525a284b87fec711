package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultAppName             = "HederaWallet"
	defaultAppEnv              = "development"
	defaultPort                = "8080"
	defaultLogLevel            = "info"
	defaultShutdownDelay       = 10 * time.Second
	defaultIdempotencyTTL      = 24 * time.Hour
	defaultConfirmationTimeout = 5 * time.Minute
	defaultMetadataCacheTTL    = 24 * time.Hour
	defaultBalanceMaxAge       = time.Minute
	defaultSwapLifetime        = 30 * time.Minute
	defaultRateLimit           = 60
	idemTTLSecondsEnvVar       = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar           = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar      = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar     = "SHUTDOWN_TIMEOUT"
)

// LedgerBackend selects which ledger client factory serves requests.
const (
	BackendHedera = "hedera"
	BackendMemory = "memory"
)

var networks = map[string]bool{"mainnet": true, "testnet": true, "previewnet": true}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	// RedisPoolSize caps Redis connections; zero keeps the driver default.
	RedisPoolSize  int
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	LedgerBackend string
	Network       string
	// MirrorURL overrides the public mirror node of Network when set.
	MirrorURL string

	ServiceFeePercentage decimal.Decimal
	ServiceFeeCollector  string

	ConfirmationTimeout time.Duration
	MetadataCacheTTL    time.Duration
	BalanceMaxAge       time.Duration
	SwapLifetime        time.Duration

	JWTSecret          string
	KeystoreSecret     string
	RateLimitPerMinute int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:             getEnv("APP_NAME", defaultAppName),
		AppEnv:              getEnv("APP_ENV", defaultAppEnv),
		Port:                getEnv("PORT", defaultPort),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		LedgerBackend:       strings.ToLower(getEnv("LEDGER_BACKEND", BackendHedera)),
		Network:             strings.ToLower(getEnv("HEDERA_NETWORK", "testnet")),
		MirrorURL:           strings.TrimRight(os.Getenv("MIRROR_NODE_URL"), "/"),
		ServiceFeeCollector: os.Getenv("SERVICE_FEE_COLLECTOR"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		KeystoreSecret:      os.Getenv("KEYSTORE_SECRET"),
		RateLimitPerMinute:  defaultRateLimit,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.ConfirmationTimeout, err = durationEnv("", "CONFIRMATION_TIMEOUT", defaultConfirmationTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MetadataCacheTTL, err = durationEnv("", "METADATA_CACHE_TTL", defaultMetadataCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.BalanceMaxAge, err = durationEnv("", "BALANCE_MAX_AGE", defaultBalanceMaxAge); err != nil {
		return Config{}, err
	}
	if cfg.SwapLifetime, err = durationEnv("", "SWAP_LIFETIME", defaultSwapLifetime); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %q", v)
		}
		cfg.RateLimitPerMinute = n
	}

	if v := os.Getenv("REDIS_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid REDIS_POOL_SIZE: %q", v)
		}
		cfg.RedisPoolSize = n
	}

	cfg.ServiceFeePercentage = decimal.Zero
	if v := os.Getenv("SERVICE_FEE_PERCENTAGE"); v != "" {
		pct, err := decimal.NewFromString(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVICE_FEE_PERCENTAGE: %w", err)
		}
		if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			return Config{}, fmt.Errorf("SERVICE_FEE_PERCENTAGE must be between 0 and 100")
		}
		cfg.ServiceFeePercentage = pct
	}
	if cfg.ServiceFeePercentage.IsPositive() && cfg.ServiceFeeCollector == "" {
		return Config{}, fmt.Errorf("SERVICE_FEE_COLLECTOR must be set when a service fee is charged")
	}

	switch cfg.LedgerBackend {
	case BackendHedera, BackendMemory:
	default:
		return Config{}, fmt.Errorf("unknown LEDGER_BACKEND %q", cfg.LedgerBackend)
	}
	if !networks[cfg.Network] {
		return Config{}, fmt.Errorf("unknown HEDERA_NETWORK %q", cfg.Network)
	}

	if cfg.IsDevelopment() {
		return cfg, nil
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}
	if cfg.KeystoreSecret == "" {
		return Config{}, fmt.Errorf("KEYSTORE_SECRET must be set")
	}
	if cfg.LedgerBackend == BackendMemory {
		return Config{}, fmt.Errorf("LEDGER_BACKEND=memory is only allowed in development")
	}

	return cfg, nil
}

// IsDevelopment reports whether in-memory fallbacks are allowed.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == defaultAppEnv || c.AppEnv == "test"
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// durationEnv reads an integer seconds variable first, then a Go duration
// variable. An empty name skips that form.
func durationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
