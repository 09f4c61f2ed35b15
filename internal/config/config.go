package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NewRelic   NewRelicConfig
	Broker     BrokerConfig
	Auth       AuthConfig
	Log        LogConfig
	Settlement SettlementConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// DatabaseConfig holds rate-plan store configuration.
// Driver is "sqlite" (embedded, default) or "postgres".
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// BrokerConfig holds AMQP configuration. An empty URL disables publishing.
type BrokerConfig struct {
	URL      string
	Exchange string
}

// AuthConfig holds bearer-token configuration. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level       string
	Development bool
}

// SettlementConfig holds the defaults of a settlement run. Rates, statuses and
// keywords seed the rate-plan store and serve as the fallback plan.
type SettlementConfig struct {
	BusinessDayRule     string
	Rounding            string
	PremiumBasis        string
	StrictCategories    bool
	TimeZone            string
	SelfInsuredKeywords []string
	PayableStatuses     []string
	StatusLabels        map[string]string
	Rates               map[string]float64
	RunTimeout          time.Duration
	LockTTL             time.Duration
	PlanCacheTTL        time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			MaxBodyBytes: int64(getIntEnv("SERVER_MAX_BODY_BYTES", 32<<20)),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "sqlite"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "settlement"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "settlement.db"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "trip-settlement-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Broker: BrokerConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "settlement.events"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getBoolEnv("LOG_DEVELOPMENT", false),
		},
		Settlement: SettlementConfig{
			BusinessDayRule:     getEnv("SETTLEMENT_BUSINESS_DAY_RULE", "calendar"),
			Rounding:            getEnv("SETTLEMENT_ROUNDING", "floor"),
			PremiumBasis:        getEnv("SETTLEMENT_PREMIUM_BASIS", "union"),
			StrictCategories:    getBoolEnv("SETTLEMENT_STRICT_CATEGORIES", false),
			TimeZone:            getEnv("SETTLEMENT_TIME_ZONE", "Asia/Seoul"),
			SelfInsuredKeywords: getListEnv("SETTLEMENT_SELF_INSURED_KEYWORDS", "자차,자기부담금,자기부담"),
			PayableStatuses:     getListEnv("SETTLEMENT_PAYABLE_STATUSES", "00"),
			StatusLabels:        getMapEnv("SETTLEMENT_STATUS_LABELS", "00=정상,01=취소,02=제외"),
			Rates:               getRatesEnv("SETTLEMENT_RATES", "대인1=3.28,대인1지원=3.28,대인2=4.34,대물=3.68,자차=0"),
			RunTimeout:          getDurationEnv("SETTLEMENT_RUN_TIMEOUT", 2*time.Minute),
			LockTTL:             getDurationEnv("SETTLEMENT_LOCK_TTL", 5*time.Minute),
			PlanCacheTTL:        getDurationEnv("SETTLEMENT_PLAN_CACHE_TTL", 10*time.Minute),
		},
	}
}

// Validate rejects option names the settlement engine does not know.
func (c SettlementConfig) Validate() error {
	switch strings.ToLower(c.BusinessDayRule) {
	case "calendar", "platform":
	default:
		return fmt.Errorf("invalid SETTLEMENT_BUSINESS_DAY_RULE %q", c.BusinessDayRule)
	}
	switch strings.ToLower(c.Rounding) {
	case "floor", "ceiling", "half_even":
	default:
		return fmt.Errorf("invalid SETTLEMENT_ROUNDING %q", c.Rounding)
	}
	switch strings.ToLower(c.PremiumBasis) {
	case "union", "raw":
	default:
		return fmt.Errorf("invalid SETTLEMENT_PREMIUM_BASIS %q", c.PremiumBasis)
	}
	for category, rate := range c.Rates {
		if rate < 0 {
			return fmt.Errorf("negative rate %v for coverage %q", rate, category)
		}
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("SETTLEMENT_LOCK_TTL must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated value, dropping blank items.
func getListEnv(key, defaultValue string) []string {
	var items []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// getMapEnv parses "k1=v1,k2=v2". Items without '=' are skipped.
func getMapEnv(key, defaultValue string) map[string]string {
	out := make(map[string]string)
	for _, item := range getListEnv(key, defaultValue) {
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

// getRatesEnv parses "category=rate" pairs. A malformed value falls back to
// the default as a whole.
func getRatesEnv(key, defaultValue string) map[string]float64 {
	parse := func(raw map[string]string) (map[string]float64, bool) {
		rates := make(map[string]float64, len(raw))
		for k, v := range raw {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, false
			}
			rates[k] = f
		}
		return rates, true
	}

	if rates, ok := parse(getMapEnv(key, defaultValue)); ok {
		return rates
	}
	rates, _ := parse(getMapEnv("", defaultValue))
	return rates
}
