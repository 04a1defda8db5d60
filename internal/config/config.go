package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Config holds all configuration
type Config struct {
	MySQL        MySQLConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Migrate      bool
	HTTPAddr     string
	Cloudflare   CloudflareConfig
	Verification VerificationConfig
}

// MySQLConfig holds MySQL configuration
type MySQLConfig struct {
	DSN string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	ExpireMinutes int
	Issuer        string
}

// CloudflareConfig holds custom-hostname API configuration.
// When Offline is set the deterministic fake client is wired instead of
// the live API, so the service can run without network access.
type CloudflareConfig struct {
	ZoneID   string
	APIToken string
	Offline  bool
}

// VerificationConfig holds domain verification configuration
type VerificationConfig struct {
	// CNAMETarget is the edge hostname customers point their domain at
	CNAMETarget string
	// TXTRecordPrefix is the label prepended to the customer domain for
	// the ownership TXT record, e.g. "_linkhub-verify"
	TXTRecordPrefix string
	// ResolveCacheTTLSec is how long public resolve verdicts are cached
	ResolveCacheTTLSec int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		MySQL: MySQLConfig{
			DSN: getEnv("MYSQL_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASS", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:        os.Getenv("JWT_SECRET"),
			ExpireMinutes: getEnvInt("JWT_EXPIRE_MINUTES", 1440),
			Issuer:        getEnv("JWT_ISSUER", "linkhub"),
		},
		Migrate:  getEnv("MIGRATE", "0") == "1",
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Cloudflare: CloudflareConfig{
			ZoneID:   getEnv("CF_ZONE_ID", ""),
			APIToken: getEnv("CF_API_TOKEN", ""),
			Offline:  getEnv("CF_OFFLINE", "0") == "1",
		},
		Verification: VerificationConfig{
			CNAMETarget:        getEnv("VERIFY_CNAME_TARGET", "edge.linkhub.app"),
			TXTRecordPrefix:    getEnv("VERIFY_TXT_PREFIX", "_linkhub-verify"),
			ResolveCacheTTLSec: getEnvInt("RESOLVE_CACHE_TTL_SEC", 30),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromINI loads configuration from INI file with environment variable override
func LoadFromINI(iniPath string) (*Config, error) {
	cfgFile, err := ini.Load(iniPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load INI file: %w", err)
	}

	// Helper function: get value with priority: ENV > INI > default
	getValue := func(envKey, iniSection, iniKey, defaultValue string) string {
		if value := os.Getenv(envKey); value != "" {
			return value
		}
		if value := cfgFile.Section(iniSection).Key(iniKey).String(); value != "" {
			return value
		}
		return defaultValue
	}

	getValueInt := func(envKey, iniSection, iniKey string, defaultValue int) int {
		if value := os.Getenv(envKey); value != "" {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
		}
		if cfgFile.Section(iniSection).HasKey(iniKey) {
			if value, err := cfgFile.Section(iniSection).Key(iniKey).Int(); err == nil {
				return value
			}
		}
		return defaultValue
	}

	getValueBool := func(envKey, iniSection, iniKey string, defaultValue bool) bool {
		if value := os.Getenv(envKey); value != "" {
			return value == "1" || value == "true"
		}
		if value, err := cfgFile.Section(iniSection).Key(iniKey).Bool(); err == nil {
			return value
		}
		return defaultValue
	}

	cfg := &Config{
		MySQL: MySQLConfig{
			DSN: getValue("MYSQL_DSN", "mysql", "dsn", ""),
		},
		Redis: RedisConfig{
			Addr:     getValue("REDIS_ADDR", "redis", "addr", "localhost:6379"),
			Password: getValue("REDIS_PASS", "redis", "pass", ""),
			DB:       getValueInt("REDIS_DB", "redis", "db", 0),
		},
		JWT: JWTConfig{
			Secret:        getValue("JWT_SECRET", "jwt", "secret", ""),
			ExpireMinutes: getValueInt("JWT_EXPIRE_MINUTES", "jwt", "expire_minutes", 1440),
			Issuer:        getValue("JWT_ISSUER", "jwt", "issuer", "linkhub"),
		},
		Migrate:  getValueBool("MIGRATE", "app", "migrate", false),
		HTTPAddr: getValue("HTTP_ADDR", "http", "addr", ":8080"),
		Cloudflare: CloudflareConfig{
			ZoneID:   getValue("CF_ZONE_ID", "cloudflare", "zone_id", ""),
			APIToken: getValue("CF_API_TOKEN", "cloudflare", "api_token", ""),
			Offline:  getValueBool("CF_OFFLINE", "cloudflare", "offline", false),
		},
		Verification: VerificationConfig{
			CNAMETarget:        getValue("VERIFY_CNAME_TARGET", "verification", "cname_target", "edge.linkhub.app"),
			TXTRecordPrefix:    getValue("VERIFY_TXT_PREFIX", "verification", "txt_prefix", "_linkhub-verify"),
			ResolveCacheTTLSec: getValueInt("RESOLVE_CACHE_TTL_SEC", "verification", "resolve_cache_ttl_sec", 30),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.MySQL.DSN == "" {
		return fmt.Errorf("MYSQL_DSN is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if !c.Cloudflare.Offline {
		if c.Cloudflare.ZoneID == "" {
			return fmt.Errorf("CF_ZONE_ID is required unless CF_OFFLINE=1")
		}
		if c.Cloudflare.APIToken == "" {
			return fmt.Errorf("CF_API_TOKEN is required unless CF_OFFLINE=1")
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
