package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig
	Session   SessionConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// CatalogConfig locates the catalog REST backend
type CatalogConfig struct {
	BaseURL        string
	Timeout        time.Duration
	ServerSort     bool
	SearchDebounce time.Duration
	CacheMaxAge    time.Duration
}

type SessionConfig struct {
	Store        string // memory, redis or postgres
	CookieName   string
	TTL          time.Duration
	CookieSecure bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host is configured
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// Addr returns host:port
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type RateLimitConfig struct {
	LoginLimit  int
	LoginWindow time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() *Config {
	// values already in the environment win over .env
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env file loaded: %v", err)
	}
	return FromViper(viper.GetViper())
}

// FromViper reads a Config from v after applying the defaults
func FromViper(v *viper.Viper) *Config {
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		Server: ServerConfig{
			Port:     v.GetString("SERVER_PORT"),
			Env:      v.GetString("SERVER_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Catalog: CatalogConfig{
			BaseURL:        strings.TrimRight(v.GetString("CATALOG_API_URL"), "/"),
			Timeout:        time.Duration(v.GetInt("CATALOG_TIMEOUT_SECONDS")) * time.Second,
			ServerSort:     v.GetBool("CATALOG_SERVER_SORT"),
			SearchDebounce: time.Duration(v.GetInt("SEARCH_DEBOUNCE_MS")) * time.Millisecond,
			CacheMaxAge:    time.Duration(v.GetInt("CACHE_MAX_AGE_SECONDS")) * time.Second,
		},
		Session: SessionConfig{
			Store:        strings.ToLower(v.GetString("SESSION_STORE")),
			CookieName:   v.GetString("SESSION_COOKIE_NAME"),
			TTL:          time.Duration(v.GetInt("SESSION_TTL_HOURS")) * time.Hour,
			CookieSecure: v.GetBool("SESSION_COOKIE_SECURE"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_DATABASE"),
			Schema:   v.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			LoginLimit:  v.GetInt("LOGIN_RATE_LIMIT"),
			LoginWindow: time.Duration(v.GetInt("LOGIN_RATE_WINDOW_SECONDS")) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("CATALOG_API_URL", "http://localhost:8000")
	v.SetDefault("CATALOG_TIMEOUT_SECONDS", 10)
	v.SetDefault("CATALOG_SERVER_SORT", false)
	v.SetDefault("SEARCH_DEBOUNCE_MS", 500)
	v.SetDefault("CACHE_MAX_AGE_SECONDS", 30)
	v.SetDefault("SESSION_STORE", "memory")
	v.SetDefault("SESSION_COOKIE_NAME", "catalog_session")
	v.SetDefault("SESSION_TTL_HOURS", 24)
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_DATABASE", "")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("REDIS_HOST", "")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOGIN_RATE_LIMIT", 10)
	v.SetDefault("LOGIN_RATE_WINDOW_SECONDS", 60)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
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
