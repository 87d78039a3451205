package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMemory    = "memory"
	StorePostgres  = "postgres"
	StoreCouchbase = "couchbase"
	StoreRedis     = "redis"

	BlobMemory = "memory"
	BlobFS     = "fs"
	BlobHTTP   = "http"

	PhotoLocal  = "local"
	PhotoUpload = "upload"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	AppName  string `mapstructure:"APP_NAME"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// text | json | ecs
	LogFormat string `mapstructure:"LOG_FORMAT"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	DBDSN       string `mapstructure:"DB_DSN"`

	CouchbaseURL        string `mapstructure:"COUCHBASE_URL"`
	CouchbaseUsername   string `mapstructure:"COUCHBASE_USERNAME"`
	CouchbasePassword   string `mapstructure:"COUCHBASE_PASSWORD"`
	CouchbaseBucket     string `mapstructure:"COUCHBASE_BUCKET"`
	CouchbaseScope      string `mapstructure:"COUCHBASE_SCOPE"`
	CouchbaseCollection string `mapstructure:"COUCHBASE_COLLECTION"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPrefix   string `mapstructure:"REDIS_PREFIX"`

	PhotoMode string `mapstructure:"PHOTO_MODE"`
	PhotoDir  string `mapstructure:"PHOTO_DIR"`

	BlobDriver      string `mapstructure:"BLOB_DRIVER"`
	BlobDir         string `mapstructure:"BLOB_DIR"`
	BlobPublicURL   string `mapstructure:"BLOB_PUBLIC_URL"`
	BlobRemoteURL   string `mapstructure:"BLOB_REMOTE_URL"`
	BlobRemoteToken string `mapstructure:"BLOB_REMOTE_TOKEN"`

	ShareWebhookURL string        `mapstructure:"SHARE_WEBHOOK_URL"`
	HTTPTimeout     time.Duration `mapstructure:"HTTP_TIMEOUT"`

	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
}

var keys = []string{
	"PORT", "ENV", "APP_NAME", "LOG_LEVEL", "LOG_FORMAT",
	"STORE_DRIVER", "DB_DSN",
	"COUCHBASE_URL", "COUCHBASE_USERNAME", "COUCHBASE_PASSWORD",
	"COUCHBASE_BUCKET", "COUCHBASE_SCOPE", "COUCHBASE_COLLECTION",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_PREFIX",
	"PHOTO_MODE", "PHOTO_DIR",
	"BLOB_DRIVER", "BLOB_DIR", "BLOB_PUBLIC_URL", "BLOB_REMOTE_URL", "BLOB_REMOTE_TOKEN",
	"SHARE_WEBHOOK_URL", "HTTP_TIMEOUT",
	"METRICS_ENABLED",
}

// Load lee .env (si existe) y el entorno; el entorno gana.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("APP_NAME", "policlinico")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("COUCHBASE_BUCKET", "policlinico")
	v.SetDefault("COUCHBASE_SCOPE", "_default")
	v.SetDefault("COUCHBASE_COLLECTION", "_default")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "policlinico:patients")
	v.SetDefault("PHOTO_MODE", PhotoLocal)
	v.SetDefault("PHOTO_DIR", "data/photos")
	v.SetDefault("BLOB_DRIVER", BlobMemory)
	v.SetDefault("BLOB_DIR", "data/blobs")
	v.SetDefault("BLOB_PUBLIC_URL", "/blobs")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("METRICS_ENABLED", true)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env es opcional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.BlobDriver = strings.ToLower(strings.TrimSpace(c.BlobDriver))
	c.PhotoMode = strings.ToLower(strings.TrimSpace(c.PhotoMode))
	c.BlobPublicURL = strings.TrimRight(strings.TrimSpace(c.BlobPublicURL), "/")
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

// Validate revisa lo que cada driver necesita para arrancar.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required when STORE_DRIVER is %q", c.StoreDriver)
		}
	case StoreCouchbase:
		if c.CouchbaseURL == "" || c.CouchbaseBucket == "" {
			return fmt.Errorf("COUCHBASE_URL and COUCHBASE_BUCKET are required when STORE_DRIVER is %q", c.StoreDriver)
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when STORE_DRIVER is %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be one of memory, postgres, couchbase, redis, got %q", c.StoreDriver)
	}

	switch c.BlobDriver {
	case BlobMemory:
	case BlobFS:
		if strings.TrimSpace(c.BlobDir) == "" {
			return fmt.Errorf("BLOB_DIR is required when BLOB_DRIVER is %q", c.BlobDriver)
		}
	case BlobHTTP:
		if c.BlobRemoteURL == "" {
			return fmt.Errorf("BLOB_REMOTE_URL is required when BLOB_DRIVER is %q", c.BlobDriver)
		}
	default:
		return fmt.Errorf("BLOB_DRIVER must be one of memory, fs, http, got %q", c.BlobDriver)
	}

	switch c.PhotoMode {
	case PhotoLocal:
		if strings.TrimSpace(c.PhotoDir) == "" {
			return fmt.Errorf("PHOTO_DIR is required when PHOTO_MODE is %q", c.PhotoMode)
		}
	case PhotoUpload:
	default:
		return fmt.Errorf("PHOTO_MODE must be local or upload, got %q", c.PhotoMode)
	}

	if c.HTTPTimeout < 0 {
		return fmt.Errorf("HTTP_TIMEOUT must not be negative")
	}
	return nil
}
