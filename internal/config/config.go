package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"

	CatalogDriverMongo    = "mongo"
	CatalogDriverPostgres = "postgres"
)

type Config struct {
	// Server настройки
	Port        string
	Host        string
	Environment string
	LogLevel    string

	// MongoDB настройки
	MongoURI     string
	DatabaseName string
	MongoTimeout int

	// Хранилища
	StoreDriver   string
	CatalogDriver string
	CatalogDSN    string

	// JWT настройки
	JWTSecret     string
	JWTExpiration int

	// HTTP
	AllowedOrigins    []string
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitDuration time.Duration
	RequestTimeout    time.Duration

	// Уведомления о дедлайнах
	AlertInterval           time.Duration
	SuppressedPurgeInterval time.Duration
	RetentionDays           int
}

func Load() *Config {
	return LoadFile(os.Getenv("CONFIG_PATH"))
}

// LoadFile - то же, что Load, но с явным путем к файлу конфигурации (пустой - без файла).
func LoadFile(path string) *Config {
	// Загружаем переменные из .env файла
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			logrus.Warnf("unable to read config file %s: %v", path, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Port:                    v.GetString("PORT"),
		Host:                    v.GetString("HOST"),
		Environment:             v.GetString("ENV"),
		LogLevel:                v.GetString("LOG_LEVEL"),
		MongoURI:                v.GetString("MONGO_URI"),
		DatabaseName:            v.GetString("DATABASE_NAME"),
		MongoTimeout:            v.GetInt("MONGO_TIMEOUT"),
		StoreDriver:             strings.ToLower(v.GetString("STORE_DRIVER")),
		CatalogDriver:           strings.ToLower(v.GetString("CATALOG_DRIVER")),
		CatalogDSN:              v.GetString("CATALOG_DSN"),
		JWTSecret:               v.GetString("JWT_SECRET"),
		JWTExpiration:           v.GetInt("JWT_EXPIRATION"),
		AllowedOrigins:          splitList(v.GetString("ALLOWED_ORIGINS")),
		RateLimitEnabled:        v.GetBool("RATE_LIMIT_ENABLED"),
		RateLimitRequests:       v.GetInt("RATE_LIMIT_REQUESTS"),
		RateLimitDuration:       v.GetDuration("RATE_LIMIT_WINDOW"),
		RequestTimeout:          v.GetDuration("REQUEST_TIMEOUT"),
		AlertInterval:           v.GetDuration("ALERT_INTERVAL"),
		SuppressedPurgeInterval: v.GetDuration("SUPPRESSED_PURGE_INTERVAL"),
		RetentionDays:           v.GetInt("RETENTION_DAYS"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "edu_alerts")
	v.SetDefault("MONGO_TIMEOUT", 10)
	v.SetDefault("STORE_DRIVER", StoreDriverMongo)
	v.SetDefault("CATALOG_DRIVER", CatalogDriverMongo)
	v.SetDefault("CATALOG_DSN", "")
	v.SetDefault("JWT_SECRET", "your-secret-key")
	v.SetDefault("JWT_EXPIRATION", 24) // часы
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_REQUESTS", 120)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	v.SetDefault("REQUEST_TIMEOUT", 10*time.Second)
	v.SetDefault("ALERT_INTERVAL", time.Hour)
	v.SetDefault("SUPPRESSED_PURGE_INTERVAL", 24*time.Hour)
	v.SetDefault("RETENTION_DAYS", 30)
}

// Validate проверяет значения, без которых сервис работать не может.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverMongo, StoreDriverMemory:
	default:
		return errors.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.CatalogDriver {
	case CatalogDriverMongo:
	case CatalogDriverPostgres:
		if c.CatalogDSN == "" {
			return errors.Errorf("CATALOG_DSN is required when CATALOG_DRIVER=%s", CatalogDriverPostgres)
		}
	default:
		return errors.Errorf("unknown CATALOG_DRIVER %q", c.CatalogDriver)
	}

	if c.AlertInterval <= 0 {
		return errors.Errorf("ALERT_INTERVAL must be positive, got %s", c.AlertInterval)
	}
	if c.SuppressedPurgeInterval <= 0 {
		return errors.Errorf("SUPPRESSED_PURGE_INTERVAL must be positive, got %s", c.SuppressedPurgeInterval)
	}
	if c.RetentionDays <= 0 {
		return errors.Errorf("RETENTION_DAYS must be positive, got %d", c.RetentionDays)
	}
	// при RATE_LIMIT_REQUESTS <= 0 лимитер не может принять ни одного запроса
	if c.RateLimitEnabled {
		if c.RateLimitRequests <= 0 {
			return errors.Errorf("RATE_LIMIT_REQUESTS must be positive when rate limiting is enabled, got %d", c.RateLimitRequests)
		}
		if c.RateLimitDuration <= 0 {
			return errors.Errorf("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled, got %s", c.RateLimitDuration)
		}
	}
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == "your-secret-key") {
		return errors.New("JWT_SECRET must be set in production")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Retention возвращает окно хранения уведомления после даты дедлайна.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
