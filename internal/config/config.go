package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	Port               string
	GinMode            string
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

type DatabaseConfig struct {
	Driver      string
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	ApplySchema bool
}

type AuthConfig struct {
	JWTSecret          string
	JWTExpirationHours int
	AdminUsername      string
	AdminPassword      string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// EngineConfig tunes the sale fan-out and the notification workers.
type EngineConfig struct {
	StockFanoutLimit   int
	NotifyWorkers      int
	NotifyQueueSize    int
	NotifyMaxAttempts  int
	NotifyRetryBackoff time.Duration
	NotifyEnqueueWait  time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)

	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "venue_pos")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_APPLY_SCHEMA", true)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION_HOURS", 12)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)

	v.SetDefault("STOCK_FANOUT_LIMIT", 8)
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	v.SetDefault("NOTIFY_MAX_ATTEMPTS", 5)
	v.SetDefault("NOTIFY_RETRY_BACKOFF_MS", 200)
	v.SetDefault("NOTIFY_ENQUEUE_TIMEOUT_MS", 100)
}

// Load reads an optional .env file from the working directory, then the environment,
// which takes precedence.
func Load() *Config {
	return load(".env")
}

func load(envFile string) *Config {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		log.Debug().Err(err).Str("file", envFile).Msg("No env file loaded, using environment only")
	}
	v.AutomaticEnv()

	var origins []string
	for _, o := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:               v.GetString("PORT"),
			GinMode:            v.GetString("GIN_MODE"),
			CORSAllowedOrigins: origins,
			ShutdownTimeout:    time.Duration(v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")) * time.Second,
		},
		Database: DatabaseConfig{
			Driver:      strings.ToLower(v.GetString("STORAGE_DRIVER")),
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetString("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			Name:        v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
			ApplySchema: v.GetBool("DB_APPLY_SCHEMA"),
		},
		Auth: AuthConfig{
			JWTSecret:          v.GetString("JWT_SECRET"),
			JWTExpirationHours: v.GetInt("JWT_EXPIRATION_HOURS"),
			AdminUsername:      v.GetString("ADMIN_USERNAME"),
			AdminPassword:      v.GetString("ADMIN_PASSWORD"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Pretty: v.GetBool("LOG_PRETTY"),
		},
		Engine: EngineConfig{
			StockFanoutLimit:   v.GetInt("STOCK_FANOUT_LIMIT"),
			NotifyWorkers:      v.GetInt("NOTIFY_WORKERS"),
			NotifyQueueSize:    v.GetInt("NOTIFY_QUEUE_SIZE"),
			NotifyMaxAttempts:  v.GetInt("NOTIFY_MAX_ATTEMPTS"),
			NotifyRetryBackoff: time.Duration(v.GetInt("NOTIFY_RETRY_BACKOFF_MS")) * time.Millisecond,
			NotifyEnqueueWait:  time.Duration(v.GetInt("NOTIFY_ENQUEUE_TIMEOUT_MS")) * time.Millisecond,
		},
	}
}
