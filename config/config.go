package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "cafereview-secret"

// Config holds application configuration
type Config struct {
	Port           string        `env:"PORT,default=8083"`
	GinMode        string        `env:"GIN_MODE,default=debug"`
	AppURL         string        `env:"APP_URL,default=http://localhost:8083"`
	DBDriver       string        `env:"DB_DRIVER,default=postgres"`
	DatabaseDSN    string        `env:"DATABASE_DSN,default=host=localhost user=postgres password=postgres dbname=cafe_review port=5432 sslmode=disable"`
	JWTSecret      string        `env:"JWT_SECRET,default=cafereview-secret"`
	TokenTTL       time.Duration `env:"TOKEN_TTL,default=24h"`
	BcryptCost     int           `env:"BCRYPT_COST,default=10"`
	StorageRoot    string        `env:"STORAGE_ROOT,default=./storage/app/public"`
	RedisURL       string        `env:"REDIS_URL"`
	AllowedOrigins string        `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	LogLevel       string        `env:"LOG_LEVEL,default=info"`
	LogFormat      string        `env:"LOG_FORMAT,default=text"`
}

// AppConfig is the configuration loaded at startup.
var AppConfig *Config

// LoadConfig reads .env (if present) and the process environment into AppConfig.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, err
	}

	if cfg.JWTSecret == defaultJWTSecret {
		log.Println("Warning: Using default JWT_SECRET. Update it in your environment.")
	}

	AppConfig = &cfg
	return &cfg, nil
}

// Origins splits ALLOWED_ORIGINS into a list.
func (c *Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
