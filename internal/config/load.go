package config

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"

	pkgcfg "github.com/Skotchmaster/account_service/pkg/config"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	RedisURL   string
	SessionTTL time.Duration

	JWTSecret       []byte
	RefreshSecret   []byte
	JWTIssuer       string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	RefreshRotation bool
	BcryptCost      int

	KafkaBrokers []string
	KafkaTopic   string

	ESURL      string
	ESUser     string
	ESPassword string
	ESLogIndex string

	CORSOrigins []string
	PolicyFile  string

	SuperAdminUsername string
	SuperAdminPassword string
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		ServiceName: pkgcfg.EnvDefault("SERVICE_NAME", "account"),
		ServerPort:  pkgcfg.EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    pkgcfg.EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL:   pkgcfg.EnvDefault("DATABASE_URL", "sqlite://account.db"),
		MongoURI:      pkgcfg.EnvDefault("MONGO_URI", ""),
		MongoDatabase: pkgcfg.EnvDefault("MONGO_DATABASE", "account"),

		RedisURL:   pkgcfg.EnvDefault("REDIS_URL", ""),
		SessionTTL: pkgcfg.EnvDuration("SESSION_TTL", 7*24*time.Hour),

		JWTSecret:       []byte(pkgcfg.EnvDefault("JWT_SECRET", "")),
		RefreshSecret:   []byte(pkgcfg.EnvDefault("JWT_REFRESH_SECRET", "")),
		JWTIssuer:       pkgcfg.EnvDefault("JWT_ISSUER", "account"),
		AccessTTL:       pkgcfg.EnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:      pkgcfg.EnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RefreshRotation: pkgcfg.EnvBool("REFRESH_ROTATION", false),
		BcryptCost:      pkgcfg.EnvIntDefault("BCRYPT_COST", 0),

		KafkaBrokers: pkgcfg.CSV(pkgcfg.EnvDefault("KAFKA_BROKERS", "")),
		KafkaTopic:   pkgcfg.EnvDefault("KAFKA_TOPIC", "user_events"),

		ESURL:      pkgcfg.EnvDefault("ES_URL", ""),
		ESUser:     pkgcfg.EnvDefault("ES_USER", ""),
		ESPassword: pkgcfg.EnvDefault("ES_PASSWORD", ""),
		ESLogIndex: pkgcfg.EnvDefault("ES_LOG_INDEX", "account-logs"),

		CORSOrigins: pkgcfg.CSV(pkgcfg.EnvDefault("CORS_ORIGINS", "*")),
		PolicyFile:  pkgcfg.EnvDefault("POLICY_FILE", ""),

		SuperAdminUsername: pkgcfg.EnvDefault("SUPERADMIN_USERNAME", ""),
		SuperAdminPassword: pkgcfg.EnvDefault("SUPERADMIN_PASSWORD", ""),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	return errors.Join(
		pkgcfg.MustNonEmptyBytes(c.JWTSecret, "JWT_SECRET"),
		pkgcfg.MustNonEmptyBytes(c.RefreshSecret, "JWT_REFRESH_SECRET"),
		pkgcfg.MustNonEmpty(c.DatabaseURL, "DATABASE_URL"),
	)
}
