package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	S3       S3Config
	Redis    RedisConfig
	Jobs     JobsConfig
	App      AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	DSN string
}

// AuthConfig describes the identity provider. The JWKS URL and issuer are
// derived from region and pool id the way Cognito publishes them.
type AuthConfig struct {
	Region   string
	PoolID   string
	ClientID string
}

func (c AuthConfig) JWKSURL() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json", c.Region, c.PoolID)
}

func (c AuthConfig) Issuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.PoolID)
}

// S3Config covers both real AWS and a dev endpoint (minio) with static
// credentials.
type S3Config struct {
	Bucket      string
	Region      string
	Endpoint    string
	AccessKey   string
	SecretKey   string
	TempPrefix  string
	SavedPrefix string
}

type RedisConfig struct {
	URL string
}

type JobsConfig struct {
	KeyRefreshSpec string
	SweepSpec      string
	TempAssetTTL   time.Duration
}

type AppConfig struct {
	Environment string
	Version     string
	CORSOrigin  string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DB_DSN", ""),
		},
		Auth: AuthConfig{
			Region:   getEnv("COGNITO_AWS_REGION", "eu-west-1"),
			PoolID:   getEnv("COGNITO_POOL_ID", ""),
			ClientID: getEnv("COGNITO_CLIENT_ID", ""),
		},
		S3: S3Config{
			Bucket:      getEnv("S3_BUCKET", ""),
			Region:      getEnv("S3_AWS_REGION", "eu-west-1"),
			Endpoint:    getEnv("S3_ENDPOINT", ""),
			AccessKey:   getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
			TempPrefix:  getEnv("S3_TEMP_PREFIX", "temp/"),
			SavedPrefix: getEnv("S3_SAVED_PREFIX", "assets/"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Jobs: JobsConfig{
			KeyRefreshSpec: getEnv("KEYSET_REFRESH_CRON", "0 0 */6 * * *"),
			SweepSpec:      getEnv("ASSET_SWEEP_CRON", "0 30 * * * *"),
			TempAssetTTL:   time.Duration(getEnvAsInt("TEMP_ASSET_TTL_HOURS", 24)) * time.Hour,
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			CORSOrigin:  getEnv("CORS_ORIGIN", "*"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.Auth.PoolID == "" {
		return fmt.Errorf("COGNITO_POOL_ID is required")
	}
	if c.Auth.ClientID == "" {
		return fmt.Errorf("COGNITO_CLIENT_ID is required")
	}
	if c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}
