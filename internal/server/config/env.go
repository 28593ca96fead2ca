package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from the process environment. A .env
// file in the working directory is loaded first if present; a missing file
// is not an error.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("DUOCHAT_ADDR"); v != "" {
		cfg.EndpointAddr = v
	}
	if v := os.Getenv("DUOCHAT_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("DUOCHAT_SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("DUOCHAT_TOKEN_VALIDITY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.AccessTokenValidityDuration = d
		}
	}
	if v := os.Getenv("DUOCHAT_S3_USER"); v != "" {
		cfg.S3RootUser = v
	}
	if v := os.Getenv("DUOCHAT_S3_PASSWORD"); v != "" {
		cfg.S3RootPassword = v
	}
	if v := os.Getenv("DUOCHAT_S3_BUCKET"); v != "" {
		cfg.S3Bucket = v
	}
	if v := os.Getenv("DUOCHAT_S3_REGION"); v != "" {
		cfg.S3Region = v
	}
	if v := os.Getenv("DUOCHAT_S3_ENDPOINT"); v != "" {
		cfg.S3BaseEndpoint = v
	}
}
