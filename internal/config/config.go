package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort            = "8080"
	defaultProfileCacheTTL = 15 * time.Minute
)

type Config struct {
	ProjectID         string
	Region            string
	LogLevel          string
	Port              string
	StorageBucket     string
	AllowedOrigins    []string
	RedisAddress      string
	RedisPassword     string
	SendgridAPIKey    string
	SendgridKeySecret string
	MailFrom          string
	VerifyContinueURL string
	ProfileCacheTTL   time.Duration
}

// New reads the service configuration from the environment. Outside Cloud Run
// a local .env file is loaded first when present.
func New() (*Config, error) {
	if os.Getenv("K_SERVICE") == "" {
		_ = godotenv.Load()
	}

	cfg := &Config{
		ProjectID:         os.Getenv("PROJECTID"),
		Region:            os.Getenv("REGION"),
		LogLevel:          os.Getenv("LOGLEVEL"),
		Port:              getOr("PORT", defaultPort),
		StorageBucket:     os.Getenv("STORAGEBUCKET"),
		AllowedOrigins:    splitList(os.Getenv("ALLOWEDORIGINS")),
		RedisAddress:      os.Getenv("REDISADDRESS"),
		RedisPassword:     os.Getenv("REDISPASSWORD"),
		SendgridAPIKey:    os.Getenv("SENDGRIDAPIKEY"),
		SendgridKeySecret: os.Getenv("SENDGRIDKEYSECRET"),
		MailFrom:          os.Getenv("MAILFROM"),
		VerifyContinueURL: os.Getenv("VERIFYCONTINUEURL"),
		ProfileCacheTTL:   defaultProfileCacheTTL,
	}

	if v := os.Getenv("PROFILECACHETTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PROFILECACHETTL %q: %w", v, err)
		}
		cfg.ProfileCacheTTL = ttl
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	return cfg, nil
}

func getOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
