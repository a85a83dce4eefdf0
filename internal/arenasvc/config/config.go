package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port           string
	MongoURI       string // empty runs on the in-memory store
	NatsURL        string // empty disables cross-service fan-out
	NatsToken      string
	JWTSecret      string
	RateLimit      int // requests per minute per IP
	AllowedOrigins []string
	PlayerIDPrefix string
	StartingTokens int
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func atoi(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s value %q", key, v)
	}
	return n, nil
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

func Load() (Config, error) {
	cfg := Config{
		Port:           getenv("ARENA_SERVICE_PORT", "5000"),
		MongoURI:       getenv("MONGODB_URI", ""),
		NatsURL:        getenv("NATS_URL", ""),
		NatsToken:      getenv("NATS_TOKEN", ""),
		JWTSecret:      os.Getenv("JWT_SECRET_KEY"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "http://localhost:3000")),
		PlayerIDPrefix: strings.ToUpper(getenv("PLAYER_ID_PREFIX", "ARX")),
	}

	var err error
	if cfg.RateLimit, err = atoi("RATE_LIMIT", 300); err != nil {
		return cfg, err
	}
	if cfg.StartingTokens, err = atoi("STARTING_TOKENS", 10); err != nil {
		return cfg, err
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET_KEY is required")
	}
	return cfg, nil
}
