package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr            string
	DatabaseURL     string
	RulesPath       string
	WorkerTickEvery time.Duration
	WorkerBatchSize int
}

type CLIConfig struct {
	APIBaseURL string
}

// LoadAPIFromEnv reads the server configuration. An empty DATABASE_URL is not
// an error; the server falls back to the in-memory store.
func LoadAPIFromEnv() APIConfig {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("CLICKMART_API_ADDR", ":8080")
	}

	return APIConfig{
		Addr:            addr,
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RulesPath:       envDefault("CLICKMART_RULES_PATH", ""),
		WorkerTickEvery: envDurationDefault("CLICKMART_WORKER_TICK_EVERY", 5*time.Second),
		WorkerBatchSize: envIntDefault("CLICKMART_WORKER_BATCH_SIZE", 200),
	}
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("CMART_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
