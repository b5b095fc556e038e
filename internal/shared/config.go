package shared

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv          string
	HTTPAddr        string
	MetricsAddr     string
	RedisAddr       string
	RedisDB         int
	RedisPass       string
	SnapshotBackend string // "redis" (durable) or "memory" (session only)
	DocstoreBase    string
	DocstoreKey     string
	DocstoreRPS     int
	InstagramToken  string
	UploadWorkers   int
	WarmWorkers     int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		MetricsAddr:     env("METRICS_ADDR", ":9100"),
		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		RedisDB:         atoi("REDIS_DB", 0),
		RedisPass:       env("REDIS_PASSWORD", ""),
		SnapshotBackend: env("SNAPSHOT_BACKEND", "redis"),
		DocstoreBase:    env("DOCSTORE_BASE_URL", "https://cloud.appwrite.io/v1"),
		DocstoreKey:     env("DOCSTORE_API_KEY", ""),
		DocstoreRPS:     atoi("DOCSTORE_RPS", 5),
		InstagramToken:  env("INSTAGRAM_TOKEN", ""),
		UploadWorkers:   atoi("UPLOAD_WORKERS", 4),
		WarmWorkers:     atoi("WARM_WORKERS", 4),
	}
	if c.DocstoreKey == "" {
		log.Warn().Msg("DOCSTORE_API_KEY is empty")
	}
	if c.InstagramToken == "" {
		log.Warn().Msg("INSTAGRAM_TOKEN is empty, media feed disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
