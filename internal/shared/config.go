package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	WarehouseDriver string // mysql | postgres
	WarehouseDSN    string
	WarehousePMDSN  string // optional row-limited manager credentials

	CacheBackend string // memory | redis
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	CacheTTL     time.Duration

	AssistantBase  string
	AssistantToken string
	AssistantRPS   int

	IngestFeed    string
	IngestWorkers int
	IngestBatch   int
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
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		WarehouseDriver: env("WAREHOUSE_DRIVER", "mysql"),
		WarehouseDSN:    env("WAREHOUSE_DSN", "root:root@tcp(localhost:3306)/voc?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		WarehousePMDSN:  env("WAREHOUSE_PM_DSN", ""),

		CacheBackend: env("CACHE_BACKEND", "memory"),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisDB:      atoi("REDIS_DB", 0),
		RedisPass:    env("REDIS_PASSWORD", ""),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 600)) * time.Second,

		AssistantBase:  env("ASSISTANT_BASE_URL", ""),
		AssistantToken: env("ASSISTANT_API_TOKEN", ""),
		AssistantRPS:   atoi("ASSISTANT_RPS", 5),

		IngestFeed:    env("INGEST_FEED", "feed.jsonl"),
		IngestWorkers: atoi("INGEST_WORKERS", 8),
		IngestBatch:   atoi("INGEST_BATCH_SIZE", 500),
	}
	if c.AssistantBase == "" {
		log.Warn().Msg("ASSISTANT_BASE_URL is empty, assistant endpoint disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
