package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"lakehouse_voc/internal/adapters/assistant"
	server "lakehouse_voc/internal/adapters/http_server"
	"lakehouse_voc/internal/adapters/memcache"
	"lakehouse_voc/internal/adapters/observability"
	redisad "lakehouse_voc/internal/adapters/redis"
	"lakehouse_voc/internal/app"
	"lakehouse_voc/internal/domain"
	"lakehouse_voc/internal/shared"
	"lakehouse_voc/internal/storage/warehouse"
)

func main() {
	_ = godotenv.Load()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// warehouse
	hq, err := sql.Open(cfg.WarehouseDriver, cfg.WarehouseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := hq.Ping(); err != nil {
		log.Fatal().Err(err).Msg("warehouse ping failed")
	}

	// A second handle lets property managers hit the warehouse under
	// row-limited credentials. Without one, every scope shares hq.
	var pm *sql.DB
	if cfg.WarehousePMDSN != "" {
		pm, err = sql.Open(cfg.WarehouseDriver, cfg.WarehousePMDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed for manager handle")
		}
		if err := pm.Ping(); err != nil {
			log.Fatal().Err(err).Msg("warehouse ping failed for manager handle")
		}
	}
	log.Info().Str("driver", cfg.WarehouseDriver).Bool("manager_handle", pm != nil).Msg("warehouse connection ok")

	// deps
	repo := warehouse.New(cfg.WarehouseDriver, hq, pm)

	var cache domain.Cache
	switch cfg.CacheBackend {
	case "redis":
		cache = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	default:
		cache = memcache.New(cfg.CacheTTL)
	}

	q := app.NewDiagnosticsService(repo, cache, cfg.CacheTTL)

	var collab domain.Assistant
	if cfg.AssistantBase != "" {
		c, err := assistant.New(cfg.AssistantBase, cfg.AssistantToken, cfg.AssistantRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("assistant client init failed")
		}
		collab = c
	}

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, A: collab})

	log.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.AppEnv).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
