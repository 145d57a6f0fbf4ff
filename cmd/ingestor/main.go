package main

import (
	"bufio"
	"context"
	"database/sql"
	"os"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"lakehouse_voc/internal/adapters/observability"
	redisad "lakehouse_voc/internal/adapters/redis"
	"lakehouse_voc/internal/app"
	"lakehouse_voc/internal/domain"
	"lakehouse_voc/internal/shared"
	"lakehouse_voc/internal/storage/warehouse"
)

func main() {
	ctx := context.Background()
	_ = godotenv.Load()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("feed", cfg.IngestFeed).
		Int("workers", cfg.IngestWorkers).
		Int("batch", cfg.IngestBatch).
		Msg("ingestor starting")

	db, err := sql.Open(cfg.WarehouseDriver, cfg.WarehouseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("warehouse ping failed")
	}
	log.Info().Msg("warehouse ping ok")

	repo := warehouse.New(cfg.WarehouseDriver, db, nil)

	// Only a shared backend is worth invalidating from here. The API's
	// in-process cache expires on its own TTL.
	var cache domain.Cache
	if cfg.CacheBackend == "redis" {
		cache = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	}
	ing := app.NewIngestionService(repo, cache)

	f, err := os.Open(cfg.IngestFeed)
	if err != nil {
		log.Fatal().Err(err).Str("feed", cfg.IngestFeed).Msg("open feed failed")
	}
	defer f.Close()

	sem := semaphore.NewWeighted(int64(cfg.IngestWorkers))
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total app.IngestResult
	)

	flush := func(lines []app.FeedLine) {
		if len(lines) == 0 {
			return
		}

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(batch []app.FeedLine) {
			defer wg.Done()
			defer sem.Release(int64(1))

			res, err := ing.IngestLines(ctx, batch)
			if err != nil {
				log.Warn().Int("lines", len(batch)).Err(err).Msg("batch failed")
				return
			}
			mu.Lock()
			total.Merge(res)
			mu.Unlock()
			log.Info().Int("lines", len(batch)).Int("rejected", res.Rejected).Msg("batch ok")
		}(lines)
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		batch []app.FeedLine
		line  int
	)
	for sc.Scan() {
		line++
		// the scanner reuses its buffer, so each line gets its own copy
		raw := make([]byte, len(sc.Bytes()))
		copy(raw, sc.Bytes())

		batch = append(batch, app.FeedLine{Number: line, Raw: raw})
		if len(batch) >= cfg.IngestBatch {
			flush(batch)
			batch = nil
		}
	}
	if err := sc.Err(); err != nil {
		log.Fatal().Err(err).Msg("feed read failed")
	}
	flush(batch)

	wg.Wait()
	log.Info().
		Int("locations", total.Locations).
		Int("issues", total.Issues).
		Int("reviews", total.Reviews).
		Int("rejected", total.Rejected).
		Msg("ingestion completed")
}
