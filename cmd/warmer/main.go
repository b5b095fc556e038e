package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"umrah_catalog/internal/adapters/docstore"
	"umrah_catalog/internal/adapters/observability"
	redisad "umrah_catalog/internal/adapters/redis"
	"umrah_catalog/internal/catalog"
	"umrah_catalog/internal/shared"
)

// warmer refreshes every catalog slice and writes the snapshots, so an
// API instance starting afterwards rehydrates warm.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("base", cfg.DocstoreBase).
		Int("workers", cfg.WarmWorkers).
		Msg("warmer starting")

	gw, err := docstore.New(cfg.DocstoreBase, cfg.DocstoreKey, cfg.DocstoreRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize document store client")
	}

	snap := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	store := catalog.NewStore(snap)
	notices := catalog.NewNotifications(snap)
	loader := catalog.NewLoader(store, notices, gw, gw, nil, cfg.UploadWorkers)

	jobs := []struct {
		name string
		run  func(context.Context) error
	}{
		{"packages", loader.RefreshPackages},
		{"hotels", loader.RefreshHotels},
		{"commonInclusions", loader.RefreshCommonInclusions},
		{"allImages", loader.RefreshAllImages},
		{"foodImages", loader.EnsureFoodImages},
	}

	sem := semaphore.NewWeighted(int64(cfg.WarmWorkers))
	var wg sync.WaitGroup

	for _, job := range jobs {
		job := job

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(int64(1))

			if err := job.run(ctx); err != nil {
				log.Warn().Str("slice", job.name).Err(err).Msg("warm failed")
				return
			}
			log.Info().Str("slice", job.name).Msg("warm ok")
		}()
	}

	wg.Wait()
	log.Info().Msg("warm completed")
}
