package main

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"umrah_catalog/internal/adapters/docstore"
	server "umrah_catalog/internal/adapters/http_server"
	"umrah_catalog/internal/adapters/instagram"
	"umrah_catalog/internal/adapters/observability"
	redisad "umrah_catalog/internal/adapters/redis"
	"umrah_catalog/internal/catalog"
	"umrah_catalog/internal/domain"
	"umrah_catalog/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// snapshotter: redis survives restarts, memory lasts one process
	var snap domain.Snapshotter
	if cfg.SnapshotBackend == "memory" {
		snap = redisad.NewMemory()
		log.Info().Msg("using in-memory snapshots")
	} else {
		snap = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	}

	store := catalog.NewStore(snap)
	notices := catalog.NewNotifications(snap)

	// rehydrate before serving so the first request sees the persisted
	// catalog
	if err := store.Rehydrate(ctx); err != nil {
		log.Warn().Err(err).Msg("catalog rehydrate failed, starting cold")
	}
	if err := notices.Rehydrate(ctx); err != nil {
		log.Warn().Err(err).Msg("notification rehydrate failed")
	}

	gw, err := docstore.New(cfg.DocstoreBase, cfg.DocstoreKey, cfg.DocstoreRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize document store client")
	}

	var feed domain.MediaFeed
	if cfg.InstagramToken != "" {
		ig, err := instagram.New(cfg.InstagramToken)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize media feed client")
		}
		feed = ig
	}

	loader := catalog.NewLoader(store, notices, gw, gw, feed, cfg.UploadWorkers)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Store: store, Loader: loader, Notices: notices, Files: gw})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
