package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"az-morph/api/internal/app"
	"az-morph/api/internal/config"
	"az-morph/api/internal/handle"
	"az-morph/api/internal/httpserver"
	"az-morph/api/internal/logging"
	"az-morph/api/internal/morph"
	"az-morph/api/internal/static"
	"az-morph/api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logging.Must(cfg.LogLevel, cfg.LogDev)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db    *store.DB
		cache morph.Cache
	)
	if !cfg.CacheOff && cfg.DSN() != "" {
		db, err = app.OpenStore(ctx, cfg)
		if err != nil {
			log.Fatal("open store", zap.Error(err))
		}
		defer db.Close()
		cache = store.NewMorphologyRepo(db)
		log.Info("store connected", zap.String("store", app.DescribeStore(db, cfg)))
	}

	h := handle.New(app.Engines(cfg), app.Analyzer(cfg, cache, log), db, log.Named("http"))

	mux := http.NewServeMux()
	h.Register(mux, static.Handler(cfg.StaticDir))

	srv := httpserver.New(":"+cfg.Port, httpserver.Chain(mux, log.Named("access")))
	if err := httpserver.Run(ctx, srv, log); err != nil {
		log.Fatal("http server", zap.Error(err))
	}
}
