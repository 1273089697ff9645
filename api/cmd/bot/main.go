package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"az-morph/api/internal/app"
	"az-morph/api/internal/config"
	"az-morph/api/internal/httpserver"
	"az-morph/api/internal/logging"
	"az-morph/api/internal/morph"
	"az-morph/api/internal/store"
	"az-morph/api/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logging.Must(cfg.LogLevel, cfg.LogDev)
	defer func() { _ = log.Sync() }()

	if strings.TrimSpace(cfg.TelegramBotToken) == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is empty")
	}

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

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal("telegram", zap.Error(err))
	}
	bot.Debug = false
	log.Info("authorized", zap.String("bot", bot.Self.UserName))

	r := &telegram.Router{
		Bot:      bot,
		Engines:  app.Engines(cfg),
		Analyzer: app.Analyzer(cfg, cache, log),
		Log:      log.Named("telegram"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if db != nil {
			pctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(pctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handle := func(upd tgbotapi.Update) { r.HandleUpdate(ctx, upd) }

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhook(bot, mux, webhookURL, log, handle)
	} else {
		go telegram.RunPolling(ctx, bot, log.Named("polling"), handle)
		log.Info("polling mode")
	}

	srv := httpserver.New(":"+cfg.Port, mux)
	if err := httpserver.Run(ctx, srv, log); err != nil {
		log.Fatal("http server", zap.Error(err))
	}
}

func startWebhook(bot *tgbotapi.BotAPI, mux *http.ServeMux, baseURL string, log *zap.Logger, handle func(tgbotapi.Update)) {
	path := telegram.WebhookPath(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal("webhook", zap.Error(err))
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal("set webhook", zap.Error(err))
	}

	mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			log.Warn("bad webhook update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		// Telegram ждёт быстрый 200, разбор идёт в фоне
		go handle(*upd)
		w.WriteHeader(http.StatusOK)
	})
	log.Info("webhook mode", zap.String("path", path))
}
