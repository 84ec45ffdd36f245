package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tradingalerts/config"
	"tradingalerts/internal/evaluator"
	"tradingalerts/internal/marketdata"
	"tradingalerts/internal/metrics"
	"tradingalerts/internal/notify"
	redisstore "tradingalerts/internal/store/redis"
	sqlitestore "tradingalerts/internal/store/sqlite"
	"tradingalerts/pkg/smartconnect"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[alertengine] starting...")

	once := flag.Bool("once", false, "run a single evaluation pass and exit")
	flag.Parse()

	cfg := config.Load()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[alertengine] received %v, shutting down", sig)
		cancel()
	}()

	// ---- Alert store (SQLite) ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[alertengine] sqlite init failed: %v", err)
	}
	defer store.Close()

	// ---- Series cache (Redis, optional) ----
	var cache marketdata.SeriesCache
	if cfg.RedisAddr != "" {
		rc, err := redisstore.NewCache(redisstore.CacheConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Printf("[alertengine] WARNING: redis init failed: %v (continuing without cache)", err)
		} else {
			defer rc.Close()
			cache = rc
			health.StartLivenessChecker(ctx, rc.Client(), store.DB(), 30*time.Second)
		}
	}
	if cache == nil {
		health.StartLivenessChecker(ctx, nil, store.DB(), 30*time.Second)
	}

	// ---- Broker client & market data provider ----
	client := smartconnect.New(smartconnect.Config{
		APIKey:      cfg.AngelAPIKey,
		AccessToken: cfg.AngelToken,
	})
	client.SessionExpiryHook = func() {
		health.SetBrokerSessionOK(false)
		log.Println("[alertengine] broker session expired")
	}
	provider := marketdata.New(marketdata.Config{
		APIKey:      cfg.AngelAPIKey,
		ClientCode:  cfg.AngelClientCode,
		Password:    cfg.AngelPassword,
		TOTPSecret:  cfg.AngelTOTPSecret,
		AccessToken: cfg.AngelToken,
	}, client, cache).WithMetrics(prom)

	// ---- Notification channels ----
	var email notify.EmailSender
	if s := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}); s != nil {
		email = s
	} else {
		log.Println("[alertengine] SMTP not configured; emails go to the log")
		email = notify.LogSender{}
	}
	var sms notify.SMSSender
	if s := notify.NewTwilioSender(notify.TwilioConfig{
		AccountSID: cfg.TwilioSID,
		AuthToken:  cfg.TwilioToken,
		FromNumber: cfg.TwilioFrom,
	}); s != nil {
		sms = s
	}
	notifier := notify.NewManager(email, sms)

	// ---- Orchestrator ----
	svc := evaluator.New(evaluator.Config{
		Interval:        cfg.CheckInterval,
		MarketHoursOnly: cfg.MarketHoursOnly && !*once,
	}, store, provider, notifier, prom).WithHealth(health)

	if *once {
		sum, err := svc.RunOnce(ctx)
		if err != nil {
			log.Fatalf("[alertengine] pass failed: %v", err)
		}
		log.Printf("[alertengine] done: %d alerts, %d checked, %d triggered, %d skipped",
			sum.Alerts, sum.Checked, sum.Triggered, sum.Skipped)
		return
	}

	health.SetBrokerSessionOK(true)
	if err := svc.Run(ctx); err != nil {
		if errors.Is(err, marketdata.ErrAuth) {
			log.Fatalf("[alertengine] stopping: %v (check ANGEL_API_KEY / ANGEL_CLIENT_CODE / ANGEL_PASSWORD / ANGEL_TOTP_SECRET, or refresh ANGEL_TOKEN)", err)
		}
		log.Printf("[alertengine] run ended: %v", err)
	}

	metricsSrv.Stop(context.Background())
	log.Println("[alertengine] shutdown complete")
}
