// Command server runs the apartment listing monitor: it wires config,
// persistence, provider adapters, the scheduler, and the operational HTTP
// API, then blocks until an interrupt signal triggers a graceful
// shutdown.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"aptwatch/internal/api"
	"aptwatch/internal/config"
	"aptwatch/internal/dedup"
	"aptwatch/internal/eventbus"
	"aptwatch/internal/messaging"
	"aptwatch/internal/notify"
	"aptwatch/internal/providers"
	"aptwatch/internal/repository"
	"aptwatch/internal/scheduler"
)

func main() {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[server] connect to database: %v", err)
	}
	defer repo.Close()

	if schemaPath := os.Getenv("SCHEMA_PATH"); schemaPath != "" {
		if err := repo.Migrate(ctx, schemaPath); err != nil {
			log.Fatalf("[server] apply schema: %v", err)
		}
	}

	sender := buildSender(cfg)
	recorder := repo
	dispatcher := notify.New(recorder, sender, cfg.NotificationThrottle, cfg.MaxNotifyPerCycle)

	adapters := buildAdapters(cfg)
	dedupSet := dedup.New()
	bus := eventbus.New()
	defer bus.Close()

	sched := scheduler.New(repo, adapters, dedupSet, dispatcher, bus, scheduler.Config{
		CheckIntervalNormal: cfg.CheckIntervalNormal,
		CheckIntervalQuiet:  cfg.CheckIntervalQuiet,
		IsQuietHour:         cfg.IsQuietHour,
		MaxApartmentsPerJob: cfg.MaxApartmentsPerJob,
		WorkerCount:         cfg.WorkerCount(),
		DefaultCity:         cfg.DefaultFilter.City,
		DefaultPriceMin:     &cfg.DefaultFilter.PriceMin,
		DefaultPriceMax:     &cfg.DefaultFilter.PriceMax,
		DefaultRoomsMin:     &cfg.DefaultFilter.RoomsMin,
		DefaultRoomsMax:     &cfg.DefaultFilter.RoomsMax,
	})

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[server] start scheduler: %v", err)
	}

	server := api.New(ctx, repo, sched, sched, bus, cfg.JWTSigningKey)

	log.Printf("[server] listening on :%d", cfg.APIPort)
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe(ctx, ":"+strconv.Itoa(cfg.APIPort))
	}()

	select {
	case <-ctx.Done():
	case err := <-srvErr:
		if err != nil {
			log.Printf("[server] http server error: %v", err)
		}
	}

	log.Println("[server] shutting down")
	sched.Stop()
}

func loadConfig() *config.Config {
	var base *config.Config
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		overlay, err := config.LoadOverlay(path)
		if err != nil {
			log.Printf("[server] no config overlay loaded from %s: %v", path, err)
		} else {
			base = overlay
		}
	}
	return config.FromEnv(base)
}

func buildSender(cfg *config.Config) messaging.Sender {
	if token := os.Getenv("SVIX_AUTH_TOKEN"); token != "" {
		sender, err := messaging.NewSvixSender(token, os.Getenv("SVIX_SERVER_URL"))
		if err != nil {
			log.Printf("[server] svix sender unavailable, falling back to http webhook: %v", err)
		} else {
			return sender
		}
	}
	if cfg.MessagingWebhookURL != "" {
		return messaging.NewHTTPSender(cfg.MessagingWebhookURL, cfg.MessagingWebhookToken)
	}
	log.Println("[server] no messaging backend configured, using no-op sender")
	return &messaging.NoopSender{}
}

func buildAdapters(cfg *config.Config) []providers.Adapter {
	isQuiet := cfg.IsQuietHour
	nowHour := func() int { return time.Now().Hour() }

	is24Client := providers.NewClient(cfg.ImmoScout24.ApifyToken, cfg.AdapterCooldown, cfg.AdapterQuietScaling, cfg.ApifySyncRun, isQuiet, nowHour)
	immoweltClient := providers.NewClient(cfg.Immowelt.ApifyToken, cfg.AdapterCooldown, cfg.AdapterQuietScaling, cfg.ApifySyncRun, isQuiet, nowHour)
	kleinanzeigenClient := providers.NewClient(cfg.Kleinanzeigen.ApifyToken, cfg.AdapterCooldown, cfg.AdapterQuietScaling, cfg.ApifySyncRun, isQuiet, nowHour)

	return []providers.Adapter{
		providers.NewImmoScout24Adapter(is24Client, cfg.ImmoScout24.ActorID, cfg.ImmoScout24.StartURL),
		providers.NewImmoweltAdapter(immoweltClient, cfg.Immowelt.ActorID, cfg.EnableImmoweltLive, cfg.Immowelt.StartURL),
		providers.NewKleinanzeigenAdapter(kleinanzeigenClient, cfg.Kleinanzeigen.ActorID),
	}
}
