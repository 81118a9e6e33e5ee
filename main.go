package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	fiberRecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"mailnexy/config"
	controller "mailnexy/controllers"
	"mailnexy/internal/dnsinfo"
	"mailnexy/internal/domaincache"
	"mailnexy/internal/enrichment"
	"mailnexy/internal/finder"
	"mailnexy/internal/metadata"
	"mailnexy/internal/metrics"
	"mailnexy/internal/smtpclient"
	"mailnexy/internal/store"
	"mailnexy/internal/tiered"
	"mailnexy/internal/verifier"
	"mailnexy/middleware"
	"mailnexy/routes"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.AppConfig

	verifiedStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open verification store: %v", err)
	}
	defer verifiedStore.Close()

	if cfg.CursorSignKey != "" {
		store.SetCursorSigningKey([]byte(cfg.CursorSignKey))
	}

	resolver := dnsinfo.New(10 * time.Second)
	classifier := metadata.NewDefault()
	smtp := smtpclient.New(smtpclient.Options{
		HeloDomain:  cfg.HeloDomain,
		FromAddress: cfg.FromAddress,
	})
	cache := domaincache.New()

	cacheCtx, cacheCancel := context.WithCancel(context.Background())
	defer cacheCancel()
	go cache.StartSweeper(cacheCtx, time.Hour, logger)

	v := verifier.New(resolver, classifier, smtp, logger)

	var chain *enrichment.Chain
	var finderAdapters []finder.GuessAdapter
	if cfg.Enrichment.Enabled {
		httpClient := &http.Client{Timeout: 15 * time.Second}
		var enrichAdapters []enrichment.Adapter
		if cfg.Enrichment.ExaKey != "" {
			enrichAdapters = append(enrichAdapters, &enrichment.ExaAdapter{APIKey: cfg.Enrichment.ExaKey, HTTPClient: httpClient})
			finderAdapters = append(finderAdapters, &finder.ExaGuessAdapter{APIKey: cfg.Enrichment.ExaKey, HTTPClient: httpClient})
		}
		if cfg.Enrichment.ProspeoKey != "" {
			enrichAdapters = append(enrichAdapters, &enrichment.ProspeoAdapter{APIKey: cfg.Enrichment.ProspeoKey, HTTPClient: httpClient})
			finderAdapters = append(finderAdapters, &finder.ProspeoGuessAdapter{APIKey: cfg.Enrichment.ProspeoKey, HTTPClient: httpClient})
		}
		if cfg.Enrichment.ApolloKey != "" {
			enrichAdapters = append(enrichAdapters, &enrichment.ApolloAdapter{APIKey: cfg.Enrichment.ApolloKey, HTTPClient: httpClient})
			finderAdapters = append(finderAdapters, &finder.ApolloGuessAdapter{APIKey: cfg.Enrichment.ApolloKey, HTTPClient: httpClient})
		}
		chain = enrichment.NewChain(smtp, enrichAdapters...)
	}

	f := finder.New(resolver, smtp, cache, finderAdapters...)

	engine := tiered.New(resolver, classifier, v, verifiedStore, chain, logger, cfg.BackfillQueueCapacity, cfg.BackfillWorkers)
	engine.FastTierConfidence = cfg.FastTierConfidence
	engine.CacheTTL = cfg.CacheTTL
	engine.RoleAccountFilterInvalid = cfg.RoleAccountFilter
	defer engine.Stop()

	reg := metrics.New()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Environment}); err != nil {
			logger.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	accessLog := logrus.New()
	accessLog.SetFormatter(&logrus.JSONFormatter{})

	app := fiber.New()
	app.Use(fiberRecover.New(fiberRecover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			if cfg.SentryDSN != "" {
				sentry.CurrentHub().Recover(e)
			}
			accessLog.WithField("path", c.Path()).Errorf("panic recovered: %v", e)
		},
	}))
	app.Use(middleware.RequestLog(accessLog))
	app.Use(middleware.CORS())

	cs := routes.Controllers{
		Verification: controller.NewVerificationController(engine, logger),
		Finder:       controller.NewFinderController(f, logger),
		Ops:          controller.NewOpsController(verifiedStore, reg),
	}
	routes.SetupRoutes(app, cs, reg)

	logger.Info("kadenverify starting", "port", cfg.ServerPort, "store_backend", cfg.StoreBackend)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreRemote:
		return store.NewHTTPStore(cfg.StoreBaseURL, cfg.StoreAPIKey), nil
	case config.StoreSQL:
		return store.OpenRemote(cfg.StoreDSN)
	case config.StoreEmbedded:
		return store.OpenEmbedded(cfg.StorePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
