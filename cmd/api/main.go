package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/parceldrop/parceldrop-backend/api/routes"
	"github.com/parceldrop/parceldrop-backend/internal/dispatch"
	"github.com/parceldrop/parceldrop-backend/internal/identity"
	"github.com/parceldrop/parceldrop-backend/internal/matching"
	"github.com/parceldrop/parceldrop-backend/internal/notifications"
	"github.com/parceldrop/parceldrop-backend/internal/offers"
	"github.com/parceldrop/parceldrop-backend/internal/viewcache"
	"github.com/parceldrop/parceldrop-backend/pkg/config"
	"github.com/parceldrop/parceldrop-backend/pkg/db"
	"github.com/parceldrop/parceldrop-backend/pkg/geo"
	"github.com/parceldrop/parceldrop-backend/pkg/logger"
	"github.com/parceldrop/parceldrop-backend/pkg/metrics"
	"github.com/parceldrop/parceldrop-backend/pkg/pubsub"
	"github.com/parceldrop/parceldrop-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	// Notifications degrade to a no-op when GCP is not configured, so local
	// development does not need a Pub/Sub emulator.
	var notifier notifications.Notifier = notifications.NoopNotifier{}
	if cfg.GCP.ProjectID != "" && cfg.PubSub.NotificationTopic != "" {
		psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		notifier, err = notifications.NewPubSubNotifier(psClient, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create pubsub notifier", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "pubsub not configured, notifications disabled")
	}

	var geocoder geo.Geocoder
	if cfg.GoogleMaps.APIKey != "" {
		gc, err := geo.NewGoogleGeocoder(cfg.GoogleMaps)
		if err != nil {
			logg.Error(context.Background(), "failed to create geocoder", err)
			os.Exit(1)
		}
		geocoder = gc
	} else {
		logg.Warn(context.Background(), "google maps not configured, offers must carry coordinates")
	}

	dispatchMetrics := metrics.NewDispatchMetrics(prometheus.DefaultRegisterer)

	cacheService, err := viewcache.NewService(redisClient, cfg.Cache, logg, dispatchMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create view cache", err)
		os.Exit(1)
	}

	notifDispatcher, err := notifications.NewDispatcher(notifier, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	offerRepo := offers.NewRepository(dbClient.DB())

	offerService, err := offers.NewService(
		offerRepo,
		geocoder,
		[]offers.Sink{cacheService, notifDispatcher},
		logg,
		dispatchMetrics,
		cfg.Dispatch,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create offer service", err)
		os.Exit(1)
	}

	matchService, err := matching.NewService(offerRepo, cfg.Search, logg, dispatchMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create matching service", err)
		os.Exit(1)
	}

	identityService, err := identity.NewService(identity.ServiceParams{
		UserRepo:  identity.NewRepository(dbClient.DB()),
		AuthCache: cacheService,
		Limiter:   redisClient,
		JWTConfig: cfg.JWT,
		RateLimit: cfg.AuthRateLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create identity service", err)
		os.Exit(1)
	}

	dispatchService, err := dispatch.NewService(dispatch.ServiceParams{
		Offers:  offerService,
		Matcher: matchService,
		Cache:   cacheService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			DispatchService: dispatchService,
			IdentityService: identityService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
