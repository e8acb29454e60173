// README: Entry point; loads config, wires the dispatch engine, starts the HTTP server and the cycle scheduler.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"ridematch/internal/clock"
	"ridematch/internal/config"
	httptransport "ridematch/internal/http"
	"ridematch/internal/infra"
	"ridematch/internal/modules/dispatch"
	"ridematch/internal/modules/matching"
	"ridematch/internal/modules/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		if redisClient, err = infra.NewRedis(ctx, cfg.Redis.Addr); err != nil {
			log.Fatal(err)
		}
		defer redisClient.Close()
	}

	travelTime, err := infra.NewTravelTime(cfg.TravelTime, redisClient, cfg.Dispatch.Location)
	if err != nil {
		log.Fatal(err)
	}

	var notifier dispatch.Notifier = notification.LogNotifier{}
	if cfg.Firebase.ProjectID != "" {
		msgClient, err := infra.NewFirebaseMessaging(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Fatalf("firebase init: %v", err)
		}
		notifier = notification.NewFCMNotifier(msgClient)
	}

	matchingSvc := matching.NewService(travelTime, matching.Config{
		IdleThreshold:   cfg.Dispatch.IdleThreshold,
		CarpoolRadiusKm: cfg.Dispatch.CarpoolRadiusKm,
		CarpoolDelay:    cfg.Dispatch.CarpoolDelay,
	})
	dispatchSvc := dispatch.NewService(dispatch.Deps{
		Repo:     dispatch.NewStore(dbPool),
		Matcher:  matchingSvc,
		Geocoder: travelTime,
		Stats:    travelTime,
		Notifier: notifier,
		Clock:    clock.Real(),
	}, cfg.Dispatch)

	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.NewRouter(dispatchSvc))

	go dispatchSvc.RunScheduler(ctx)

	if err := server.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
