// README: One-shot dispatch runner; executes a single cycle for a service day and prints the report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"ridematch/internal/clock"
	"ridematch/internal/config"
	"ridematch/internal/infra"
	"ridematch/internal/modules/dispatch"
	"ridematch/internal/modules/matching"
	"ridematch/internal/modules/notification"
)

func main() {
	var (
		date   string
		mock   bool
		notify bool
	)
	flag.StringVar(&date, "date", "", "Service day (YYYY-MM-DD); defaults to RIDEMATCH_TARGET_DATE, then tomorrow")
	flag.BoolVar(&mock, "mock", false, "Use the mock travel-time backend")
	flag.BoolVar(&notify, "notify", true, "Send FCM notifications when Firebase is configured")
	flag.Parse()
	if mock {
		os.Setenv("RIDEMATCH_TRAVEL_MOCK", "true")
	}

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
	if notify && cfg.Firebase.ProjectID != "" {
		msgClient, err := infra.NewFirebaseMessaging(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Fatalf("firebase init: %v", err)
		}
		notifier = notification.NewFCMNotifier(msgClient)
	}

	svc := dispatch.NewService(dispatch.Deps{
		Repo: dispatch.NewStore(dbPool),
		Matcher: matching.NewService(travelTime, matching.Config{
			IdleThreshold:   cfg.Dispatch.IdleThreshold,
			CarpoolRadiusKm: cfg.Dispatch.CarpoolRadiusKm,
			CarpoolDelay:    cfg.Dispatch.CarpoolDelay,
		}),
		Geocoder: travelTime,
		Stats:    travelTime,
		Notifier: notifier,
		Clock:    clock.Real(),
	}, cfg.Dispatch)

	res, err := svc.RunCycle(ctx, date)
	if err != nil {
		log.Fatalf("dispatch cycle: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatal(err)
	}
	if res.Report.Interrupted {
		os.Exit(2)
	}
}
