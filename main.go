package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/techagentng/wastewatch/config"
	"github.com/techagentng/wastewatch/db"
	"github.com/techagentng/wastewatch/db/memory"
	"github.com/techagentng/wastewatch/logger"
	"github.com/techagentng/wastewatch/metrics"
	"github.com/techagentng/wastewatch/realtime"
	"github.com/techagentng/wastewatch/server"
	"github.com/techagentng/wastewatch/services"
)

const blacklistPurgeInterval = time.Hour

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg := logger.New(conf.Env, conf.Debug)
	slog.SetDefault(lg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var (
		reportRepo       db.ReportRepository
		directoryRepo    db.DirectoryRepository
		notificationRepo db.NotificationRepository
		rewardRepo       db.RewardRepository
		authRepo         db.AuthRepository
	)
	if conf.UsesMemoryStore() {
		lg.Warn("using in-memory storage; data is lost on restart")
		reportRepo, directoryRepo, notificationRepo, rewardRepo, authRepo = memory.New().Repositories()
	} else {
		gormDB, err := db.GetDB(conf)
		if err != nil {
			lg.Error("database setup failed", "error", err)
			os.Exit(1)
		}
		reportRepo, directoryRepo, notificationRepo, rewardRepo, authRepo = db.GormRepositories(gormDB)
	}

	hub := realtime.NewHub(realtime.WithLogger(lg), realtime.WithMetrics(m))
	var publisher realtime.Publisher = hub
	if conf.RedisURL != "" {
		client, err := realtime.NewRedisClient(ctx, conf.RedisURL)
		if err != nil {
			lg.Error("redis setup failed", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		broker := realtime.NewRedisBroker(client, conf.RedisChannel, hub, lg)
		go func() {
			if err := broker.Run(ctx); err != nil {
				lg.Error("realtime relay stopped", "error", err)
			}
		}()
		publisher = broker
	}

	notificationService := services.NewNotificationService(notificationRepo, publisher, conf, lg, m)
	reportService := services.NewReportService(
		reportRepo,
		directoryRepo,
		services.NewGeoLocator(directoryRepo, conf, m),
		services.NewQuotaGuard(directoryRepo),
		notificationService,
		conf,
		lg,
		m,
	)

	s := &server.Server{
		Config:              conf,
		Logger:              lg,
		Gatherer:            reg,
		AuthRepository:      authRepo,
		ReportService:       reportService,
		NotificationService: notificationService,
		RewardService:       services.NewRewardService(rewardRepo, directoryRepo, conf),
		AuthorityService:    services.NewAuthorityService(directoryRepo, notificationService, conf, lg),
		CitizenService:      services.NewCitizenService(directoryRepo, conf),
		Hub:                 hub,
	}
	if conf.S3Bucket != "" {
		s3Client, err := db.NewS3Client(ctx, conf)
		if err != nil {
			lg.Error("s3 setup failed", "error", err)
			os.Exit(1)
		}
		mediaRepo := db.NewMediaRepo(s3Client, conf.S3Bucket, conf.AWSRegion)
		s.MediaService = services.NewMediaService(mediaRepo, conf, lg)
	} else {
		lg.Warn("S3 bucket not configured; image uploads are disabled")
	}

	go purgeBlacklist(ctx, authRepo, lg)

	if err := s.Start(); err != nil {
		lg.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// purgeBlacklist drops revoked tokens that have expired anyway.
func purgeBlacklist(ctx context.Context, repo db.AuthRepository, lg *slog.Logger) {
	ticker := time.NewTicker(blacklistPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := repo.PurgeExpired(ctx, now)
			if err != nil {
				lg.Warn("purging expired tokens failed", "error", err)
				continue
			}
			if n > 0 {
				lg.Debug("purged expired tokens", "count", n)
			}
		}
	}
}
