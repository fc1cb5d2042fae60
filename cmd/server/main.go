package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ipsentry/ipsentry/internal/config"
	"github.com/ipsentry/ipsentry/internal/handler"
	"github.com/ipsentry/ipsentry/internal/middleware"
	"github.com/ipsentry/ipsentry/internal/pkg/logger"
	"github.com/ipsentry/ipsentry/internal/repository"
	"github.com/ipsentry/ipsentry/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Logging.Level)

	// Cache (redis > memory)
	var cache service.Cache
	if cfg.Redis.Addr != "" {
		redisCache, err := repository.NewRedisCache(cfg)
		if err == nil {
			logger.Info("connected to redis", "addr", cfg.Redis.Addr)
			cache = redisCache
			defer redisCache.Close()
		} else {
			logger.Error("failed to connect to redis, falling back to memory cache", "error", err.Error())
		}
	}
	if cache == nil {
		cache = repository.NewMemoryCache()
	}

	// Persistent store. The blocklist fails open on runtime store
	// errors, but a store that is down at boot is fatal.
	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("connected to database")

	logRepo := repository.NewRequestLogRepo(db)
	blockRepo := repository.NewBlockedIPRepo(db)
	flagRepo := repository.NewSuspiciousIPRepo(db)

	// Request log writer, optionally mirroring to a rotating JSONL file
	var fileSink io.WriteCloser
	if cfg.Logging.RequestLogFile != "" {
		fileSink = &lumberjack.Logger{
			Filename:   cfg.Logging.RequestLogFile,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAgeDays,
			Compress:   true,
		}
	}
	logWriter := service.NewLogWriter(logRepo, fileSink)

	// Core services
	blocklistSvc := service.NewBlocklistService(cache, blockRepo, time.Duration(cfg.Blocklist.CacheTTLSeconds)*time.Second)

	var resolver service.GeoResolver
	if cfg.Geo.Provider == "mmdb" {
		mmdbResolver, err := service.NewMMDBGeoResolver(cfg.Geo.MMDBPath)
		if err != nil {
			log.Fatalf("Failed to open geo database: %v", err)
		}
		defer mmdbResolver.Close()
		resolver = mmdbResolver
	} else {
		resolver = service.NewHTTPGeoResolver(cfg.Geo.BaseURL, time.Duration(cfg.Geo.TimeoutMs)*time.Millisecond)
	}
	geoSvc := service.NewGeoService(cache, resolver, time.Duration(cfg.Geo.CacheTTLHours)*time.Hour)

	trackerSvc := service.NewTrackerService(blocklistSvc, geoSvc, logWriter)

	// Anomaly detector on a cron schedule
	detectorSvc := service.NewDetectorService(logRepo, flagRepo, cache, service.DetectorOptions{
		Window:          time.Duration(cfg.Detector.WindowMinutes) * time.Minute,
		VolumeThreshold: cfg.Detector.VolumeThreshold,
		SensitivePaths:  cfg.Detector.SensitivePaths,
	})

	scheduler := cron.New()
	if cfg.Detector.Enabled {
		if _, err := scheduler.AddFunc(cfg.Detector.Schedule, func() {
			detectorSvc.RunScheduled(context.Background())
		}); err != nil {
			log.Fatalf("Failed to schedule detector: %v", err)
		}
		scheduler.Start()
		logger.Info("anomaly detector scheduled", "schedule", cfg.Detector.Schedule)
	}

	// Handlers
	adminHandler := handler.NewAdminHandler(blocklistSvc, logRepo, flagRepo, blockRepo)

	// Router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.Tracking(trackerSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "ipsentry"})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	r.POST("/login",
		middleware.RateLimit(cfg.RateLimit.LoginAnonPerMinute, cfg.RateLimit.LoginAuthPerMinute),
		handler.Login)

	v1 := r.Group("/v1")
	v1.Use(middleware.AdminMiddleware(cfg))
	{
		v1.POST("/blocks", adminHandler.UpsertBlock)
		v1.GET("/blocks", adminHandler.ListBlocks)
		v1.GET("/logs", adminHandler.ListLogs)
		v1.GET("/flags", adminHandler.ListFlags)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("ipsentry started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	scheduler.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logWriter.Close()

	logger.Info("server exiting")
}
