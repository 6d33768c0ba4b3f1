package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/exam-seating/internal/allocator"
	"github.com/iliyamo/exam-seating/internal/config"
	"github.com/iliyamo/exam-seating/internal/database"
	"github.com/iliyamo/exam-seating/internal/handler"
	"github.com/iliyamo/exam-seating/internal/lock"
	"github.com/iliyamo/exam-seating/internal/middleware"
	"github.com/iliyamo/exam-seating/internal/queue"
	"github.com/iliyamo/exam-seating/internal/repository"
	"github.com/iliyamo/exam-seating/internal/router"
	"github.com/iliyamo/exam-seating/internal/service"
	"github.com/iliyamo/exam-seating/internal/telemetry"
)

const version = "1.0.0"

func main() {
	config.LoadDotEnv()
	cfg := config.Load() // Load environment config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing (optional)
	if tc := config.LoadTraceConfig(); tc.Enabled {
		shutdown, err := telemetry.Init(tc.ServiceName, version, tc.OutputFile)
		if err != nil {
			log.Fatalf("tracing init: %v", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	// Database
	db, err := database.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatalf("db open (%s): %v", cfg.DBDriver, err)
	}
	defer db.Close()
	if err := database.CreateSchema(db, cfg.DBDriver); err != nil {
		log.Fatal(err)
	}

	// Redis backs the exam lock, the read cache and rate limiting; all degrade without it.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: using in-process lock, cache and rate limit disabled")
	} else {
		defer rdb.Close()
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if rdb != nil {
		lc := config.LoadLockConfig()
		locker = lock.NewRedisLocker(rdb, lc.Prefix, lc.TTL, lc.Wait)
	}
	cache := middleware.NewExamCache(config.LoadCacheConfig(), rdb)

	opts := []service.Option{service.WithCache(cache)}
	qc := config.LoadQueueConfig()
	if qc.Enabled {
		opts = append(opts, service.WithPublisher(service.NewAMQPPublisher(qc.URL, qc.Queue)))
	}
	if qc.ConsumerEnabled {
		go func() {
			err := queue.StartAllocationConsumer(ctx, queue.ConsumerOptions{URL: qc.URL, Queue: qc.Queue, LogDir: qc.LogDir})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("allocation-consumer: stopped: %v", err)
			}
		}()
	}

	alloc := allocator.New(repository.NewAllocationStore(db, cfg.DBDriver))
	svc := service.NewSeatingService(alloc, locker, opts...)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("%s %s -> %d (%s) rid=%s", v.Method, v.URI, v.Status, v.Latency, middleware.RequestIDFrom(c))
			return nil
		},
	}))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db, cfg.DBDriver)), cfg.JWTSecret)
	router.RegisterSeating(e,
		handler.NewSeatingHandler(
			repository.NewExamRepo(db, cfg.DBDriver),
			repository.NewRosterRepo(db, cfg.DBDriver),
			repository.NewHistoryRepo(db, cfg.DBDriver),
		),
		handler.NewAllocationHandler(svc),
		cfg.JWTSecret,
		cache.Middleware(),
		middleware.NewRateLimit(config.LoadRateLimitConfig(), rdb),
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, cfg.DBDriver)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
