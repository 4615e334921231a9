package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"marlin/internal/backend"
	exemptionhandler "marlin/internal/exemption/handler"
	exemptionmetrics "marlin/internal/exemption/metrics"
	"marlin/internal/exemption/service"
	"marlin/internal/exemption/store/session"
	jwttoken "marlin/internal/jwt_token"
	"marlin/internal/platform/config"
	"marlin/internal/platform/httpserver"
	"marlin/internal/platform/kafka"
	"marlin/internal/platform/logger"
	"marlin/internal/platform/metrics"
	"marlin/internal/platform/middleware"
	"marlin/internal/platform/redis"
	"marlin/pkg/platform/audit/publisher"
	auditmem "marlin/pkg/platform/audit/store/memory"
	"marlin/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session store: Redis when configured, in-memory otherwise.
	var store session.Store
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		store = session.NewRedisStore(redisClient.Client, session.WithTTL(cfg.SessionTTL))
		log.Info("session store: redis")
	} else {
		store = session.NewInMemoryStore()
		log.Info("session store: in-memory")
	}

	// Audit sink: Kafka when brokers are configured, in-memory otherwise.
	var auditPublisher *publisher.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, kafka.WithLogger(log))
		if err != nil {
			log.Error("kafka producer failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		auditPublisher = publisher.NewPublisher(producer, publisher.WithAsyncBuffer(256))
	} else {
		auditPublisher = publisher.NewPublisher(auditmem.NewInMemoryStore())
	}
	defer auditPublisher.Close()

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(exemptionmetrics.New()),
		service.WithAuditPublisher(auditPublisher),
	}
	if cfg.Backend.BaseURL != "" {
		svcOpts = append(svcOpts, service.WithBackend(
			backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Token, backend.WithLogger(log))))
	}
	svc := service.New(session.NewCache(store), svcOpts...)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "marlin", "marlin-api")
	handler := exemptionhandler.New(svc, log, jwttoken.NewJWTServiceAdapter(jwtService))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Instrument(metrics.NewHTTP()))
	router.Use(middleware.Session)
	handler.Register(router)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				status["status"] = "degraded"
				status["redis"] = err.Error()
				httputil.WriteJSON(w, http.StatusServiceUnavailable, status)
				return
			}
			status["redis"] = "ok"
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting marlin", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
