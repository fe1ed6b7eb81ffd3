package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carewell/hospital-booking/internal/booking"
	"github.com/carewell/hospital-booking/internal/config"
	"github.com/carewell/hospital-booking/internal/db"
	"github.com/carewell/hospital-booking/internal/metrics"
	redisclient "github.com/carewell/hospital-booking/internal/redis"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("expiry-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running expiry worker in env=%s interval=%s payment_ttl=%s",
		cfg.Env, cfg.WorkerInterval, cfg.PaymentTTL)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, locker, cfg)
	m := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)

	metricsAddr := ":" + cfg.MetricsPort
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Printf("metrics listener error: %v", err)
		}
	}()

	// Run once at startup so a restart does not delay the sweep
	runOnce(rootCtx, svc, m)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping expiry worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, m)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, m *metrics.BookingMetrics) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.ExpireStalePayments(runCtx)
	if err != nil {
		log.Printf("expiry run error: %v", err)
		return
	}
	for i := 0; i < n; i++ {
		m.ObservePaymentExpired()
	}
	log.Printf("expiry run complete: expired=%d duration=%s", n, time.Since(start))
}
