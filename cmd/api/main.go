package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Jamen1147/socialApp/internal/api"
	"github.com/Jamen1147/socialApp/internal/auth"
	"github.com/Jamen1147/socialApp/internal/config"
	"github.com/Jamen1147/socialApp/internal/domain"
	"github.com/Jamen1147/socialApp/internal/outbox"
	persistence "github.com/Jamen1147/socialApp/internal/persistence/postgres"
	httptransport "github.com/Jamen1147/socialApp/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	activities := persistence.NewRepository(pool)
	users := persistence.NewUserRepository(pool)
	service := domain.NewService(activities, users)

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	retention, err := outbox.NewRetention(pool, cfg.RetentionSchedule, cfg.OutboxRetention)
	if err != nil {
		log.Fatalf("invalid retention schedule: %v", err)
	}
	go retention.Start(ctx)

	tokens := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}
	handler := api.NewHandler(service, tokens)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(tokens, publicRoutes)

	chain := authMiddleware.Wrap(mux)
	chain = httptransport.WithCORS(cfg.CORSOrigin, chain)
	chain = httptransport.WithRequestLog(log.Default(), chain)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address: cfg.HTTPAddress,
	}, chain)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("social-app api listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	dispatcher.Wait()
}

// publicRoutes exempts registration, login, health, and metrics from the
// bearer token requirement. OPTIONS passes through for CORS preflight.
func publicRoutes(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return true
	}
	switch r.URL.Path {
	case "/healthz", "/metrics", "/v1/users/login":
		return true
	case "/v1/users":
		return r.Method == http.MethodPost
	}
	return false
}
