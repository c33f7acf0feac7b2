package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	pb "astroconsult-backend/api/v1"
	"astroconsult-backend/internal/app"
	api "astroconsult-backend/internal/api/grpc"
	"astroconsult-backend/internal/api/grpc/interceptor"
	httpapi "astroconsult-backend/internal/api/http"
	"astroconsult-backend/internal/config"
	"astroconsult-backend/internal/jobs"
	"astroconsult-backend/internal/logger"
	"astroconsult-backend/internal/scheduler"
	"astroconsult-backend/internal/security"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting AstroConsult settlement backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "grpc_address", cfg.GetServerAddress(), "http_address", cfg.GetHTTPAddress())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("Server exited with error", "error", err)
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("Server stopped. Goodbye!")
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Background workers stop with workerCtx; they are waited on before the store closes.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	defer func() {
		cancelWorkers()
		workers.Wait()
	}()

	workers.Add(1)
	go func() {
		defer workers.Done()
		a.Dispatcher.Run(workerCtx)
	}()

	tokens := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	if cfg.Security.ServiceKeyHash == "" {
		logger.Warn("No service key configured; EndSession calls from the platform service will be rejected")
	}
	authInterceptor := interceptor.NewAuthInterceptor(tokens, security.NewServiceKeyVerifier(cfg.Security.ServiceKeyHash))

	limiter := interceptor.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, 10*time.Minute)
	workers.Add(1)
	go func() {
		defer workers.Done()
		limiter.RunCleanup(workerCtx)
	}()

	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		interceptor.Observability(),
		authInterceptor.Unary(),
		limiter.Unary(),
		interceptor.NewValidationInterceptor().Unary(),
	))
	pb.RegisterSessionServiceServer(s, api.NewSessionHandler(a.Sessions, a.Settlement))
	pb.RegisterWalletServiceServer(s, api.NewWalletHandler(a.Wallet, a.Recharge))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Register reflection service for grpcurl
	reflection.Register(s)

	router := mux.NewRouter()
	httpapi.RegisterOpsRoutes(router, httpapi.NewOpsHandler(a.Store))
	httpServer := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.NewScheduler(workerCtx, jobs.NewJobRunner(a.JobServices(), cfg))
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
		errCh <- s.Serve(lis)
	}()
	go func() {
		logger.Info("HTTP ops server listening", "address", cfg.GetHTTPAddress())
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err = <-errCh:
		logger.Error("Server failed", "error", err)
	}

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("HTTP server shutdown failed", "error", shutdownErr)
	}
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		logger.Warn("Graceful stop timed out; closing open connections")
		s.Stop()
	}
	return err
}
