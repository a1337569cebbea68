package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/windowgate/slidinglimit"
	"github.com/windowgate/slidinglimit/backends"
	"github.com/windowgate/slidinglimit/backends/memory"
	redisbackend "github.com/windowgate/slidinglimit/backends/redis"
	"github.com/windowgate/slidinglimit/config"
	"github.com/windowgate/slidinglimit/internal/healthchecker"
	"github.com/windowgate/slidinglimit/logging"
	"github.com/windowgate/slidinglimit/metrics"
	"github.com/windowgate/slidinglimit/rpc"
	"github.com/windowgate/slidinglimit/utils"
)

func newServeCmd(opts *options) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the rate-limit daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts.configPath, opts.backendOverride, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-address", "127.0.0.1:9090", "address to serve /metrics and /healthz on")
	return cmd
}

func runServe(ctx context.Context, configPath, backendOverride, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logging.New("info")

	cfg, err := config.Load(configPath)
	if err != nil {
		return exitErr(ExitConfigInvalid, fmt.Errorf("load config: %w", err))
	}

	backend, err := buildBackend(ctx, cfg.Server, backendOverride)
	if err != nil {
		return exitErr(ExitStoreUnreachable, fmt.Errorf("connect backend: %w", err))
	}
	defer func() { _ = backend.Close() }()

	met := metrics.New()

	limiter, err := ratelimit.New(
		ratelimit.WithBackend(backend),
		ratelimit.WithPolicySet(cfg.Policies),
		ratelimit.WithDeadlineBudget(time.Duration(cfg.Server.RedisTimeoutMs)*time.Millisecond),
		ratelimit.WithMetrics(met),
	)
	if err != nil {
		return exitErr(ExitFatal, fmt.Errorf("build rate limiter: %w", err))
	}
	defer func() { _ = limiter.Close() }()

	rpcSrv := rpc.NewServer(limiter)

	hc := healthchecker.New(backend, healthchecker.DefaultConfig(),
		func() { rpcSrv.SetReady(true) },
		func() { rpcSrv.SetReady(false) },
	)
	hc.Start()
	defer hc.Stop()

	httpSrv := newMetricsServer(metricsAddr, met, rpcSrv)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Component(log, "metrics").WithError(err).Error("metrics server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	rpcLog := logging.Component(log, "rpc")
	if err := rpc.Listen(ctx, cfg.Server.Address, rpcSrv, rpcLog); err != nil {
		return exitErr(ExitFatal, err)
	}
	return nil
}

func newMetricsServer(addr string, met *metrics.Metrics, rpcSrv *rpc.Server) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(met.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if rpcSrv.Health(r.Context()).Ready {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unavailable"))
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

// buildBackend selects the store adapter per the --backend override or, by
// default, Redis from the config's redis_url. Redis connection attempts
// are retried with backoff a bounded number of times at startup only —
// distinct from the core's rule against retrying a mutating script call,
// since this is a one-shot bootstrap connection, not an Acquire retry.
func buildBackend(ctx context.Context, server config.Server, override string) (backends.Backend, error) {
	switch override {
	case "memory":
		return memory.New(), nil
	case "redis", "":
		return connectRedisWithRetry(ctx, server, 5)
	default:
		return nil, fmt.Errorf("unknown backend %q", override)
	}
}

func connectRedisWithRetry(ctx context.Context, server config.Server, attempts int) (*redisbackend.Backend, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		b, err := redisbackend.New(redisbackend.Config{RedisURL: server.RedisURL})
		if err == nil {
			return b, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		backoff := time.Duration(200*(i+1)) * time.Millisecond
		if werr := utils.SleepOrWait(ctx, backoff, 50*time.Millisecond); werr != nil {
			return nil, werr
		}
	}
	return nil, lastErr
}
