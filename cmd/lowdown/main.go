package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CSroseX/lowdown/internal/admin"
	"github.com/CSroseX/lowdown/internal/auditlog"
	"github.com/CSroseX/lowdown/internal/lifecycle"
	"github.com/CSroseX/lowdown/internal/requestctx"
	"github.com/CSroseX/lowdown/internal/settings"
	"github.com/CSroseX/lowdown/internal/store"
	"github.com/CSroseX/lowdown/internal/telemetry"
)

func main() {
	development := envBool("LOWDOWN_DEVELOPMENT", false)

	audit := auditlog.NewStdout(development)
	metrics := telemetry.New()

	shutdownTracer := func(context.Context) error { return nil }
	if os.Getenv("OTEL_TRACES_EXPORTER") != "none" {
		shutdown, err := telemetry.InitTracer("lowdown")
		if err != nil {
			log.Fatalf("failed to start tracer: %v", err)
		}
		shutdownTracer = shutdown
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	s := store.New()

	var stats *telemetry.RedisStats
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		s.SetMirror(store.NewRedisMirror(client, 2*time.Second))
		stats = telemetry.NewRedisStats(client, 2*time.Second)

		if adminLayer, loadErr := store.LoadFromRedis(context.Background(), client); loadErr == nil {
			s.ResetAdmin(adminLayer)
		}
	}

	defaults := settings.Defaults()
	env := settings.ExtractLayerFromEnv(func(name string) (string, bool) {
		v, ok := os.LookupEnv(name)
		return v, ok
	})

	engine := lifecycle.NewEngine(lifecycle.Config{
		Store:     s,
		Defaults:  defaults,
		Env:       env,
		Forwarder: lifecycle.NewHTTPForwarder(nil),
		Audit:     audit,
		Metrics:   metrics,
		Stats:     stats,
		Tracer:    "lowdown",
	})

	adminHandler := admin.New(admin.Config{
		Store:       s,
		Defaults:    defaults,
		Env:         env,
		Audit:       audit,
		Metrics:     metrics,
		Stats:       stats,
		Development: development,
	})

	proxyHandler := requestctx.Middleware(telemetry.Tracing("lowdown-proxy")(engine))

	proxySrv := &http.Server{
		Addr:    bindAddr(envOrDefault("PROXY_BIND", "127.0.0.1"), envIntOrDefault("PROXY_PORT", 8080)),
		Handler: proxyHandler,
	}
	adminSrv := &http.Server{
		Addr:    bindAddr(envOrDefault("ADMIN_BIND", "127.0.0.1"), envIntOrDefault("ADMIN_PORT", 7070)),
		Handler: requestctx.Middleware(adminHandler),
	}

	errs := make(chan error, 2)
	go func() {
		fmt.Printf("lowdown proxy listening on %s\n", proxySrv.Addr)
		errs <- proxySrv.ListenAndServe()
	}()
	go func() {
		fmt.Printf("lowdown admin listening on %s\n", adminSrv.Addr)
		errs <- adminSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = proxySrv.Shutdown(ctx)
		_ = adminSrv.Shutdown(ctx)
	}
}

func bindAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid value for %s: %v", name, err)
	}
	return n
}

func envBool(name string, fallback bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
