package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/booking-page-studio/internal/config"
)

func TestSetupMetricsExposesSyncMetrics(t *testing.T) {
	handler, syncMetrics := setupMetrics()
	if handler == nil || syncMetrics == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	syncMetrics.ObserveLoad("ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "bookingpage_sync_loads_total") {
		t.Fatalf("expected load counter to be exported")
	}
}

func TestReadinessCheckWithoutBackends(t *testing.T) {
	if err := readinessCheck(nil, nil)(context.Background()); err != nil {
		t.Fatalf("expected ready with no backends, got %v", err)
	}
}

func TestReadinessCheckReportsRedisFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	check := readinessCheck(client, nil)
	if err := check(context.Background()); err != nil {
		t.Fatalf("expected ready, got %v", err)
	}

	mr.Close()
	err := check(context.Background())
	if err == nil || !strings.HasPrefix(err.Error(), "redis:") {
		t.Fatalf("expected redis error, got %v", err)
	}
}

func TestStartRateLimiterDisabled(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	if limiter := startRateLimiter(&appconfig.Config{RateLimitRPS: 0}, stop); limiter != nil {
		t.Fatalf("expected no limiter when rps is zero")
	}
}

func TestStartRateLimiterLimitsPerClient(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	limiter := startRateLimiter(&appconfig.Config{RateLimitRPS: 0.001, RateLimitBurst: 1}, stop)
	if limiter == nil {
		t.Fatalf("expected limiter")
	}
	if !limiter.Allow("192.0.2.1") {
		t.Fatalf("expected first request to pass")
	}
	if limiter.Allow("192.0.2.1") {
		t.Fatalf("expected second request to be limited")
	}
	if limiter.Len() != 1 {
		t.Fatalf("expected one tracked client, got %d", limiter.Len())
	}
}
