//go:build integration

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Sternrassler/rental-cache/internal/testutil"
	"github.com/Sternrassler/rental-cache/pkg/cache"
)

func TestAdminServer_Integration(t *testing.T) {
	redisClient, cleanup := testutil.StartRedisContainer(t)
	defer cleanup()

	cfg := cache.DefaultConfig(redisClient)
	cfg.Logger = testutil.NopLogger()
	svc, err := cache.New(cfg)
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		key := cache.NewKey("analytics:payments-summary", "2024-01", "P"+strconv.Itoa(i)).String()
		if err := svc.Set(ctx, key, i, time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	server := httptest.NewServer(newMux(svc, testutil.NopLogger()))
	defer server.Close()

	resp, err := http.Get(server.URL + "/ready")
	if err != nil {
		t.Fatalf("GET /ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/admin/invalidate?pattern=analytics:payments-summary:*", "", nil)
	if err != nil {
		t.Fatalf("POST /admin/invalidate: %v", err)
	}
	defer resp.Body.Close()

	var body invalidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Deleted != 50 {
		t.Errorf("deleted = %d, want 50", body.Deleted)
	}
}
