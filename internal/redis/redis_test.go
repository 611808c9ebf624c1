package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"roofing-estimator/internal/config"
	"roofing-estimator/internal/logger"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/go-redis/redis/v8"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis, context.Context) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	log := logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
	return &Client{client: rdb, log: log}, mr, context.Background()
}

func TestConnectSuccess(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()
	log := logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
	cfg := &config.RedisConfig{Host: "127.0.0.1", Port: mr.Port(), DB: 0}

	client, err := Connect(cfg, log)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestConnectFailure(t *testing.T) {
	log := logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
	cfg := &config.RedisConfig{Host: "127.0.0.1", Port: "0", DB: 0}
	if _, err := Connect(cfg, log); err == nil {
		t.Fatalf("expected connect error")
	}
}

func TestCloseNil(t *testing.T) {
	var client *Client
	if err := client.Close(); err != nil {
		t.Fatalf("expected nil error on nil client close, got %v", err)
	}
}

func TestGenerateKey(t *testing.T) {
	key := GenerateKey("prefix", "123")
	if key != "prefix:123" {
		t.Fatalf("unexpected key: %s", key)
	}
}

func TestSetGetDelete_JSONRoundTrip(t *testing.T) {
	client, mr, ctx := newTestClient(t)

	type geocode struct {
		Lat              float64 `json:"lat"`
		Lng              float64 `json:"lng"`
		FormattedAddress string  `json:"formattedAddress"`
	}

	key := GenerateKey(KeyPrefixGeocode, "1 main st")
	want := geocode{Lat: 39.7817, Lng: -89.6501, FormattedAddress: "1 Main St, Springfield, IL"}
	if err := client.Set(ctx, key, want, time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	raw, err := mr.Get(key)
	if err != nil || raw != `{"lat":39.7817,"lng":-89.6501,"formattedAddress":"1 Main St, Springfield, IL"}` {
		t.Fatalf("value must be stored as JSON, got %q err=%v", raw, err)
	}
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	var got geocode
	if err := client.Get(ctx, key, &got); err != nil || got != want {
		t.Fatalf("get returned %+v err=%v", got, err)
	}

	if err := client.Delete(ctx, key); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := client.Get(ctx, key, &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss after delete, got %v", err)
	}
}

func TestGet_Errors(t *testing.T) {
	client, mr, ctx := newTestClient(t)

	var dest map[string]string
	if err := client.Get(ctx, "geocode:absent", &dest); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	_ = mr.Set("lead:broken", "{not json")
	err := client.Get(ctx, "lead:broken", &dest)
	if err == nil || errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected decode error, got %v", err)
	}

	mr.Close()
	if err := client.Get(ctx, "lead:any", &dest); err == nil || errors.Is(err, ErrCacheMiss) {
		t.Fatalf("connection failure must not look like a miss, got %v", err)
	}
}

func TestDeleteMultipleKeys(t *testing.T) {
	client, mr, ctx := newTestClient(t)
	_ = mr.Set("lead:1", "a")
	_ = mr.Set("lead:2", "b")

	if err := client.Delete(ctx, "lead:1", "lead:2"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if mr.Exists("lead:1") || mr.Exists("lead:2") {
		t.Fatalf("expected both keys removed")
	}
	if err := client.Delete(ctx); err != nil {
		t.Fatalf("delete without keys should be a no-op, got %v", err)
	}
}

func TestCoordinateKey(t *testing.T) {
	key := CoordinateKey(KeyPrefixRoof, 37.4219999, -122.0840575)
	if key != "roof:37.42200,-122.08406" {
		t.Fatalf("unexpected key: %s", key)
	}
}

func TestDeleteByPrefix(t *testing.T) {
	client, mr, ctx := newTestClient(t)

	_ = mr.Set("stats:1", "a")
	_ = mr.Set("stats:2", "b")
	_ = mr.Set("other:3", "c")

	if err := client.DeleteByPrefix(ctx, "stats"); err != nil {
		t.Fatalf("delete by prefix failed: %v", err)
	}

	if mr.Exists("stats:1") || mr.Exists("stats:2") {
		t.Fatalf("expected stats keys removed")
	}
	if !mr.Exists("other:3") {
		t.Fatalf("expected other key kept")
	}
}

func TestGetIntAndTTL(t *testing.T) {
	client, mr, ctx := newTestClient(t)

	client.client.Set(ctx, "counter", 5, 2*time.Second)

	val, err := client.GetInt(ctx, "counter")
	if err != nil {
		t.Fatalf("get int failed: %v", err)
	}
	if val != 5 {
		t.Fatalf("unexpected int value: %d", val)
	}

	ttl, err := client.TTL(ctx, "counter")
	if err != nil {
		t.Fatalf("ttl failed: %v", err)
	}
	if ttl <= 0 {
		t.Fatalf("expected positive ttl, got %v", ttl)
	}

	mr.FastForward(3 * time.Second)
	if _, err := client.GetInt(ctx, "counter"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss for expired key, got %v", err)
	}
}

func TestIncrAndExpire(t *testing.T) {
	client, mr, ctx := newTestClient(t)
	val, err := client.Incr(ctx, "hits")
	if err != nil || val != 1 {
		t.Fatalf("expected incr to 1, got %d err=%v", val, err)
	}
	if err := client.Expire(ctx, "hits", time.Second); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if _, err := client.GetInt(ctx, "hits"); err == nil {
		t.Fatalf("expected key expired")
	}
}

func TestHealth(t *testing.T) {
	client, _, ctx := newTestClient(t)
	if err := client.Health(ctx); err != nil {
		t.Fatalf("health failed: %v", err)
	}

	var nilClient *Client
	if err := nilClient.Health(ctx); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
