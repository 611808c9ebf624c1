package main

import (
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"roofing-estimator/internal/config"
	"roofing-estimator/internal/database"
	"roofing-estimator/internal/kafka"
	"roofing-estimator/internal/logger"
	"roofing-estimator/internal/redis"
	"roofing-estimator/internal/services"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: "0", ReadTimeout: 5, WriteTimeout: 5},
		Logger: config.LoggerConfig{Level: "error", Format: "json"},
		Admin:  config.AdminConfig{APIToken: "secret"},
	}
}

// stubFactories подменяет фабрики и возвращает sqlmock для базы.
func stubFactories(t *testing.T, cfg *config.Config) sqlmock.Sqlmock {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	mock.MatchExpectationsInOrder(false)

	origLoad, origDB, origRedis := loadConfig, dbConnect, redisConnect
	origProducer, origConsumer, origMigrate := newKafkaProducer, newKafkaConsumer, runMigrations
	t.Cleanup(func() {
		loadConfig, dbConnect, redisConnect = origLoad, origDB, origRedis
		newKafkaProducer, newKafkaConsumer, runMigrations = origProducer, origConsumer, origMigrate
		_ = sqlDB.Close()
	})

	loadConfig = func() *config.Config { return cfg }
	dbConnect = func(*config.DatabaseConfig, *logger.Logger) (*database.DB, error) {
		return &database.DB{DB: sqlDB}, nil
	}
	runMigrations = func(*sql.DB) error { return nil }
	newKafkaProducer = func(*config.KafkaConfig, *logger.Logger) (*kafka.Producer, error) {
		return nil, errors.New("kafka down")
	}
	newKafkaConsumer = func(*config.KafkaConfig, *logger.Logger) (*kafka.Consumer, error) {
		return nil, errors.New("kafka down")
	}

	return mock
}

func TestBuildApplication_WithoutOptionalServices(t *testing.T) {
	stubFactories(t, testConfig())

	app, err := buildApplication()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if app.redis != nil || app.producer != nil || app.consumer != nil {
		t.Fatalf("optional services must stay nil")
	}
	if app.server.Addr != "127.0.0.1:0" {
		t.Fatalf("unexpected address %s", app.server.Addr)
	}
}

func TestBuildApplication_DBFailure(t *testing.T) {
	stubFactories(t, testConfig())
	dbConnect = func(*config.DatabaseConfig, *logger.Logger) (*database.DB, error) {
		return nil, errors.New("connection refused")
	}

	if _, err := buildApplication(); err == nil || !strings.Contains(err.Error(), "db connect") {
		t.Fatalf("expected db connect error, got %v", err)
	}
}

func TestBuildApplication_MigrationFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Database.MigrateOnBoot = true
	mock := stubFactories(t, cfg)
	mock.ExpectClose()

	migrated := false
	runMigrations = func(*sql.DB) error {
		migrated = true
		return errors.New("bad migration")
	}

	if _, err := buildApplication(); err == nil || !strings.Contains(err.Error(), "migrations") {
		t.Fatalf("expected migrations error, got %v", err)
	}
	if !migrated {
		t.Fatalf("migrations were not run")
	}
}

func TestBuildApplication_RedisAndKafkaFailuresDegrade(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.Host = "redis.invalid"
	cfg.Kafka.Brokers = []string{"kafka.invalid:9092"}
	stubFactories(t, cfg)

	redisCalled := false
	redisConnect = func(*config.RedisConfig, *logger.Logger) (*redis.Client, error) {
		redisCalled = true
		return nil, errors.New("redis down")
	}

	app, err := buildApplication()
	if err != nil {
		t.Fatalf("expected degraded start, got %v", err)
	}
	if !redisCalled {
		t.Fatalf("redis connect was not attempted")
	}
	if app.redis != nil || app.producer != nil {
		t.Fatalf("failed services must stay nil")
	}

	rr := httptest.NewRecorder()
	app.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if !strings.Contains(rr.Body.String(), `"redis":"disabled"`) || !strings.Contains(rr.Body.String(), `"kafka":"disabled"`) {
		t.Fatalf("expected disabled dependencies in %s", rr.Body.String())
	}
}

func TestRoutes(t *testing.T) {
	stubFactories(t, testConfig())
	app, err := buildApplication()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	id := uuid.NewString()
	cases := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		code   int
	}{
		{"liveness", http.MethodGet, "/health/liveness", "", "", http.StatusOK},
		{"tiers", http.MethodGet, "/api/pricing/tiers", "", "", http.StatusOK},
		{"calculate", http.MethodPost, "/api/estimates/calculate", `{"roofData":{"totalRoofArea":2000,"averagePitch":8}}`, "", http.StatusOK},
		{"financing terms", http.MethodGet, "/api/financing", "", "", http.StatusOK},
		{"preflight", http.MethodOptions, "/api/leads", "", "", http.StatusOK},
		{"admin without token", http.MethodGet, "/api/admin/leads", "", "", http.StatusUnauthorized},
		{"admin subtree without token", http.MethodGet, "/api/admin/leads/" + id, "", "", http.StatusUnauthorized},
		{"admin unknown nested path", http.MethodGet, "/api/admin/leads/" + id + "/history", "", "secret", http.StatusNotFound},
		{"admin unsupported method", http.MethodPatch, "/api/admin/leads/" + id, "", "secret", http.StatusMethodNotAllowed},
		{"rate limit status", http.MethodGet, "/api/rate-limit/status", "", "", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req *http.Request
			if tc.body != "" {
				req = httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			} else {
				req = httptest.NewRequest(tc.method, tc.path, nil)
			}
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rr := httptest.NewRecorder()
			app.mux.ServeHTTP(rr, req)

			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rr.Code, rr.Body.String())
			}
			if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Fatalf("missing CORS headers")
			}
		})
	}
}

func TestRoutes_RateLimitedScope(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Host: mr.Host(), Port: mr.Port()}
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 1, WindowSeconds: 60, KeyPrefix: "rl"}
	stubFactories(t, cfg)

	app, err := buildApplication()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = app.redis.Close() })

	body := `{"roofData":{"totalRoofArea":1500,"averagePitch":4}}`
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		app.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/estimates/calculate", strings.NewReader(body)))
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %v", codes)
	}

	// Справочник тарифов не ограничивается.
	rr := httptest.NewRecorder()
	app.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/pricing/tiers", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("tiers must not be rate limited, got %d", rr.Code)
	}
}

func TestRegisterEventHandlers(t *testing.T) {
	log := logger.NewNop()
	consumer := kafka.NewTestConsumer(nil, log)

	registerEventHandlers(consumer, services.NewNotificationService(services.NewLogNotifier(log), log), log)
	if consumer.HandlerCount() != 3 {
		t.Fatalf("expected 3 handlers, got %d", consumer.HandlerCount())
	}
}
