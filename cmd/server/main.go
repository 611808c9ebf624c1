package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"roofing-estimator/internal/config"
	"roofing-estimator/internal/database"
	"roofing-estimator/internal/handlers"
	"roofing-estimator/internal/kafka"
	"roofing-estimator/internal/logger"
	"roofing-estimator/internal/migrations"
	"roofing-estimator/internal/models"
	"roofing-estimator/internal/redis"
	"roofing-estimator/internal/services"
)

// Фабричные функции для подключения внешних сервисов (подменяемые в тестах).
var (
	dbConnect        = database.Connect
	redisConnect     = redis.Connect
	newKafkaProducer = kafka.NewProducer
	newKafkaConsumer = kafka.NewConsumer
	kafkaHealthCheck = handlers.CheckKafkaHealth
	runMigrations    = migrations.Up
	loadConfig       = config.Load
	newLogger        = logger.New
)

// application агрегирует собранные зависимости.
// redis, producer и consumer равны nil, если соответствующий сервис недоступен.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	mux      *http.ServeMux
	server   *http.Server
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting roofing estimator server...")

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.server.Shutdown(ctx); err != nil {
		app.log.WithError(err).Error("Server forced to shutdown")
	}
	app.close()
	app.log.Info("Server exited")
}

func (a *application) close() {
	if err := a.consumer.Stop(); err != nil {
		a.log.WithError(err).Warn("Failed to stop kafka consumer")
	}
	_ = a.producer.Close()
	_ = a.redis.Close()
	_ = a.db.Close()
}

// buildApplication создает все зависимости (подменяемые в тестах).
// База обязательна. Redis и Kafka опциональны: без них сервис работает без кеша и шлет уведомления напрямую.
func buildApplication() (*application, error) {
	cfg := loadConfig()
	log := newLogger(&cfg.Logger)

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.Database.MigrateOnBoot {
		if err := runMigrations(db.DB); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		log.Info("Database migrations applied")
	}

	app := &application{cfg: cfg, log: log, db: db}

	if cfg.Redis.Host != "" {
		redisClient, err := redisConnect(&cfg.Redis, log)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, caching and rate limiting disabled")
		} else {
			app.redis = redisClient
		}
	}

	if kafkaConfigured(&cfg.Kafka) {
		producer, err := newKafkaProducer(&cfg.Kafka, log)
		if err != nil {
			log.WithError(err).Warn("Kafka producer unavailable, lead notifications are sent synchronously")
		} else {
			app.producer = producer
			consumer, err := newKafkaConsumer(&cfg.Kafka, log)
			if err != nil {
				log.WithError(err).Warn("Kafka consumer unavailable, lead events will not be processed")
			} else {
				app.consumer = consumer
			}
		}
	}

	pricingService := services.NewPricingService(&cfg.Pricing)
	financingService := services.NewFinancingService()
	geocodingService := services.NewGeocodingService(app.redis, log, &cfg.Geocoding)
	roofDataService := services.NewRoofDataService(app.redis, log, &cfg.Solar)
	notificationService := services.NewNotificationService(services.NewLogNotifier(log), log)
	rateLimiter := services.NewRateLimiter(app.redis, log, &cfg.RateLimit)

	var events services.LeadEventPublisher
	if app.producer != nil {
		events = app.producer
	}
	leadService := services.NewLeadService(db, log, pricingService, app.redis, events, notificationService)

	var redisHealth handlers.RedisHealth
	var brokers []string
	if app.redis != nil {
		redisHealth = app.redis
	}
	if app.producer != nil {
		brokers = cfg.Kafka.Brokers
	}

	h := routeHandlers{
		estimates:  handlers.NewEstimateHandler(pricingService, geocodingService, roofDataService, financingService, log),
		leads:      handlers.NewLeadHandler(leadService, log),
		admin:      handlers.NewAdminHandler(leadService, log),
		health:     handlers.NewHealthHandler(db, redisHealth, brokers, kafkaHealthCheck),
		rateLimit:  handlers.NewRateLimitHandler(rateLimiter, log, &cfg.RateLimit),
		limiter:    rateLimiter,
		adminToken: cfg.Admin.APIToken,
	}

	if app.consumer != nil {
		registerEventHandlers(app.consumer, notificationService, log)
		if err := app.consumer.Start(); err != nil {
			app.close()
			return nil, fmt.Errorf("kafka consumer start: %w", err)
		}
	}

	app.mux = setupRoutes(h, log)
	app.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      app.mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return app, nil
}

func kafkaConfigured(cfg *config.KafkaConfig) bool {
	for _, b := range cfg.Brokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

// routeHandlers собирает обработчики для setupRoutes
type routeHandlers struct {
	estimates  *handlers.EstimateHandler
	leads      *handlers.LeadHandler
	admin      *handlers.AdminHandler
	health     *handlers.HealthHandler
	rateLimit  *handlers.RateLimitHandler
	limiter    handlers.MiddlewareLimiter
	adminToken string
}

// setupRoutes настраивает маршруты HTTP сервера
func setupRoutes(h routeHandlers, log *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	public := func(scope string, next http.HandlerFunc) http.HandlerFunc {
		return corsMiddleware(handlers.RateLimitMiddleware(h.limiter, scope, log, next))
	}
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return corsMiddleware(handlers.RequireAdminToken(h.adminToken, log, next))
	}

	// Health check endpoints
	mux.HandleFunc("/health", corsMiddleware(h.health.Health))
	mux.HandleFunc("/health/readiness", corsMiddleware(h.health.Readiness))
	mux.HandleFunc("/health/liveness", corsMiddleware(h.health.Liveness))

	// Калькулятор
	mux.HandleFunc("/api/geocode", public(services.RateScopeEstimate, h.estimates.Geocode))
	mux.HandleFunc("/api/roof-data", public(services.RateScopeEstimate, h.estimates.RoofData))
	mux.HandleFunc("/api/estimates/calculate", public(services.RateScopeEstimate, h.estimates.Calculate))
	mux.HandleFunc("/api/pricing/tiers", corsMiddleware(h.estimates.Tiers))
	mux.HandleFunc("/api/financing", public(services.RateScopeEstimate, h.estimates.Financing))

	// Заявки
	mux.HandleFunc("/api/leads", public(services.RateScopeLead, h.leads.Submit))
	mux.HandleFunc("/api/leads/manual-quote", public(services.RateScopeLead, h.leads.ManualQuote))

	// Админка
	mux.HandleFunc("/api/admin/leads", admin(h.admin.ListLeads))
	mux.HandleFunc("/api/admin/leads/", admin(handleAdminLeadRoute(h.admin)))

	// Rate limit status
	mux.HandleFunc("/api/rate-limit/status", corsMiddleware(h.rateLimit.Status))

	return mux
}

// handleAdminLeadRoute обрабатывает маршруты под /api/admin/leads/
func handleAdminLeadRoute(handler *handlers.AdminHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/admin/leads/"), "/")

		switch {
		case rest == "export":
			handler.ExportLeads(w, r)
		case rest == "stats":
			handler.Stats(w, r)
		case strings.HasSuffix(rest, "/status"):
			handler.UpdateStatus(w, r)
		case strings.HasSuffix(rest, "/notes"):
			handler.UpdateNotes(w, r)
		case strings.Contains(rest, "/"):
			writeErrorResponse(w, http.StatusNotFound, "Not found")
		default:
			switch r.Method {
			case http.MethodGet:
				handler.GetLead(w, r)
			case http.MethodDelete:
				handler.DeleteLead(w, r)
			default:
				writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		}
	}
}

// registerEventHandlers подписывает уведомления владельца на события лидов
func registerEventHandlers(consumer *kafka.Consumer, notifications *services.NotificationService, log *logger.Logger) {
	consumer.RegisterHandler(models.EventTypeLeadCreated, notifications.HandleEvent)
	consumer.RegisterHandler(models.EventTypeLeadManualQuoteRequested, notifications.HandleEvent)
	consumer.RegisterHandler(models.EventTypeLeadStatusChanged, func(ctx context.Context, event *models.Event) error {
		var data models.LeadStatusChangedData
		if err := event.DecodeData(&data); err != nil {
			return err
		}
		log.WithFields(map[string]interface{}{
			"lead_id":    data.LeadID,
			"old_status": data.OldStatus,
			"new_status": data.NewStatus,
		}).Info("Lead status changed")
		return nil
	})
}

// corsMiddleware и другие helper функции
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	type errorResponse struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
