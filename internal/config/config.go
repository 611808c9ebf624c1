package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Kafka     KafkaConfig     `json:"kafka"`
	Logger    LoggerConfig    `json:"logger"`
	Geocoding GeocodingConfig `json:"geocoding"`
	Solar     SolarConfig     `json:"solar"`
	Pricing   PricingConfig   `json:"pricing"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Admin     AdminConfig     `json:"admin"`
}

// ServerConfig представляет конфигурацию HTTP сервера
type ServerConfig struct {
	Port         string `json:"port"`
	Host         string `json:"host"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
}

// DatabaseConfig представляет конфигурацию базы данных
type DatabaseConfig struct {
	Host          string `json:"host"`
	Port          string `json:"port"`
	User          string `json:"user"`
	Password      string `json:"password"`
	DBName        string `json:"db_name"`
	SSLMode       string `json:"ssl_mode"`
	MigrateOnBoot bool   `json:"migrate_on_boot"`
}

// RedisConfig представляет конфигурацию Redis
type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// KafkaConfig представляет конфигурацию Kafka
type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	GroupID string   `json:"group_id"`
	Topics  Topics   `json:"topics"`
}

// Topics представляет список топиков Kafka
type Topics struct {
	Leads string `json:"leads"`
}

// LoggerConfig представляет конфигурацию логгера
type LoggerConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// GeocodingConfig описывает настройки геокодера
type GeocodingConfig struct {
	Provider       string `json:"provider"`        // offline | google
	GoogleAPIKey   string `json:"google_api_key"`  // ключ Google Maps Platform
	GoogleBaseURL  string `json:"google_base_url"` // https://maps.googleapis.com/maps/api/geocode/json
	TimeoutSeconds int    `json:"timeout_seconds"` // таймаут http-запроса
}

// SolarConfig описывает доступ к Solar API (buildingInsights) и статическим снимкам.
type SolarConfig struct {
	APIKey           string `json:"api_key"`
	BaseURL          string `json:"base_url"`
	StaticMapBaseURL string `json:"static_map_base_url"`
	MapsAPIKey       string `json:"maps_api_key"`
	TimeoutSeconds   int    `json:"timeout_seconds"`
	CacheTTLMinutes  int    `json:"cache_ttl_minutes"`
}

// PricingConfig хранит цену за квадрат (100 кв. футов) для каждого пакета.
type PricingConfig struct {
	GoodPerSquare   float64 `json:"good_per_square"`
	BetterPerSquare float64 `json:"better_per_square"`
	BestPerSquare   float64 `json:"best_per_square"`
}

// RateLimitConfig описывает настройки rate limiting
type RateLimitConfig struct {
	Enabled       bool   `json:"enabled"`
	Requests      int    `json:"requests"`
	WindowSeconds int    `json:"window_seconds"`
	KeyPrefix     string `json:"key_prefix"`
}

// AdminConfig хранит токен доступа к админским эндпоинтам.
type AdminConfig struct {
	APIToken string `json:"-"`
}

// Load загружает конфигурацию из переменных окружения.
// Локальный .env подхватывается, если он есть, и не перезаписывает уже заданные переменные.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "roofing_user"),
			Password:      getEnv("DB_PASSWORD", "roofing_pass"),
			DBName:        getEnv("DB_NAME", "roofing_estimator"),
			SSLMode:       getEnv("DB_SSL_MODE", "disable"),
			MigrateOnBoot: getEnvAsBool("DB_MIGRATE_ON_BOOT", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", "roofing-estimator"),
			Topics: Topics{
				Leads: getEnv("KAFKA_TOPIC_LEADS", "leads"),
			},
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		Geocoding: GeocodingConfig{
			Provider:       getEnv("GEOCODER_PROVIDER", "offline"),
			GoogleAPIKey:   getEnv("GOOGLE_MAPS_API_KEY", ""),
			GoogleBaseURL:  getEnv("GOOGLE_GEOCODE_BASE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
			TimeoutSeconds: getEnvAsInt("GEOCODER_TIMEOUT_SECONDS", 5),
		},
		Solar: SolarConfig{
			APIKey:           getEnv("GOOGLE_SOLAR_API_KEY", ""),
			BaseURL:          getEnv("GOOGLE_SOLAR_BASE_URL", "https://solar.googleapis.com/v1"),
			StaticMapBaseURL: getEnv("STATIC_MAP_BASE_URL", "https://maps.googleapis.com/maps/api/staticmap"),
			MapsAPIKey:       getEnv("GOOGLE_MAPS_API_KEY", ""),
			TimeoutSeconds:   getEnvAsInt("SOLAR_TIMEOUT_SECONDS", 10),
			CacheTTLMinutes:  getEnvAsInt("SOLAR_CACHE_TTL_MINUTES", 360),
		},
		Pricing: PricingConfig{
			GoodPerSquare:   getEnvAsFloat("PRICING_GOOD_PER_SQUARE", 500),
			BetterPerSquare: getEnvAsFloat("PRICING_BETTER_PER_SQUARE", 600),
			BestPerSquare:   getEnvAsFloat("PRICING_BEST_PER_SQUARE", 750),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", false),
			Requests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 60),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			KeyPrefix:     getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit"),
		},
		Admin: AdminConfig{
			APIToken: getEnv("ADMIN_API_TOKEN", ""),
		},
	}
}

// getEnv получает значение переменной окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt получает значение переменной окружения как int с значением по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat получает значение переменной окружения как float64 с значением по умолчанию
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool получает значение переменной окружения как bool с значением по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.ToLower(getEnv(key, ""))
	if valueStr == "true" || valueStr == "1" || valueStr == "yes" {
		return true
	}
	if valueStr == "false" || valueStr == "0" || valueStr == "no" {
		return false
	}
	return defaultValue
}
