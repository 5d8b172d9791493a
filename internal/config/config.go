package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Config содержит конфигурацию сервера генерации контента.
type Config struct {
	Env string `envconfig:"ENV" default:"development"`

	// HTTP
	ServerPort         string        `envconfig:"SERVER_PORT" default:"8080"`
	BasePath           string        `envconfig:"SERVER_BASE_PATH" default:"/api/gemini"`
	ReadTimeout        time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout       time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15m"` // батч из 20 элементов идёт минуты
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	MaxBodyBytes       int64         `envconfig:"SERVER_MAX_BODY_BYTES" default:"52428800"`

	// Логирование
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	// Текстовый вендор (OpenAI-совместимый API или Ollama)
	AIClientType  string        `envconfig:"AI_CLIENT_TYPE" default:"openai"`
	AIBaseURL     string        `envconfig:"AI_BASE_URL" default:"https://api.groq.com/openai/v1"`
	AIModel       string        `envconfig:"AI_MODEL" default:"llama-3.3-70b-versatile"`
	AITimeout     time.Duration `envconfig:"AI_TIMEOUT" default:"30s"`
	AITemperature float64       `envconfig:"AI_TEMPERATURE" default:"0.7"`
	AIMaxTokens   int           `envconfig:"AI_MAX_TOKENS" default:"2000"`
	AITopP        float64       `envconfig:"AI_TOP_P" default:"0.95"`
	OutputMode    string        `envconfig:"GENERATION_OUTPUT_MODE" default:"structured"`
	// Секретное поле БЕЗ envconfig тега
	AIAPIKey string `ignored:"true"`

	// Вендор изображений (Hugging Face Inference)
	ImageBaseURL        string        `envconfig:"IMAGE_BASE_URL" default:"https://router.huggingface.co/hf-inference/models"`
	ImageDefaultModel   string        `envconfig:"IMAGE_DEFAULT_MODEL" default:"turbo"`
	ImageTimeout        time.Duration `envconfig:"IMAGE_TIMEOUT" default:"60s"`
	ImageToImageTimeout time.Duration `envconfig:"IMAGE_TO_IMAGE_TIMEOUT" default:"90s"`
	ImageMaxDimension   int           `envconfig:"IMAGE_MAX_DIMENSION" default:"768"`
	ImageAPIKey         string        `ignored:"true"`

	// PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" default:"postgres"`
	DBName        string        `envconfig:"DB_NAME" default:"gamecontent"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	DBPassword    string        `ignored:"true"`

	// Redis (пустой адрес отключает кэш)
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"30s"`
	RedisPassword string        `ignored:"true"`

	// RabbitMQ (пустой URL отключает события)
	RabbitMQURL     string `envconfig:"RABBITMQ_URL" default:""`
	ContentExchange string `envconfig:"RABBITMQ_CONTENT_EXCHANGE" default:"content_events"`

	// Ограничения батчей
	BatchMaxCount      int `envconfig:"BATCH_MAX_COUNT" default:"20"`
	WorldMaxTotal      int `envconfig:"WORLD_MAX_TOTAL" default:"30"`
	VariationMaxCount  int `envconfig:"VARIATION_MAX_COUNT" default:"10"`
	ImageBatchMaxCount int `envconfig:"IMAGE_BATCH_MAX_COUNT" default:"10"`

	CatalogFile string `envconfig:"CATALOG_FILE" default:""`
}

// LoadConfig читает .env (если есть), переменные окружения и секреты.
func LoadConfig() (*Config, error) {
	// .env не обязателен, в контейнере переменные приходят из окружения
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	cfg.AIAPIKey = ReadSecretOrEnv("ai_api_key", "AI_API_KEY", "GROQ_API_KEY")
	cfg.ImageAPIKey = ReadSecretOrEnv("image_api_key", "IMAGE_API_KEY", "HUGGINGFACE_API_KEY")
	cfg.DBPassword = ReadSecretOrEnv("db_password", "DB_PASSWORD")
	cfg.RedisPassword = ReadSecretOrEnv("redis_password", "REDIS_PASSWORD")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет значения, без которых сервер не сможет стартовать.
// Отсутствие ключей вендоров сюда не входит: это ошибка конфигурации на уровне вызова.
func (c *Config) Validate() error {
	if c.BatchMaxCount < 1 || c.WorldMaxTotal < 1 || c.VariationMaxCount < 1 || c.ImageBatchMaxCount < 1 {
		return fmt.Errorf("batch limits must be positive")
	}
	if c.ImageMaxDimension < 64 {
		return fmt.Errorf("IMAGE_MAX_DIMENSION must be at least 64, got %d", c.ImageMaxDimension)
	}
	if !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("SERVER_BASE_PATH must start with '/', got %q", c.BasePath)
	}
	switch strings.ToLower(c.AIClientType) {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unsupported AI_CLIENT_TYPE %q", c.AIClientType)
	}
	return nil
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword), c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// MaskedDSN возвращает DSN с замаскированным паролем для логирования
func (c *Config) MaskedDSN() string {
	return fmt.Sprintf("postgres://%s:********@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// IsProduction - включает release-режим gin.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LogSummary пишет загруженную конфигурацию без секретов.
func (c *Config) LogSummary(logger *zap.Logger) {
	logger.Info("Configuration loaded",
		zap.String("env", c.Env),
		zap.String("port", c.ServerPort),
		zap.String("basePath", c.BasePath),
		zap.String("aiClientType", c.AIClientType),
		zap.String("aiBaseURL", c.AIBaseURL),
		zap.String("aiModel", c.AIModel),
		zap.Duration("aiTimeout", c.AITimeout),
		zap.String("outputMode", c.OutputMode),
		zap.String("imageBaseURL", c.ImageBaseURL),
		zap.String("imageDefaultModel", c.ImageDefaultModel),
		zap.String("dbDSN", c.MaskedDSN()),
		zap.Bool("redisEnabled", c.RedisAddr != ""),
		zap.Bool("rabbitmqEnabled", c.RabbitMQURL != ""),
		zap.Bool("aiKeyLoaded", c.AIAPIKey != ""),
		zap.Bool("imageKeyLoaded", c.ImageAPIKey != ""),
	)
}
