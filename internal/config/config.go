// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string   `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string   `yaml:"storage_connection_string" env:"DATABASE_URL" env-required:"true"`
	MigrationsPath          string   `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	AllowedOrigins          []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:5173,http://localhost:3000"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Stripe                  `yaml:"stripe"`
	Subscription            `yaml:"subscription"`
	Google                  Google   `yaml:"google"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	AuthRPS     float64       `yaml:"auth_rps" env:"HTTP_AUTH_RPS" env-default:"5"`
	AuthBurst   int           `yaml:"auth_burst" env:"HTTP_AUTH_BURST" env-default:"10"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес отключает кеш.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	MaxRetries   int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env:"REDIS_TIMEOUT" env-default:"3s"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"1h"`
}

// RabbitMQ структура для настройки публикации событий.
// Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"billing"`
	Retries    int           `yaml:"retries" env:"RABBITMQ_RETRIES" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"2s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY" env-required:"true"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL" env-default:"30m"`
}

// Stripe структура с ключами платёжного провайдера
type Stripe struct {
	SecretKey      string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret  string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	PremiumPriceID string `yaml:"premium_price_id" env:"STRIPE_PREMIUM_PRICE_ID"`
}

// Google настройки входа через Google. Пустой ClientID отключает вход.
type Google struct {
	ClientID     string        `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string        `yaml:"redirect_url" env:"GOOGLE_REDIRECT_URI"`
	Scopes       []string      `yaml:"scopes" env:"GOOGLE_OAUTH_SCOPES" env-separator:"," env-default:"openid,email,profile"`
	StateTTL     time.Duration `yaml:"state_ttl" env:"GOOGLE_OAUTH_STATE_TTL" env-default:"10m"`
}

// Enabled сообщает, настроен ли вход через Google.
func (g Google) Enabled() bool {
	return g.ClientID != ""
}

// Subscription структура с настройками бесплатного уровня
type Subscription struct {
	FreeTierTodoLimit int `yaml:"free_tier_todo_limit" env:"FREE_TIER_TODO_LIMIT" env-default:"5"`
	// MaxFailedPayments — число подряд неуспешных оплат, после которого
	// пользователь переводится на бесплатный уровень. 0 — никогда.
	MaxFailedPayments int `yaml:"max_failed_payments" env:"MAX_FAILED_PAYMENTS" env-default:"0"`
}

// MustLoad функция для загрузки конфига. Если задан CONFIG_PATH, читается YAML-файл
// (переменные окружения имеют приоритет), иначе конфиг собирается только из окружения.
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла configPath или, если путь пустой, из окружения.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &cfg, cfg.validate()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
	}
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.FreeTierTodoLimit < 0 {
		return fmt.Errorf("config: free_tier_todo_limit must not be negative")
	}
	if c.MaxFailedPayments < 0 {
		return fmt.Errorf("config: max_failed_payments must not be negative")
	}
	if c.Google.Enabled() && (c.Google.ClientSecret == "" || c.Google.RedirectURL == "") {
		return fmt.Errorf("config: google client secret and redirect url are required when client id is set")
	}
	return nil
}

// DefaultOrigin возвращает первый разрешённый origin фронтенда, от которого
// строятся адреса возврата из платёжных страниц.
func (c *Config) DefaultOrigin() string {
	if len(c.AllowedOrigins) == 0 {
		return "http://localhost:5173"
	}
	return c.AllowedOrigins[0]
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"MigrationsPath: %s\n"+
			"AllowedOrigins: %v\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"RabbitMQ:\n"+
			"  Exchange: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n"+
			"Subscription:\n"+
			"  FreeTierTodoLimit: %d\n"+
			"  MaxFailedPayments: %d\n"+
			"Google:\n"+
			"  Enabled: %t\n",
		c.Env,
		c.MigrationsPath,
		c.AllowedOrigins,
		c.AddressRedis,
		c.DB,
		c.Exchange,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.TokenTTL,
		c.FreeTierTodoLimit,
		c.MaxFailedPayments,
		c.Google.Enabled(),
	)
}
