package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	PayHere  PayHereConfig
	Booking  BookingConfig
	RabbitMQ RabbitMQConfig
	Admin    AdminConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type StorageConfig struct {
	Driver string
}

type RedisConfig struct {
	// Addr empty disables the cache, pubsub, idempotency and rate limiting.
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Name,
		p.SSLMode,
	)
}

type PayHereConfig struct {
	// Secret may be empty; the payment endpoints then report a
	// configuration error instead of the process refusing to start.
	Secret      string
	MerchantID  string
	Currency    string
	CheckoutURL string
	NotifyURL   string
	ReturnURL   string
	CancelURL   string
}

type BookingConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

type RabbitMQConfig struct {
	URL string
}

type AdminConfig struct {
	JWTSecret string
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := getEnv("SERVER_HOST", "localhost")

	serverPort, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: serverHost,
		Port: serverPort,
	}

	driver := strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres))
	if driver != StorageDriverPostgres && driver != StorageDriverMemory {
		return nil, fmt.Errorf("%s: invalid STORAGE_DRIVER %q", op, driver)
	}

	var postgresCfg PostgresConfig
	if driver == StorageDriverPostgres {
		postgresCfg, err = postgresFromEnv()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	payhereCfg := PayHereConfig{
		Secret:      os.Getenv("PAYHERE_SECRET"),
		MerchantID:  getEnv("PAYHERE_MERCHANT_ID", "1232005"),
		Currency:    getEnv("PAYHERE_CURRENCY", "LKR"),
		CheckoutURL: getEnv("PAYHERE_CHECKOUT_URL", "https://sandbox.payhere.lk/pay/checkout"),
		NotifyURL:   os.Getenv("PAYHERE_NOTIFY_URL"),
		ReturnURL:   os.Getenv("PAYHERE_RETURN_URL"),
		CancelURL:   os.Getenv("PAYHERE_CANCEL_URL"),
	}

	maxAttempts, err := getEnvInt("COMMIT_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("%s: COMMIT_MAX_ATTEMPTS must be at least 1", op)
	}

	backoff := 20 * time.Millisecond
	if v := os.Getenv("COMMIT_RETRY_BACKOFF"); v != "" {
		backoff, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid COMMIT_RETRY_BACKOFF: %w", op, err)
		}
	}

	return &Config{
		Server:   serverCfg,
		Storage:  StorageConfig{Driver: driver},
		Postgres: postgresCfg,
		Redis:    redisCfg,
		PayHere:  payhereCfg,
		Booking: BookingConfig{
			MaxAttempts:  maxAttempts,
			RetryBackoff: backoff,
		},
		RabbitMQ: RabbitMQConfig{URL: os.Getenv("RABBITMQ_URL")},
		Admin:    AdminConfig{JWTSecret: os.Getenv("ADMIN_JWT_SECRET")},
	}, nil
}

func postgresFromEnv() (PostgresConfig, error) {
	port, err := getEnvInt("POSTGRES_PORT", 5432)
	if err != nil {
		return PostgresConfig{}, err
	}

	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_USER")
	}

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_PASSWORD")
	}

	name := os.Getenv("POSTGRES_DB")
	if name == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_DB")
	}

	return PostgresConfig{
		User:     user,
		Password: password,
		Name:     name,
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     port,
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return n, nil
}
