package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBPort       string
	AppPort      string
	AppEnv       string
	JWTSecret    string
	AllowOrigin  string
	PaymentToken string
	InternalKey  string

	KafkaBrokers []string
	KafkaTopic   string

	TxMaxRetries    int
	NotifyQueueSize int
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:       os.Getenv("DB_HOST"),
		DBUser:       os.Getenv("DB_USER"),
		DBPassword:   os.Getenv("DB_PASSWORD"),
		DBName:       os.Getenv("DB_NAME"),
		DBPort:       os.Getenv("DB_PORT"),
		AppPort:      os.Getenv("APP_PORT"),
		AppEnv:       os.Getenv("APP_ENV"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		AllowOrigin:  os.Getenv("ALLOWED_ORIGIN"),
		PaymentToken: os.Getenv("PAYMENT_CALLBACK_TOKEN"),
		InternalKey:  os.Getenv("INTERNAL_SECRET_KEY"),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   os.Getenv("KAFKA_TOPIC"),

		TxMaxRetries:    intOr(os.Getenv("TX_MAX_RETRIES"), 3),
		NotifyQueueSize: intOr(os.Getenv("NOTIFY_QUEUE_SIZE"), 256),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = "storefront.order-events"
	}

	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
