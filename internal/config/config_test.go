package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "testuser")
		t.Setenv("DB_PASSWORD", "testpass")
		t.Setenv("DB_NAME", "testdb")
		t.Setenv("DB_PORT", "5432")
		t.Setenv("APP_PORT", "9090")
		t.Setenv("APP_ENV", "test")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("PAYMENT_CALLBACK_TOKEN", "cb-token")
		t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
		t.Setenv("KAFKA_TOPIC", "orders")
		t.Setenv("TX_MAX_RETRIES", "5")
		t.Setenv("NOTIFY_QUEUE_SIZE", "")

		cfg := LoadConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "testuser", cfg.DBUser)
		assert.Equal(t, "testpass", cfg.DBPassword)
		assert.Equal(t, "testdb", cfg.DBName)
		assert.Equal(t, "5432", cfg.DBPort)
		assert.Equal(t, "9090", cfg.AppPort)
		assert.Equal(t, "test", cfg.AppEnv)
		assert.Equal(t, "secret", cfg.JWTSecret)
		assert.Equal(t, "cb-token", cfg.PaymentToken)
		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, "orders", cfg.KafkaTopic)
		assert.Equal(t, 5, cfg.TxMaxRetries)
		assert.Equal(t, 256, cfg.NotifyQueueSize)
	})

	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("APP_PORT", "")
		t.Setenv("KAFKA_BROKERS", "")
		t.Setenv("KAFKA_TOPIC", "")
		t.Setenv("TX_MAX_RETRIES", "nope")

		cfg := LoadConfig()

		assert.Equal(t, "8080", cfg.AppPort)
		assert.Empty(t, cfg.KafkaBrokers)
		assert.Equal(t, "storefront.order-events", cfg.KafkaTopic)
		assert.Equal(t, 3, cfg.TxMaxRetries)
	})
}
