package main

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront-be/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock Driver for Testing ---
type mockDriver struct{}

func (m *mockDriver) Open(name string) (driver.Conn, error)         { return &mockConn{}, nil }
func (c *mockConn) Prepare(query string) (driver.Stmt, error)       { return &mockStmt{}, nil }
func (c *mockConn) Close() error                                    { return nil }
func (c *mockConn) Begin() (driver.Tx, error)                       { return nil, nil }
func (s *mockStmt) Close() error                                    { return nil }
func (s *mockStmt) NumInput() int                                   { return 0 }
func (s *mockStmt) Exec(args []driver.Value) (driver.Result, error) { return nil, nil }
func (s *mockStmt) Query(args []driver.Value) (driver.Rows, error)  { return nil, nil }

type mockConn struct{}
type mockStmt struct{}

func init() {
	sql.Register("mock_driver_main", &mockDriver{})
}

func testConfig() *config.Config {
	return &config.Config{
		AppPort:         "8080",
		AppEnv:          "test",
		JWTSecret:       "secret",
		PaymentToken:    "cb-token",
		TxMaxRetries:    3,
		NotifyQueueSize: 8,
	}
}

func TestNewServer(t *testing.T) {
	db, err := sql.Open("mock_driver_main", "")
	require.NoError(t, err)

	srv := newServer(testConfig(), db)
	require.NotNil(t, srv)
	assert.Nil(t, srv.kafka)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Close(ctx)
	})

	t.Run("Health Check", func(t *testing.T) {
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "OK")
	})

	t.Run("Payment Webhook requires token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader(`{}`))
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("WebSocket requires identity", func(t *testing.T) {
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Orders require identity", func(t *testing.T) {
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestNewServer_KafkaBridge(t *testing.T) {
	db, err := sql.Open("mock_driver_main", "")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.KafkaBrokers = []string{"127.0.0.1:1"}
	cfg.KafkaTopic = "storefront.order-events"

	// kgo connects lazily, so an unreachable seed broker still builds a client.
	srv := newServer(cfg, db)
	assert.NotNil(t, srv.kafka)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Close(ctx)
}

func TestRun(t *testing.T) {
	origInitDB := initDBFunc
	defer func() { initDBFunc = origInitDB }()
	initDBFunc = func(cfg *config.Config) *sql.DB {
		db, _ := sql.Open("mock_driver_main", "")
		return db
	}

	var gotAddr string
	origStartServer := startServerFunc
	defer func() { startServerFunc = origStartServer }()
	startServerFunc = func(ctx context.Context, addr string, handler http.Handler) error {
		gotAddr = addr
		assert.NotNil(t, handler)
		return nil
	}

	t.Setenv("APP_PORT", "8080")
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "user")
	t.Setenv("DB_PASSWORD", "pass")
	t.Setenv("DB_NAME", "db")
	t.Setenv("KAFKA_BROKERS", "")

	assert.NoError(t, run())
	assert.Equal(t, ":8080", gotAddr)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- listenAndServe(ctx, "127.0.0.1:0", http.NotFoundHandler())
	}()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
