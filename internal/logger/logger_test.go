package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, observed := observer.New(zapcore.DebugLevel)
	t.Cleanup(Replace(zap.New(core)))
	return observed
}

func TestInit(t *testing.T) {
	t.Cleanup(Replace(nil))

	t.Run("Production", func(t *testing.T) {
		Init("production")
		require.NotNil(t, log)
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("Development", func(t *testing.T) {
		Init("development")
		require.NotNil(t, log)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("LOG_LEVEL override", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "warn")
		Init("development")
		assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("Unparseable LOG_LEVEL is ignored", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "loud")
		Init("production")
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	})
}

func TestL(t *testing.T) {
	t.Cleanup(Replace(nil))
	t.Setenv("APP_ENV", "test")

	assert.NotNil(t, L())
	assert.NotNil(t, log)
}

func TestRequestIDFrom(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFrom(ctx))
	assert.Equal(t, "", RequestIDFrom(context.Background()))
}

func TestFromCtx(t *testing.T) {
	observed := observe(t)

	t.Run("Request id", func(t *testing.T) {
		FromCtx(WithRequestID(context.Background(), "req-abc-123")).Info("with id")

		logs := observed.TakeAll()
		require.Len(t, logs, 1)
		assert.Equal(t, "req-abc-123", logs[0].ContextMap()["request_id"])
	})

	t.Run("Bare context", func(t *testing.T) {
		FromCtx(context.Background()).Info("without id")

		logs := observed.TakeAll()
		require.Len(t, logs, 1)
		assert.NotContains(t, logs[0].ContextMap(), "request_id")
	})

	t.Run("Bound fields accumulate", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-9")
		ctx = WithFields(ctx, zap.Int64("user_id", 7))
		ctx = WithFields(ctx, zap.String("role", "Customer"))

		FromCtx(ctx).Info("placing order")

		logs := observed.TakeAll()
		require.Len(t, logs, 1)
		fields := logs[0].ContextMap()
		assert.Equal(t, "req-9", fields["request_id"])
		assert.EqualValues(t, 7, fields["user_id"])
		assert.Equal(t, "Customer", fields["role"])
	})

	t.Run("Parent context is not mutated", func(t *testing.T) {
		parent := WithFields(context.Background(), zap.Int64("user_id", 1))
		_ = WithFields(parent, zap.String("extra", "x"))

		FromCtx(parent).Info("parent")

		logs := observed.TakeAll()
		require.Len(t, logs, 1)
		assert.NotContains(t, logs[0].ContextMap(), "extra")
	})
}

func TestSync(t *testing.T) {
	// Just ensure it doesn't panic.
	assert.NotPanics(t, func() {
		Sync()
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify Request ID is injected into context
		rid := RequestIDFrom(r.Context())
		assert.NotEmpty(t, rid)
	})

	handler := RequestIDMiddleware(nextHandler)

	t.Run("Generates ID when missing", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("Preserves existing ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		existingID := "test-id-123"
		req.Header.Set("X-Request-ID", existingID)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, existingID, w.Header().Get("X-Request-ID"))
	})
}

func TestLoggingMiddleware(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	t.Cleanup(Replace(zap.New(core)))

	t.Run("Logs success at info", func(t *testing.T) {
		handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))
		req := httptest.NewRequest("POST", "/orders", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		logs := observed.TakeAll()
		assert.Len(t, logs, 1)
		assert.Equal(t, "incoming request", logs[0].Message)
		assert.Equal(t, "/orders", logs[0].ContextMap()["path"])
		assert.EqualValues(t, http.StatusCreated, logs[0].ContextMap()["status"])
	})

	t.Run("Logs client errors at warn", func(t *testing.T) {
		handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/vouchers/apply", nil))

		logs := observed.TakeAll()
		assert.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("Logs server errors at error", func(t *testing.T) {
		handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/orders/1", nil))

		logs := observed.TakeAll()
		assert.Len(t, logs, 1)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})

	t.Run("Hijack unsupported by recorder", func(t *testing.T) {
		rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
		_, _, err := rec.Hijack()
		assert.Error(t, err)
	})
}

func TestReplace(t *testing.T) {
	prev := log
	core, observed := observer.New(zapcore.DebugLevel)
	restore := Replace(zap.New(core))

	L().Debug("captured")
	assert.Equal(t, 1, observed.Len())

	restore()
	assert.True(t, prev == log)
}
