package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedRouter(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.InfoLevel)
	engine := gin.New()
	engine.Use(Recovery(zap.New(core)))
	engine.Use(GinMiddleware(zap.New(core)))
	return engine, logs
}

func TestGinMiddleware(t *testing.T) {
	t.Run("successful request logs at info", func(t *testing.T) {
		engine, logs := newObservedRouter(t)
		engine.GET("/webhooks/twilio", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhooks/twilio?foo=bar", nil))

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.Equal(t, "request completed", entries[0].Message)

		fields := entries[0].ContextMap()
		assert.Equal(t, "GET", fields["method"])
		assert.Equal(t, "/webhooks/twilio", fields["path"])
		assert.Equal(t, int64(http.StatusOK), fields["status"])
		assert.Equal(t, "foo=bar", fields["query"])
	})

	t.Run("server error logs at error", func(t *testing.T) {
		engine, logs := newObservedRouter(t)
		engine.GET("/boom", func(c *gin.Context) {
			c.String(http.StatusInternalServerError, "boom")
		})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	})

	t.Run("client error logs at warn", func(t *testing.T) {
		engine, logs := newObservedRouter(t)
		engine.GET("/missing", func(c *gin.Context) {
			c.String(http.StatusNotFound, "nope")
		})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	})

	t.Run("request id set by earlier middleware is carried", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		core, logs := observer.New(zapcore.InfoLevel)
		engine := gin.New()
		engine.Use(func(c *gin.Context) {
			c.Set("request_id", "req-42")
			c.Next()
		})
		engine.Use(GinMiddleware(zap.New(core)))
		engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
	})
}

func TestRecovery(t *testing.T) {
	engine, logs := newObservedRouter(t)
	engine.GET("/panic", func(c *gin.Context) {
		panic("malformed callback body")
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// Recovery logs the panic, the middleware logs the resulting 500
	entries := logs.FilterMessage("panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "malformed callback body", entries[0].ContextMap()["panic"])
	assert.Equal(t, "/panic", entries[0].ContextMap()["path"])
}
