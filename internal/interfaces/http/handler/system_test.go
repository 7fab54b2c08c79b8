package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/backend/internal/interfaces/http/router"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping() error { return p.err }

func healthRequest(t *testing.T, db Pinger) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	router.NewRouter(engine).Register(NewSystemHandler(db, "chatrelay")).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	return w
}

func TestSystemHandlerHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		w := healthRequest(t, &fakePinger{})
		require.Equal(t, http.StatusOK, w.Code)

		data := dataField(t, w)
		assert.Equal(t, "ok", data["status"])
		assert.Equal(t, "ok", data["database"])
		assert.Equal(t, "chatrelay", data["name"])
	})

	t.Run("degraded when the database is down", func(t *testing.T) {
		w := healthRequest(t, &fakePinger{err: errors.New("connection refused")})
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		data := dataField(t, w)
		assert.Equal(t, "degraded", data["status"])
		assert.Equal(t, "unreachable", data["database"])
	})
}
