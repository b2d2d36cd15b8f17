package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCorrelationRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, GetCorrelationID(c))
	})
	return router
}

func TestCorrelationID(t *testing.T) {
	t.Run("Generates ID When Missing", func(t *testing.T) {
		router := setupCorrelationRouter()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)

		router.ServeHTTP(w, req)

		echoed := w.Header().Get(CorrelationIDHeader)
		_, err := uuid.Parse(echoed)
		require.NoError(t, err)
		assert.Equal(t, echoed, w.Body.String())
	})

	t.Run("Honors Valid Caller ID", func(t *testing.T) {
		router := setupCorrelationRouter()
		id := uuid.New().String()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(CorrelationIDHeader, id)

		router.ServeHTTP(w, req)

		assert.Equal(t, id, w.Header().Get(CorrelationIDHeader))
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("Replaces Malformed Caller ID", func(t *testing.T) {
		router := setupCorrelationRouter()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(CorrelationIDHeader, "not-a-uuid")

		router.ServeHTTP(w, req)

		echoed := w.Header().Get(CorrelationIDHeader)
		_, err := uuid.Parse(echoed)
		require.NoError(t, err)
		assert.NotEqual(t, "not-a-uuid", echoed)
	})
}
