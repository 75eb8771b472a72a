package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/infrastructure/auth"
	"github.com/clinic/backend/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthTestRouter(t *testing.T) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-0123456789abcdef",
		Issuer:                "clinic-identity",
		AccessTokenExpiration: time.Hour,
	})

	r := gin.New()
	r.Use(JWTAuthMiddleware(jwtService))
	r.GET("/api/v1/storage/transactions", func(c *gin.Context) {
		actor, ok := GetActor(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"actor": actor.Name})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/api/v1/storage/transactions/approve",
		RequireCapability(shared.CapabilityApproveTransaction),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	return r, jwtService
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	r, jwtService := newAuthTestRouter(t)

	token, err := jwtService.IssueToken(shared.Actor{
		ID:           uuid.New(),
		Name:         "kho01",
		Capabilities: []string{shared.CapabilityViewCost},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/storage/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kho01")
}

func TestJWTAuthMiddleware_MissingHeader(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/storage/transactions", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_TOKEN_INVALID")
}

func TestJWTAuthMiddleware_SkipsHealth(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_ExpiredToken(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	expiredService := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-0123456789abcdef",
		Issuer:                "clinic-identity",
		AccessTokenExpiration: -time.Minute,
	})
	token, err := expiredService.IssueToken(shared.Actor{ID: uuid.New(), Name: "kho01"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/storage/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_TOKEN_EXPIRED")
}

func TestRequireCapability(t *testing.T) {
	r, jwtService := newAuthTestRouter(t)

	t.Run("denies actor without capability", func(t *testing.T) {
		token, err := jwtService.IssueToken(shared.Actor{ID: uuid.New(), Name: "letan01"})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/transactions/approve", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_FORBIDDEN")
	})

	t.Run("allows actor with capability", func(t *testing.T) {
		token, err := jwtService.IssueToken(shared.Actor{
			ID:           uuid.New(),
			Name:         "quanly01",
			Capabilities: []string{shared.CapabilityApproveTransaction},
		})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/transactions/approve", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	t.Run("generates when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, w.Body.String())
		assert.Equal(t, w.Body.String(), w.Header().Get("X-Request-ID"))
	})

	t.Run("propagates incoming header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-123")
		r.ServeHTTP(w, req)
		assert.Equal(t, "req-123", w.Body.String())
	})
}
