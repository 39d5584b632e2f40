package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(am *AuthManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(am.Middleware())
	r.GET("/api/v1/protected", func(c *gin.Context) {
		userID, _ := GetCurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func TestMiddlewareJWT(t *testing.T) {
	am := NewAuthManager(AuthConfig{
		JWTSecret: "middleware-test-secret",
		JWTExpiry: time.Hour,
		RateLimit: 1000,
	})
	router := newTestRouter(am)

	user, err := am.GetUserByUsername("admin")
	require.NoError(t, err)

	token, err := am.CreateJWTToken(user)
	require.NoError(t, err)

	t.Run("valid bearer token passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), user.ID)
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/protected", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed authorization header is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/protected", nil)
		req.Header.Set("Authorization", "NotBearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("health endpoint skips auth", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestMiddlewareAPIKey(t *testing.T) {
	am := NewAuthManager(AuthConfig{
		JWTSecret: "middleware-test-secret",
		RateLimit: 1000,
	})
	router := newTestRouter(am)

	user, err := am.CreateUser("apiuser", "api@example.com", []string{"user"})
	require.NoError(t, err)

	apiKey, err := am.CreateAPIKey(user.ID, "test-key", nil, 100, time.Hour)
	require.NoError(t, err)

	t.Run("valid API key header passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/protected", nil)
		req.Header.Set("X-API-Key", apiKey.Key)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("valid API key query param passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/protected?api_key="+apiKey.Key, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid API key is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/protected", nil)
		req.Header.Set("X-API-Key", "lq_invalid_key_value")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMiddlewareAnonymous(t *testing.T) {
	am := NewAuthManager(AuthConfig{
		JWTSecret:      "middleware-test-secret",
		RateLimit:      1000,
		AllowAnonymous: true,
	})
	router := newTestRouter(am)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareRateLimit(t *testing.T) {
	am := NewAuthManager(AuthConfig{
		JWTSecret: "middleware-test-secret",
		JWTExpiry: time.Hour,
		RateLimit: 3,
	})
	router := newTestRouter(am)

	user, err := am.GetUserByUsername("admin")
	require.NoError(t, err)
	token, err := am.CreateJWTToken(user)
	require.NoError(t, err)

	// Exhaust the per-minute budget
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	am := NewAuthManager(AuthConfig{
		JWTSecret: "role-test-secret",
		JWTExpiry: time.Hour,
		RateLimit: 1000,
	})

	r := gin.New()
	r.GET("/admin-only", am.Middleware(), am.RequireRole("admin"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	admin, err := am.GetUserByUsername("admin")
	require.NoError(t, err)
	adminToken, err := am.CreateJWTToken(admin)
	require.NoError(t, err)

	regular, err := am.CreateUser("regular", "regular@example.com", []string{"user"})
	require.NoError(t, err)
	regularToken, err := am.CreateJWTToken(regular)
	require.NoError(t, err)

	t.Run("admin role passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/admin-only", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("regular user is forbidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/admin-only", nil)
		req.Header.Set("Authorization", "Bearer "+regularToken)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unauthenticated is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/admin-only", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter()

	t.Run("allows under limit", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			assert.True(t, rl.Allow("client-a", 5))
		}
	})

	t.Run("blocks over limit", func(t *testing.T) {
		assert.False(t, rl.Allow("client-a", 5))
	})

	t.Run("tracks clients independently", func(t *testing.T) {
		assert.True(t, rl.Allow("client-b", 5))
	})

	t.Run("stats report clients", func(t *testing.T) {
		stats := rl.GetStats()
		assert.Equal(t, 2, stats["total_clients"])
	})
}
