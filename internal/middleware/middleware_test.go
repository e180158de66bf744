package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		id, ok := Identity(c)
		c.JSON(http.StatusOK, gin.H{"userId": id.UserID, "role": id.Role, "ok": ok})
	})
	r.GET("/", handlers...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	tok, err := tokens.Issue(models.User{ID: "u1", Role: models.RoleUser})
	require.NoError(t, err)

	t.Run("no token", func(t *testing.T) {
		w := do(newRouter(AuthMiddleware(tokens, nil)), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "No token provided")
	})

	t.Run("bad token", func(t *testing.T) {
		w := do(newRouter(AuthMiddleware(tokens, nil)), "garbage")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := do(newRouter(AuthMiddleware(tokens, nil)), tok)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"userId":"u1"`)
	})

	t.Run("lookup refreshes role", func(t *testing.T) {
		lookup := func(*gin.Context, string) (models.Role, error) { return models.RoleAdmin, nil }
		w := do(newRouter(AuthMiddleware(tokens, lookup)), tok)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"role":"ADMIN"`)
	})

	t.Run("deleted user", func(t *testing.T) {
		lookup := func(*gin.Context, string) (models.Role, error) { return "", gorm.ErrRecordNotFound }
		w := do(newRouter(AuthMiddleware(tokens, lookup)), tok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid token.")
	})

	t.Run("store outage", func(t *testing.T) {
		lookup := func(*gin.Context, string) (models.Role, error) { return "", errors.New("connection refused") }
		w := do(newRouter(AuthMiddleware(tokens, lookup)), tok)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "Internal server error")
	})
}

func TestOptionalAuth(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)

	w := do(newRouter(OptionalAuth(tokens, nil)), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":false`)

	w = do(newRouter(OptionalAuth(tokens, nil)), "garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":false`)

	tok, err := tokens.Issue(models.User{ID: "u1", Role: models.RoleUser})
	require.NoError(t, err)

	gone := func(*gin.Context, string) (models.Role, error) { return "", gorm.ErrRecordNotFound }
	w = do(newRouter(OptionalAuth(tokens, gone)), tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":false`)

	down := func(*gin.Context, string) (models.Role, error) { return "", errors.New("connection refused") }
	w = do(newRouter(OptionalAuth(tokens, down)), tok)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	userTok, _ := tokens.Issue(models.User{ID: "u1", Role: models.RoleUser})
	adminTok, _ := tokens.Issue(models.User{ID: "a1", Role: models.RoleAdmin})

	r := newRouter(AuthMiddleware(tokens, nil), RequireRole(models.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, do(r, userTok).Code)
	assert.Equal(t, http.StatusOK, do(r, adminTok).Code)
}
