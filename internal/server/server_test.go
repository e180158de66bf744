package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubDB struct {
	status string
}

func (s stubDB) Health() map[string]string { return map[string]string{"status": s.status} }
func (s stubDB) Close() error { return nil }
func (s stubDB) GetDB() *gorm.DB { return nil }

func newTestRouter(status string) *gin.Engine {
	cfg := config.Config{Port: "0", JWTSecret: "secret", JWTExpireHours: 1, CORSOrigins: "*"}
	return newServer(cfg, stubDB{status: status}).RegisterRoutes()
}

func serve(r http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := serve(newTestRouter("up"), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"up"`)

	w = serve(newTestRouter("down"), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter("up")
	serve(r, http.MethodGet, "/health", "")

	w := serve(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stackit_http_request_duration_seconds")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter("up")
	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/me"},
		{http.MethodPost, "/api/questions"},
		{http.MethodPut, "/api/questions/q1"},
		{http.MethodDelete, "/api/questions/q1"},
		{http.MethodPost, "/api/questions/q1/answers"},
		{http.MethodPost, "/api/questions/q1/comments"},
		{http.MethodPut, "/api/answers/a1"},
		{http.MethodDelete, "/api/answers/a1"},
		{http.MethodPost, "/api/answers/a1/vote"},
		{http.MethodPost, "/api/answers/a1/accept"},
		{http.MethodPost, "/api/answers/a1/comments"},
		{http.MethodPut, "/api/users/u1/role"},
	}
	for _, rt := range routes {
		w := serve(r, rt.method, rt.path, `{}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", rt.method, rt.path)
	}
}

func TestListQuestionsRejectsBadQuery(t *testing.T) {
	w := serve(newTestRouter("up"), http.MethodGet, "/api/questions?sortBy=random", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "sortBy")
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/questions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	newTestRouter("up").ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
