package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tribu-research/challenge-backend/internal/auth"
)

func newRouter(svc *auth.JWTService, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(zap.NewNop()), CORS("https://vote.example.com"))
	handlers := append([]gin.HandlerFunc{JWT(svc)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id.String())
	})
	r.GET("/me", handlers...)
	return r
}

func TestJWTSetsUserID(t *testing.T) {
	svc := auth.NewJWTService("secret", "", 1)
	id := uuid.New()
	token, err := svc.Generate(id, "", auth.RoleResearcher)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	newRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.String(), w.Body.String())
}

func TestJWTAcceptsQueryToken(t *testing.T) {
	svc := auth.NewJWTService("secret", "", 1)
	token, err := svc.Generate(uuid.New(), "", auth.RoleResearcher)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTRejectsMissingToken(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(auth.NewJWTService("secret", "", 1)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	svc := auth.NewJWTService("secret", "", 1)
	r := newRouter(svc, RequireAdmin())

	researcher, err := svc.Generate(uuid.New(), "", auth.RoleResearcher)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+researcher)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin, err := svc.Generate(uuid.New(), "", auth.RoleAdmin)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/me", nil)
	req.Header.Set("Origin", "https://vote.example.com")
	newRouter(auth.NewJWTService("secret", "", 1)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://vote.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPolicy(t *testing.T) {
	tests := []struct {
		list, origin, want string
	}{
		{"", "https://a.example.com", "*"},
		{"*", "https://a.example.com", "*"},
		{"https://a.example.com, https://b.example.com", "https://b.example.com", "https://b.example.com"},
		{"https://a.example.com", "https://evil.example.com", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, newCORSPolicy(tt.list).allow(tt.origin), "list=%q origin=%q", tt.list, tt.origin)
	}
}
