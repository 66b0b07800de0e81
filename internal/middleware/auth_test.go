package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"taskdesk/internal/authz"
)

var secret = []byte("test-secret")

func signed(t *testing.T, claims *authz.Claims, key []byte) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func validClaims(role int) *authz.Claims {
	return &authz.Claims{
		UserID:    7,
		RoleID:    role,
		CompanyID: 3,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newRouter(extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(secret))
	handlers := append(extra, func(c *gin.Context) {
		v, _ := c.Get(authz.ActorContextKey)
		c.JSON(http.StatusOK, v)
	})
	r.GET("/tasks", handlers...)
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	expired := validClaims(authz.RoleWorker)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	noExp := validClaims(authz.RoleWorker)
	noExp.ExpiresAt = nil

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"valid", "/tasks", signed(t, validClaims(authz.RoleWorker), secret), http.StatusOK},
		{"missing header", "/tasks", "", http.StatusUnauthorized},
		{"wrong key", "/tasks", signed(t, validClaims(authz.RoleWorker), []byte("other")), http.StatusUnauthorized},
		{"expired", "/tasks", signed(t, expired, secret), http.StatusUnauthorized},
		{"no expiry", "/tasks", signed(t, noExp, secret), http.StatusUnauthorized},
		{"garbage", "/tasks", "abc.def.ghi", http.StatusUnauthorized},
		{"public path", "/healthz", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(r, tt.path, tt.token); w.Code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_WebSocketQueryToken(t *testing.T) {
	r := newRouter()
	tok := signed(t, validClaims(authz.RoleAdmin), secret)

	upgrade := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Upgrade", "websocket")
		req.Header.Set("Connection", "Upgrade")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	if code := upgrade("/tasks?access_token=" + tok); code != http.StatusOK {
		t.Fatalf("upgrade with query token: expected 200, got %d", code)
	}
	if code := upgrade("/tasks"); code != http.StatusUnauthorized {
		t.Fatalf("upgrade without token: expected 401, got %d", code)
	}
	// обычный запрос токен из query не принимает
	if w := do(r, "/tasks?access_token="+tok, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("plain request with query token: expected 401, got %d", w.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	r := newRouter(RequireAdmin())

	if w := do(r, "/tasks", signed(t, validClaims(authz.RoleWorker), secret)); w.Code != http.StatusForbidden {
		t.Fatalf("worker: expected 403, got %d", w.Code)
	}
	if w := do(r, "/tasks", signed(t, validClaims(authz.RoleAdmin), secret)); w.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", w.Code)
	}
}
