package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"authservice/internal/models"
	"authservice/internal/repositories"
	"authservice/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type loaderStub struct {
	accounts map[uuid.UUID]*models.Account
	err      error
}

func (l *loaderStub) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	if l.err != nil {
		return nil, l.err
	}
	a, ok := l.accounts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return a, nil
}

func protectedRouter(sessions services.SessionService, loader AccountLoader, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(sessions, loader, zap.NewNop())}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		id, _ := AccountID(c)
		c.String(http.StatusOK, id.String())
	})
	r.GET("/me", handlers...)
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	sessions := services.NewSessionService("secret")
	acc := models.NewAccount(models.AccountFields{Email: "a@x.com"}, "h", time.Now())
	loader := &loaderStub{accounts: map[uuid.UUID]*models.Account{acc.ID: acc}}
	r := protectedRouter(sessions, loader)

	token, err := sessions.Issue(acc.ID, acc.LoginValidFrom)
	require.NoError(t, err)

	w := get(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, acc.ID.String(), w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "garbage").Code)

	stranger, _ := sessions.Issue(uuid.New(), time.Now())
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", stranger).Code)

	acc.LoginValidFrom = acc.LoginValidFrom.Add(time.Second)
	w = get(r, "/me", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "sign in again")
}

func TestAuthMiddleware_BasicSchemeRejected(t *testing.T) {
	r := protectedRouter(services.NewSessionService("secret"), &loaderStub{})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_StoreError(t *testing.T) {
	sessions := services.NewSessionService("secret")
	r := protectedRouter(sessions, &loaderStub{err: errors.New("db down")})
	token, _ := sessions.Issue(uuid.New(), time.Now())
	assert.Equal(t, http.StatusInternalServerError, get(r, "/me", token).Code)
}

func TestRequireRoles(t *testing.T) {
	sessions := services.NewSessionService("secret")
	user := models.NewAccount(models.AccountFields{Email: "u@x.com"}, "h", time.Now())
	admin := models.NewAccount(models.AccountFields{Email: "a@x.com"}, "h", time.Now())
	admin.Role = models.RoleAdmin
	loader := &loaderStub{accounts: map[uuid.UUID]*models.Account{user.ID: user, admin.ID: admin}}
	r := protectedRouter(sessions, loader, RequireRoles(models.RoleAdmin))

	ut, _ := sessions.Issue(user.ID, user.LoginValidFrom)
	at, _ := sessions.Issue(admin.ID, admin.LoginValidFrom)
	assert.Equal(t, http.StatusForbidden, get(r, "/me", ut).Code)
	assert.Equal(t, http.StatusOK, get(r, "/me", at).Code)

	bare := gin.New()
	bare.GET("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, get(bare, "/x", "").Code)
}

type memRateStore struct {
	mu      sync.Mutex
	counts  map[string]int64
	blocked map[string]time.Duration
}

func newMemRateStore() *memRateStore {
	return &memRateStore{counts: map[string]int64{}, blocked: map[string]time.Duration{}}
}

func (m *memRateStore) Blocked(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blocked[key], nil
}

func (m *memRateStore) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], window, nil
}

func (m *memRateStore) Block(_ context.Context, key string, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked[key] = d
	return nil
}

func TestRateLimit_BlocksOverLimit(t *testing.T) {
	store := newMemRateStore()
	r := gin.New()
	r.Use(RateLimit(store, RateLimitOptions{Limit: 2, Window: time.Minute, Block: 5 * time.Minute, Prefix: "rl"}, zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)

	w = get(r, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "300", w.Header().Get("Retry-After"))

	w = get(r, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Try again in")
}

func TestRateLimit_FailsOpenWithoutRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	r := gin.New()
	r.Use(RateLimit(NewRedisRateStore(rdb), RateLimitOptions{Limit: 1, Window: time.Minute, Block: time.Minute, Prefix: "rl"}, zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)
	}
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(), CORS("https://app.example.com"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/auth/verify", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	w := get(r, "/auth/verify?token=secret123&email=a@x.com", "")
	rid := w.Header().Get("X-Request-ID")
	assert.Len(t, rid, 16)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/auth/verify", fields["path"])
	assert.Equal(t, int64(http.StatusBadRequest), fields["status"])
	assert.Equal(t, rid, fields["request_id"])
	for _, v := range fields {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "secret123")
		}
	}
}
