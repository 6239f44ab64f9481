package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ctenarsky-denik/journal/internal/pkg/jwt"
	"github.com/ctenarsky-denik/journal/internal/pkg/redis"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
}

func TestNormalizeToken(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"":               "",
		"  ":             "",
		"abc":            "abc",
		"Bearer abc":     "abc",
		"bearer   abc  ": "abc",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeToken(in), in)
	}
}

func TestAuth(t *testing.T) {
	t.Parallel()
	tokens, err := jwt.NewManager("secret")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", Auth(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c)+"|"+CurrentEmail(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := tokens.Sign("u1", "u1@example.com", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1|u1@example.com", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	t.Parallel()
	tokens, err := jwt.NewManager("secret")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/who", OptionalAuth(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c))
	})

	for _, header := range []string{"", "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/who", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	}

	token, err := tokens.Sign("u7", "", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "u7", w.Body.String())
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	rdb := newRedis(t)

	r := gin.New()
	r.GET("/x", RateLimit(rdb, 2, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, w.Code)
	}
	// The three requests may straddle a second boundary; at most one is rejected.
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Contains(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes[2])
}

func TestIdempotence(t *testing.T) {
	t.Parallel()
	rdb := newRedis(t)

	calls := 0
	r := gin.New()
	r.Use(Idempotence(rdb, IdempotenceRules{Skip: []string{"/hook/"}, HeaderOnly: []string{"/generate"}}))
	r.POST("/ok", func(c *gin.Context) { calls++; c.Status(http.StatusOK) })
	r.POST("/fail", func(c *gin.Context) { calls++; c.Status(http.StatusBadRequest) })
	r.POST("/hook", func(c *gin.Context) { calls++; c.Status(http.StatusOK) })
	r.POST("/generate", func(c *gin.Context) { calls++; c.Status(http.StatusOK) })

	send := func(path, key string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"a":1}`))
		if key != "" {
			req.Header.Set(idempotenceHeader, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("/ok", "k1"))
	assert.Equal(t, http.StatusConflict, send("/ok", "k1"))
	assert.Equal(t, http.StatusOK, send("/ok", "k2"))

	assert.Equal(t, http.StatusBadRequest, send("/fail", "k3"))
	assert.Equal(t, http.StatusBadRequest, send("/fail", "k3"))

	assert.Equal(t, http.StatusOK, send("/hook", ""))
	assert.Equal(t, http.StatusOK, send("/hook", ""))

	// Identical bodies without a key are hashed and rejected on other paths.
	assert.Equal(t, http.StatusOK, send("/ok", ""))
	assert.Equal(t, http.StatusConflict, send("/ok", ""))

	// Header-only paths accept identical repeats unless a key is sent.
	assert.Equal(t, http.StatusOK, send("/generate", ""))
	assert.Equal(t, http.StatusOK, send("/generate", ""))
	assert.Equal(t, http.StatusOK, send("/generate", "k4"))
	assert.Equal(t, http.StatusConflict, send("/generate", "k4"))
	assert.Equal(t, 10, calls)
}
