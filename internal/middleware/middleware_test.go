package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func do(router http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysResponse(t *testing.T) {
	_, client := newRedis(t)

	var calls int32
	router := gin.New()
	router.Use(IdempotencyMiddleware(client, nil))
	router.POST("/v1/settlements", func(c *gin.Context) {
		n := atomic.AddInt32(&calls, 1)
		c.String(http.StatusOK, "run-%d", n)
	})

	headers := map[string]string{idempotencyHeader: "abc"}
	first := do(router, http.MethodPost, "/v1/settlements", headers)
	second := do(router, http.MethodPost, "/v1/settlements", headers)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "run-1", first.Body.String())
	assert.Equal(t, "run-1", second.Body.String())
	assert.Equal(t, "true", second.Header().Get(replayedHeader))
	assert.Contains(t, second.Header().Get("Content-Type"), "text/plain")

	do(router, http.MethodPost, "/v1/settlements", map[string]string{idempotencyHeader: "other"})
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotency_SkipsConflictsAndReads(t *testing.T) {
	_, client := newRedis(t)

	var calls int32
	router := gin.New()
	router.Use(IdempotencyMiddleware(client, nil))
	router.POST("/busy", func(c *gin.Context) {
		atomic.AddInt32(&calls, 1)
		c.JSON(http.StatusConflict, gin.H{"error": "busy"})
	})
	router.GET("/plan", func(c *gin.Context) {
		atomic.AddInt32(&calls, 1)
		c.JSON(http.StatusOK, gin.H{})
	})

	headers := map[string]string{idempotencyHeader: "k"}
	do(router, http.MethodPost, "/busy", headers)
	do(router, http.MethodPost, "/busy", headers)
	do(router, http.MethodGet, "/plan", headers)
	do(router, http.MethodGet, "/plan", headers)

	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestIdempotency_RedisDownPassesThrough(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()

	router := gin.New()
	router.Use(IdempotencyMiddleware(client, nil))
	router.POST("/x", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := do(router, http.MethodPost, "/x", map[string]string{idempotencyHeader: "k"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCORS_Preflight(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware())
	router.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(router, http.MethodOptions, "/x", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), idempotencyHeader)
}

func TestLogger_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	router := gin.New()
	router.Use(Logger(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	do(router, http.MethodGet, "/ok?format=csv", nil)
	do(router, http.MethodGet, "/bad", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ok?format=csv", entries[0].ContextMap()["path"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTAuth(t *testing.T) {
	const secret = "s3cret"

	router := gin.New()
	router.Use(JWTAuth(secret))
	router.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(SubjectKey)) })

	testCases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, secret, jwt.SigningMethodHS256, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, secret, jwt.SigningMethodHS256, time.Now().Add(time.Hour)), http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(router, http.MethodGet, "/x", map[string]string{"Authorization": tc.header})
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, "ops", w.Body.String())
			}
		})
	}
}

func TestJWTAuth_DisabledWithoutSecret(t *testing.T) {
	router := gin.New()
	router.Use(JWTAuth(""))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/x", nil).Code)
}

func TestSettlementAttributes_NoTransaction(t *testing.T) {
	router := gin.New()
	router.Use(SettlementAttributes())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/x?rule=platform", nil).Code)
}
