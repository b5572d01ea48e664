package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSimpleTokenBucket_Refill(t *testing.T) {
	now := time.Date(2024, 10, 12, 9, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(2, 60)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "buckets are per key")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(time.Hour)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "refill is capped at capacity")
}

func TestSimpleTokenBucket_Disabled(t *testing.T) {
	l := NewSimpleTokenBucket(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("a"))
	}
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewSimpleTokenBucket(1, 1)
	r := gin.New()
	r.Use(l.GinMiddleware(func(c *gin.Context) string { return c.GetHeader("X-Device") }))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	call := func(device string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Device", device)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusNoContent, call("d1"))
	assert.Equal(t, http.StatusTooManyRequests, call("d1"))
	assert.Equal(t, http.StatusNoContent, call("d2"))
}
