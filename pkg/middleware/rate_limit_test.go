package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitMiddleware_NoRedisPassesThrough(t *testing.T) {
	router := setupTestRouter()
	router.Use(RateLimitMiddleware(nil, "post", 1, time.Minute))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitMiddleware_RedisDownPassesThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	router := setupTestRouter()
	router.Use(RateLimitMiddleware(client, "post", 1, time.Minute))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitKey(t *testing.T) {
	router := setupTestRouter()
	router.GET("/posts/:slug", func(c *gin.Context) {
		if user := c.Query("user"); user != "" {
			c.Set("user_id", user)
		}
		c.String(http.StatusOK, rateLimitKey("post", c))
	})

	tests := []struct {
		name string
		path string
		want string
	}{
		{"anonymous by client ip", "/posts/hello-world", "rate_limit:post:/posts/:slug:192.0.2.1"},
		{"route template shared across slugs", "/posts/other", "rate_limit:post:/posts/:slug:192.0.2.1"},
		{"authenticated by user id", "/posts/hello-world?user=u-1", "rate_limit:post:/posts/:slug:u-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", tt.path, nil)
			req.RemoteAddr = "192.0.2.1:4321"
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}
