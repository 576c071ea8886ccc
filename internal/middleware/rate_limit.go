package middleware

import (
	"net/http"
	"time"

	"hotelrides/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// limiterStore keeps one limiter per client. An entry idle for longer than a
// full refill is evicted, since a new limiter would be in the same state.
type limiterStore struct {
	limiters *cache.Cache
	every    time.Duration
	burst    int
	idle     time.Duration
}

func newLimiterStore(perMinute int) *limiterStore {
	every := time.Minute / time.Duration(perMinute)
	idle := 2 * time.Minute
	return &limiterStore{
		limiters: cache.New(idle, idle),
		every:    every,
		burst:    perMinute,
		idle:     idle,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	if v, ok := s.limiters.Get(key); ok {
		l := v.(*rate.Limiter)
		s.limiters.Set(key, l, s.idle)
		return l
	}
	l := rate.NewLimiter(rate.Every(s.every), s.burst)
	if err := s.limiters.Add(key, l, s.idle); err != nil {
		// another request for the same key got there first
		if v, ok := s.limiters.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

func (s *limiterStore) size() int { return s.limiters.ItemCount() }

// RateLimit limits requests per client IP to perMinute with an equal burst.
func RateLimit(perMinute int, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return rateLimit(newLimiterStore(perMinute), log)
}

func rateLimit(store *limiterStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !store.get(ip).Allow() {
			log.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", c.Request.URL.Path))
			response.Error(c, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded. Try again later.")
			c.Abort()
			return
		}
		c.Next()
	}
}
