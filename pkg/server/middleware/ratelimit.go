package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RateLimit applies one token bucket to every request. Requests beyond the burst get 429.
func RateLimit(ratePerSecond float64, burst int) gin.HandlerFunc {
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(ratePerSecond), burst)

	return func(c *gin.Context) {
		if limiter.Allow() {
			c.Next()
			return
		}
		log.Warn().Str("path", c.Request.URL.Path).Str("client_ip", c.ClientIP()).Msg("Rate limit exceeded")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "rate limit exceeded, please retry shortly"})
	}
}
