package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ayursutra/booking-api/pkg/httputil"
)

// Reservation and payment calls hit the database and the payment gateway on
// every request, so the booking API carries a process-wide throttle. The
// limiter is global rather than per client; per-user fairness belongs to the
// platform gateway in front of this service.
type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
}

const (
	defaultRate  rate.Limit = 100
	defaultBurst            = 200
)

type RateLimiter struct {
	limiter *rate.Limiter
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = defaultRate
	}
	if config.Burst <= 0 {
		config.Burst = defaultBurst
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(config.Rate, config.Burst),
	}
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.Response{
				Success: false,
				Error: &httputil.Error{
					Code:    http.StatusTooManyRequests,
					Message: "rate limit exceeded",
				},
			})
			return
		}
		c.Next()
	}
}
