package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	goCache "github.com/patrickmn/go-cache"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/types"
	"golang.org/x/time/rate"
)

// idleLimiterTTL drops the bucket of a tenant that stayed quiet this long.
// A bucket refills completely within a minute, so nothing is lost.
const idleLimiterTTL = 2 * time.Minute

// TenantRateLimiter hands out one token bucket per tenant
type TenantRateLimiter struct {
	mu       sync.Mutex
	limiters *goCache.Cache
	limit    rate.Limit
	burst    int
}

// NewTenantRateLimiter allows perMinute requests per tenant per minute.
// perMinute <= 0 disables limiting.
func NewTenantRateLimiter(perMinute int) *TenantRateLimiter {
	return newTenantRateLimiter(perMinute, idleLimiterTTL)
}

func newTenantRateLimiter(perMinute int, idle time.Duration) *TenantRateLimiter {
	l := &TenantRateLimiter{
		limiters: goCache.New(idle, idle),
		limit:    rate.Inf,
	}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
		l.burst = perMinute
	}
	return l
}

// Allow reports whether tenantID may proceed now
func (l *TenantRateLimiter) Allow(tenantID string) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	var limiter *rate.Limiter
	if v, ok := l.limiters.Get(tenantID); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(l.limit, l.burst)
	}
	// every hit pushes the expiry out again
	l.limiters.SetDefault(tenantID, limiter)
	l.mu.Unlock()

	return limiter.Allow()
}

// RateLimitMiddleware rejects requests of tenants over their budget
func RateLimitMiddleware(limiter *TenantRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := types.GetTenantID(c.Request.Context())
		if !limiter.Allow(tenantID) {
			c.Error(ierr.NewError("rate limit exceeded").
				WithHint("Too many repair requests, please try again later").
				WithReportableDetails(map[string]any{
					"tenant_id": tenantID,
				}).
				Mark(ierr.ErrRateLimited))
			c.Abort()
			return
		}
		c.Next()
	}
}
