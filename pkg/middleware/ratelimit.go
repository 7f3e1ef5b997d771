package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ekaya-inc/ekaya-canvas/pkg/audit"
	"github.com/ekaya-inc/ekaya-canvas/pkg/auth"
	"github.com/ekaya-inc/ekaya-canvas/pkg/handlers"
	"github.com/ekaya-inc/ekaya-canvas/pkg/metrics"
)

// sweepInterval is how often idle limiters are dropped.
const sweepInterval = time.Minute

// RateLimiter applies a token bucket per user to the expensive endpoints.
// It must run inside auth.Middleware.RequireAuth so the session is known;
// requests without one are keyed by client IP.
type RateLimiter struct {
	limiters  sync.Map // key -> *rate.Limiter
	limit     rate.Limit
	burst     int
	disabled  bool
	lastSweep atomic.Int64 // unix nanos

	auditor *audit.SecurityAuditor
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRateLimiter allows perMinute requests per user with the given burst.
// perMinute <= 0 disables limiting. auditor and m may be nil.
func NewRateLimiter(perMinute, burst int, auditor *audit.SecurityAuditor, m *metrics.Metrics, logger *zap.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		disabled: perMinute <= 0,
		auditor:  auditor,
		metrics:  m,
		logger:   logger.Named("ratelimit"),
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.limit, rl.burst))
	return limiter.(*rate.Limiter)
}

// sweep drops limiters whose bucket has refilled. A full bucket behaves
// exactly like a new one, so forgetting it changes no client's budget.
func (rl *RateLimiter) sweep(now time.Time) {
	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).TokensAt(now) >= float64(rl.burst) {
			rl.limiters.CompareAndDelete(key, value)
		}
		return true
	})
}

func (rl *RateLimiter) maybeSweep(now time.Time) {
	last := rl.lastSweep.Load()
	if now.UnixNano()-last < int64(sweepInterval) {
		return
	}
	if rl.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		rl.sweep(now)
	}
}

// clientKey identifies the caller: the session user when there is one,
// otherwise the remote IP without its ephemeral port.
func clientKey(r *http.Request) string {
	if userID := auth.GetUserIDFromContext(r.Context()); userID != "" {
		return "user:" + userID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// retryAfter reports how long until limiter grants another token, rounded
// up to whole seconds.
func retryAfter(limiter *rate.Limiter, now time.Time) int {
	reservation := limiter.ReserveN(now, 1)
	defer reservation.CancelAt(now)
	if !reservation.OK() {
		return 60
	}
	secs := int(math.Ceil(reservation.DelayFrom(now).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limit wraps next with the per-user budget. Its signature matches
// handlers.Middleware.
func (rl *RateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	if rl.disabled {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		now := time.Now()
		rl.maybeSweep(now)

		limiter := rl.getLimiter(key)
		if limiter.AllowN(now, 1) {
			next(w, r)
			return
		}

		wait := retryAfter(limiter, now)
		rl.logger.Debug("Request rate limited",
			zap.String("key", key),
			zap.String("route", route(r)),
			zap.Int("retry_after_seconds", wait))
		if rl.auditor != nil {
			rl.auditor.LogRateLimited(r.Context(), route(r), r.RemoteAddr)
		}
		rl.metrics.ObserveRateLimited(route(r))

		w.Header().Set("Retry-After", strconv.Itoa(wait))
		if err := handlers.ErrorResponse(w, http.StatusTooManyRequests, handlers.CodeRateLimited,
			"Too many requests, please try again later"); err != nil {
			rl.logger.Error("Failed to write rate limit response", zap.Error(err))
		}
	}
}
