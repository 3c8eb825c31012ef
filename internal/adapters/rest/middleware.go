// internal/adapters/rest/middleware.go
package rest

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/pkg/auth"
)

const (
	ctxUser   = "user"
	ctxClaims = "claims"

	headerRequestID = "X-Request-ID"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(headerRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// requestLogger logs every request and feeds the request metrics.
func requestLogger(m RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		took := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		logger.Debugf("%s %s %d %s [%s]", c.Request.Method, c.Request.URL.Path, status, took, c.GetString(headerRequestID))
		if m != nil {
			m.ObserveRequest(c.Request.Method, route, status, took)
		}
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", headerRequestID},
		ExposeHeaders:    []string{"Content-Length", headerRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// ipLimiter hands out one token bucket per client address.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	lastGC   time.Time
}

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

func newIPLimiter(requests int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		limiters: make(map[string]*visitor),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		idle:     window,
	}
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastGC) > l.idle {
		for k, v := range l.limiters {
			if now.Sub(v.seen) > l.idle {
				delete(l.limiters, k)
			}
		}
		l.lastGC = now
	}
	v, ok := l.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = v
	}
	v.seen = now
	return v.limiter.AllowN(now, 1)
}

func rateLimit(requests int, window time.Duration) gin.HandlerFunc {
	if requests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	l := newIPLimiter(requests, window)
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP(), time.Now()) {
			fail(c, http.StatusTooManyRequests, "Too many requests from this IP, please try again later.")
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// authenticate resolves the bearer token to a user. The websocket route also
// accepts the token as a query parameter since browsers cannot set headers there.
func (h *handler) authenticate(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" && allowQuery {
			token = c.Query("token")
		}
		user, claims, err := h.Auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.abortWithError(c, err)
			return
		}
		c.Set(ctxUser, user)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

func requireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		for _, r := range roles {
			if user != nil && user.Role == r {
				c.Next()
				return
			}
		}
		fail(c, http.StatusForbidden, "Access denied. Insufficient permissions.")
	}
}

func currentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(ctxUser); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

func currentClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ctxClaims); ok {
		if cl, ok := v.(*auth.Claims); ok {
			return cl
		}
	}
	return nil
}
