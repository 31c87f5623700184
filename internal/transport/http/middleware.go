package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"faculty-eval-service/internal/domain"
)

const principalKey = "principal"

// TokenParser verifies a bearer token and returns the user id it was issued for.
type TokenParser interface {
	Parse(raw string) (string, error)
}

// UserLookup resolves a token subject to the stored user.
type UserLookup interface {
	Get(ctx context.Context, id string) (domain.User, error)
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// principal resolves the request's token to a fresh copy of the user record.
func principal(r *http.Request, tokens TokenParser, users UserLookup) (domain.User, error) {
	raw := bearerToken(r)
	if raw == "" {
		return domain.User{}, domain.ErrUnauthorized
	}
	id, err := tokens.Parse(raw)
	if err != nil {
		return domain.User{}, err
	}
	usr, err := users.Get(r.Context(), id)
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	return usr, nil
}

func (h *handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		usr, err := principal(c.Request, h.tokens, h.svc.Users)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Set(principalKey, usr)
		c.Next()
	}
}

// requireRoles rejects principals whose role is not in roles.
func (h *handler) requireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).Role.Allows(roles...) {
			h.fail(c, domain.ErrPermissionDenied)
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.User {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.User{}
	}
	usr, _ := v.(domain.User)
	return usr
}

// cors allows only whitelisted origins.
func cors(allowedOrigins []string) gin.HandlerFunc {
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (originSet[origin] || originSet["*"]) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func zapRequest(c *gin.Context, err error) []zap.Field {
	return []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter hands out one token bucket per client IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	expiry   time.Duration
}

func newIPRateLimiter(limit rate.Limit, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		expiry:   10 * time.Minute,
	}
}

func (l *ipRateLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.expiry {
			delete(l.visitors, k)
		}
	}
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

func rateLimit(l *ipRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Message: "too many requests"})
			return
		}
		c.Next()
	}
}
