package httpkit

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"lead_portal_backend/platform/config"
	"lead_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// ContextUserIDKey is the gin context key for the authenticated user ID.
	ContextUserIDKey = "userID"
	// ContextRolesKey is the gin context key for the user's roles.
	ContextRolesKey = "roles"

	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
)

// RequestLogger logs HTTP requests with timing.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.HTTPRequest(c.Request.Method, path, c.Writer.Status(), float64(time.Since(start).Milliseconds()), c.ClientIP())
	}
}

// SecurityHeaders adds security headers to responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// visitorIdle is how long an IP's bucket is kept after its last request.
const visitorIdle = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP. Buckets idle for
// longer than visitorIdle are swept.
type IPRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	rate      rate.Limit
	burst     int
	log       *logger.Logger
}

func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    burst,
		log:      log,
	}
}

func (i *IPRateLimiter) allow(ip string, now time.Time) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if now.Sub(i.lastSweep) > visitorIdle {
		for key, v := range i.visitors {
			if now.Sub(v.lastSeen) > visitorIdle {
				delete(i.visitors, key)
			}
		}
		i.lastSweep = now
	}

	v, ok := i.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(i.rate, i.burst)}
		i.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// RateLimit returns middleware that answers 429 once an IP's bucket is empty.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !i.allow(ip, time.Now()) {
			if i.log != nil {
				i.log.RateLimitExceeded(ip, c.Request.URL.Path)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

// AttemptLimiter blocks identifiers after repeated failed attempts.
type AttemptLimiter interface {
	Blocked(ctx context.Context, identifier string) (retryAfterSeconds int, blocked bool, err error)
	Fail(ctx context.Context, identifier string) error
	Succeed(ctx context.Context, identifier string) error
}

// AuthRequired returns middleware that validates JWT access tokens.
// Supports token via Authorization header (Bearer) or query param (for SSE).
// When attempts is non-nil, invalid tokens count as failed attempts for the
// client IP and a blocked IP is rejected before the token is inspected.
func AuthRequired(cfg config.JWTConfig, attempts AttemptLimiter, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.ClientIP()

		if attempts != nil {
			retryAfter, blocked, err := attempts.Blocked(ctx, ip)
			if err != nil && log != nil {
				log.Error("auth attempt check failed", "error", err)
			}
			if blocked {
				if log != nil {
					log.RateLimitExceeded(ip, c.Request.URL.Path)
				}
				c.Header("Retry-After", strconv.Itoa(retryAfter))
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many failed attempts"})
				return
			}
		}

		fail := func(message string) {
			if attempts != nil {
				if err := attempts.Fail(ctx, ip); err != nil && log != nil {
					log.Error("auth attempt record failed", "error", err)
				}
			}
			abortUnauthorized(c, message)
		}

		rawToken, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			rawToken = c.Query("token")
			if rawToken == "" {
				abortUnauthorized(c, errMissingToken)
				return
			}
		}

		userID, roles, err := parseAccessToken(rawToken, []byte(cfg.GetJWTAccessSecret()))
		if err != nil {
			fail(errInvalidToken)
			return
		}

		if attempts != nil {
			if err := attempts.Succeed(ctx, ip); err != nil && log != nil {
				log.Error("auth attempt reset failed", "error", err)
			}
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRolesKey, roles)
		c.Next()
	}
}

// RequireRole returns middleware that checks if the user has the specified role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetIdentity(c).HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func extractBearerToken(authHeader string) (string, bool) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}

	rawToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if rawToken == "" {
		return "", false
	}

	return rawToken, true
}

// accessClaims is the payload of an access token issued by the portal's
// identity provider.
type accessClaims struct {
	Type  string   `json:"type"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

var hmacMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

func parseAccessToken(rawToken string, secret []byte) (uuid.UUID, []string, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods(hmacMethods), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, nil, err
	}
	if claims.Type != "access" {
		return uuid.Nil, nil, errors.New("not an access token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if claims.Roles == nil {
		claims.Roles = []string{}
	}
	return userID, claims.Roles, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
