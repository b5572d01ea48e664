package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crewlog/internal/roster"
	"crewlog/internal/session"
	"crewlog/pkg/logger"
)

// Context keys set by RequireSession.
const (
	ClaimsKey  = "claims"
	SessionKey = "session"
	StoreKey   = "device_store"
)

// BearerToken extracts the token from an Authorization header.
func BearerToken(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(authz[len("bearer "):])
	return tok, tok != ""
}

// RequireSession enforces a bearer access token whose device still holds a
// session for the token's subject. Signing out on the device revokes the token.
func RequireSession(tokens *Issuer, backend session.Backend, log *zap.Logger) gin.HandlerFunc {
	log = logger.Or(log)
	return func(c *gin.Context) {
		tokenStr, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := tokens.Parse(tokenStr, KindAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		store := backend.Scope(claims.DeviceID)
		sess, ok, err := session.NewManager(store).Load(c.Request.Context())
		if err != nil {
			log.Error("session lookup failed", zap.String(logger.FieldDeviceID, claims.DeviceID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}
		if !ok || sess.Identifier != claims.Subject {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session ended"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(SessionKey, sess)
		c.Set(StoreKey, store)
		c.Next()
	}
}

// RequireRole lets through sessions whose role is one of allowed.
func RequireRole(allowed ...roster.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "no session in context"})
			return
		}
		for _, r := range allowed {
			if sess.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role not allowed"})
	}
}

// SessionFrom returns the session stored by RequireSession.
func SessionFrom(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return session.Session{}, false
	}
	s, ok := v.(session.Session)
	return s, ok
}

// StoreFrom returns the device store stored by RequireSession.
func StoreFrom(c *gin.Context) (session.Store, bool) {
	v, ok := c.Get(StoreKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(session.Store)
	return s, ok
}

// ClaimsFrom returns the token claims stored by RequireSession.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return Claims{}, false
	}
	cl, ok := v.(Claims)
	return cl, ok
}
