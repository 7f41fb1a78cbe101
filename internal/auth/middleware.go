package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDContextKey    = "auth_user_id"
	authTokenContextKey = "auth_token"
)

const bearerPrefix = "Bearer "

// Middleware authenticates the request from the bearer header or the auth
// cookie and stores the resolved party on the context. Requests without a
// valid token are rejected with 401.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.requestToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		userID, err := s.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(userIDContextKey, userID)
		c.Set(authTokenContextKey, token)
		c.Next()
	}
}

// UserIDFromContext retrieves the authenticated party id from the gin context.
func UserIDFromContext(c *gin.Context) (int64, bool) {
	val, ok := c.Get(userIDContextKey)
	if !ok {
		return 0, false
	}
	userID, ok := val.(int64)
	return userID, ok
}

// AuthTokenFromContext retrieves the token captured by the middleware, so
// logout can revoke exactly the credential the request arrived with.
func AuthTokenFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(authTokenContextKey)
	if !ok {
		return "", false
	}
	token, ok := val.(string)
	return token, ok
}

// requestToken resolves the request credential. The bearer header wins over
// the cookie so API clients are never affected by stale browser state.
func (s *Service) requestToken(c *gin.Context) string {
	if token, ok := s.bearerToken(c); ok {
		return token
	}
	if cookie, err := c.Cookie(s.cookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

// bearerToken extracts an explicit Authorization bearer credential.
func (s *Service) bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(s.headerName)
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(bearerPrefix):]), true
}
