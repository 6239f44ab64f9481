package middleware

import (
	"errors"
	"strings"

	"github.com/ctenarsky-denik/journal/internal/pkg/jwt"
	"github.com/ctenarsky-denik/journal/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "user_email"
)

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(token string) (*jwt.Claims, error)
}

// Auth returns a middleware that enforces bearer JWT authentication.
func Auth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateToken(tokens, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyUserID, claims.UserID)
		if claims.Email != "" {
			c.Set(ContextKeyEmail, claims.Email)
		}
		c.Next()
	}
}

// OptionalAuth records the caller when a valid token is present and never
// rejects the request.
func OptionalAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := ValidateToken(tokens, extractToken(c)); err == nil {
			c.Set(ContextKeyUserID, claims.UserID)
			if claims.Email != "" {
				c.Set(ContextKeyEmail, claims.Email)
			}
		}
		c.Next()
	}
}

// ValidateToken normalizes and validates a raw token.
func ValidateToken(tokens TokenParser, rawToken string) (*jwt.Claims, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, errors.New("token is required")
	}
	return tokens.Parse(token)
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

func CurrentEmail(c *gin.Context) string {
	v, _ := c.Get(ContextKeyEmail)
	email, _ := v.(string)
	return email
}

func extractToken(c *gin.Context) string {
	return NormalizeToken(c.GetHeader("Authorization"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
