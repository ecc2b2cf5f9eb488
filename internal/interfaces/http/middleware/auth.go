package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"plan-ledger.backend/pkg/jwt"
	"plan-ledger.backend/pkg/logger"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens
	BearerPrefix = "Bearer "
	// TokenCookie carries the access token set at signup and login
	TokenCookie = "token"
	// AccountIDHeader names the caller when header identity is enabled
	AccountIDHeader = "X-Account-ID"
	// AccountIDKey is the context key for the caller's account ID
	AccountIDKey = "accountId"
)

// IdentityMiddleware resolves the caller from, in order, a bearer token, the
// token cookie, or the X-Account-ID header when allowHeader is set. It never
// decides authorization; requests without an identity continue anonymously
// and the usecases reject them where an identity is required.
func IdentityMiddleware(jwtService *jwt.JWTService, allowHeader bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authHeader := c.GetHeader(AuthorizationHeader); authHeader != "" {
			if !strings.HasPrefix(authHeader, BearerPrefix) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Invalid authorization format. Use: Bearer <token>",
				})
				return
			}
			claims, err := jwtService.ValidateToken(strings.TrimPrefix(authHeader, BearerPrefix))
			if err != nil {
				logger.Warn(c.Request.Context(), "Bearer token rejected",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err),
				)
				msg := "Invalid token"
				if errors.Is(err, jwt.ErrExpiredToken) {
					msg = "Token has expired"
				}
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
				return
			}
			setAccountID(c, claims.AccountID)
			c.Next()
			return
		}

		if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
			if claims, err := jwtService.ValidateToken(cookie); err == nil {
				setAccountID(c, claims.AccountID)
				c.Next()
				return
			}
		}

		if allowHeader {
			if raw := strings.TrimSpace(c.GetHeader(AccountIDHeader)); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid account id"})
					return
				}
				setAccountID(c, id)
			}
		}

		c.Next()
	}
}

func setAccountID(c *gin.Context, id uuid.UUID) {
	c.Set(AccountIDKey, id)
	c.Request = c.Request.WithContext(logger.WithAccountID(c.Request.Context(), id.String()))
}

// GetAccountID gets the caller's account ID from context. uuid.Nil means the
// request is anonymous.
func GetAccountID(c *gin.Context) uuid.UUID {
	v, exists := c.Get(AccountIDKey)
	if !exists {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}
