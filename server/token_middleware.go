package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// TokenMiddleware validates the bearer token and sets the acting user in
// context. It runs before any admin handler so assigned_by/revoked_by always
// reflects an authenticated subject.
func (s *Server) TokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "missing authorization header",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "invalid authorization header format",
			})
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return s.JWTKey, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "invalid token",
			})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "invalid token claims",
			})
			c.Abort()
			return
		}
		// Prefer user_id claim, fallback to sub.
		if userID, exists := claims["user_id"]; exists {
			c.Set("user_id", userID)
		} else if sub, exists := claims["sub"]; exists {
			c.Set("user_id", sub)
		}
		c.Set("token_claims", claims)
		c.Next()
	}
}

// actingUser returns the authenticated subject set by TokenMiddleware.
func actingUser(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if s, ok2 := v.(string); ok2 {
			return s
		}
	}
	return ""
}
