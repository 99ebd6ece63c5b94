package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"github.com/fatflowers/paygate/pkg/response"
)

const UserIDKey = "user_id"

// JWTAuthMiddleware checks an HS256 bearer token and stores its "sub" claim
// under UserIDKey. An empty secret disables the check.
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Err("missing or malformed authorization header"))
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Err("invalid token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Err("invalid token"))
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Err("sub claim not found in token"))
			return
		}
		c.Set(UserIDKey, sub)
		c.Next()
	}
}

// UserID returns the authenticated subject, if any.
func UserID(c *gin.Context) (string, error) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return "", errors.New("user id not found in context")
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.New("user id has invalid type")
	}
	return s, nil
}
