package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"instrument-rental-backend/services"
	"instrument-rental-backend/utils"
)

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// CreateAccessToken mints an HS256 token for the given user id and role.
func CreateAccessToken(secret string, userID uint, role string, ttl time.Duration) (string, error) {
	claims := Claims{
		Sub:  strconv.FormatUint(uint64(userID), 10),
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseValidate(secret, tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// RequireAuth validates the bearer token and parks the caller's identity in
// the gin context under "identity".
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			utils.JSONError(c, http.StatusUnauthorized, "missing_token")
			c.Abort()
			return
		}

		claims, err := parseValidate(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			utils.JSONError(c, http.StatusUnauthorized, "invalid_token")
			c.Abort()
			return
		}

		userID, err := strconv.ParseUint(claims.Sub, 10, 64)
		if err != nil || userID == 0 {
			utils.JSONError(c, http.StatusUnauthorized, "invalid_token")
			c.Abort()
			return
		}

		c.Set("identity", services.Identity{UserID: uint(userID), Role: claims.Role})
		c.Next()
	}
}

// RequireRole gates a route group to the listed roles. Admins always pass.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get("identity")
		if !ok {
			utils.JSONError(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		id := v.(services.Identity)
		if id.IsAdmin() {
			c.Next()
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		utils.JSONError(c, http.StatusForbidden, "forbidden")
		c.Abort()
	}
}
