package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ContextKeyUserID is where the auth middleware stores the authenticated
// recipient id on the echo context.
const ContextKeyUserID = "user_id"

type JWTClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// GenerateToken signs an HS256 token carrying the recipient id. Issued by
// the surrounding system's auth service; exposed here for tooling and tests.
func GenerateToken(secret, userID string) (string, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "notification-system",
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// JWTAuth validates the bearer token and stores the recipient id on the
// context. The token is read from the Authorization header, or from the
// "token" query parameter because EventSource clients cannot set headers.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := bearerToken(c)
			if tokenString == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
			}

			claims := &JWTClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid || claims.UserID == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
			}

			c.Set(ContextKeyUserID, claims.UserID)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, found := strings.CutPrefix(authHeader, "Bearer "); found {
		return token
	}
	return c.QueryParam("token")
}

// AdminAuth guards operator-only endpoints with a shared token. An empty
// configured token disables the surface entirely.
func AdminAuth(adminToken string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if adminToken == "" || c.Request().Header.Get("X-Admin-Token") != adminToken {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Admin token required"})
			}
			return next(c)
		}
	}
}
