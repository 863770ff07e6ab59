package middleware

import (
	"net/http"
	"os"
	"strings"

	"storefront-erp/internal/model"
	"storefront-erp/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by RequireAuth and RequireRole.
const (
	ContextUserID = "userID"
	ContextRole   = "userRole"
)

const accessTokenCookie = "access_token"

func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // development fallback only
	}
	return []byte(secret)
}

func cookieMode() (http.SameSite, bool) {
	if os.Getenv("GIN_MODE") == "release" {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}

// SetTokenCookie stores the access token as an HttpOnly cookie.
func SetTokenCookie(c *gin.Context, accessToken string, maxAge int) {
	sameSite, secure := cookieMode()
	c.SetSameSite(sameSite)
	c.SetCookie(accessTokenCookie, accessToken, maxAge, "/", "", secure, true)
}

// ClearTokenCookie removes the access token cookie
func ClearTokenCookie(c *gin.Context) {
	sameSite, secure := cookieMode()
	c.SetSameSite(sameSite)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", secure, true)
}

// RequireAuth accepts any valid token.
func RequireAuth() gin.HandlerFunc {
	return RequireRole()
}

// RequireRole validates the JWT token and checks the user's role against allowedRoles.
// An empty allowedRoles list lets every authenticated role through.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie(accessTokenCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return GetJWTSecret(), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
			return
		}

		userRole, ok := claims["role"].(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
			return
		}
		userID, _ := claims["sub"].(string)

		if len(allowedRoles) > 0 && !hasRole(userRole, allowedRoles) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, userRole)
		c.Next()
	}
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// UserID returns the authenticated user's id, empty when the route is public.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// IsAdmin reports whether the authenticated user carries the admin role.
func IsAdmin(c *gin.Context) bool {
	return c.GetString(ContextRole) == model.RoleAdmin
}
