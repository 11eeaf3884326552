package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-service/pkg/jwtutil"
	"wellness-service/pkg/logger"
	"wellness-service/prometheus"
)

// Context keys set by RequireUser
const (
	UserIDKey = "user_id"
	EmailKey  = "email"
)

// TokenValidator parses bearer tokens. *jwtutil.JWTUtil satisfies it.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwtutil.UserClaims, error)
}

type errorBody struct {
	Error string `json:"error"`
}

// RequireUser validates the bearer token and only lets a user reach routes
// whose :id is their own.
func RequireUser(tokens TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			// Get the Authorization header
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				log.Warn("Missing Authorization header")
				prometheus.RecordError("missing_token")
				return c.JSON(http.StatusUnauthorized, errorBody{Error: "missing authorization token"})
			}

			// Check if it's a Bearer token
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				log.Warn("Invalid Authorization header format")
				prometheus.RecordError("invalid_auth_format")
				return c.JSON(http.StatusUnauthorized, errorBody{Error: "invalid authorization format, expected Bearer token"})
			}

			claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
			if err != nil {
				log.Warn("Invalid JWT token", zap.Error(err))
				prometheus.RecordError("invalid_token")
				return c.JSON(http.StatusUnauthorized, errorBody{Error: "invalid or expired token"})
			}

			if param := c.Param("id"); param != "" && param != strconv.FormatUint(uint64(claims.UserID), 10) {
				log.Warn("Token does not match requested user",
					zap.Uint("token_user_id", claims.UserID),
					zap.String("requested_id", param))
				prometheus.RecordError("forbidden")
				return c.JSON(http.StatusForbidden, errorBody{Error: "forbidden"})
			}

			// Store user info in context for later use
			c.Set(UserIDKey, claims.UserID)
			c.Set(EmailKey, claims.Email)
			return next(c)
		}
	}
}
