package middleware

import (
	"net/http"

	"auction-market/internal/auth"

	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// RequireAuth validates the bearer token and stores the caller's user id in
// the echo context for handlers to pick up via CallerID.
func RequireAuth(tokens *auth.TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := auth.ParseBearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"msg": "No hay token, autorización denegada"})
			}

			userID, err := tokens.Validate(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"msg": "Token no válido"})
			}

			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

// CallerID returns the authenticated user id set by RequireAuth.
func CallerID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
