package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

const userIDKey = "userID"

// Middleware authenticates every request with chain and stores the user
// id in the echo context. Unauthenticated requests get 401.
func Middleware(chain Chain, logger *slog.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := chain.Authenticate(c.Request())
			if err != nil {
				logger.Debug("request not authenticated", "path", c.Path(), "error", err)
				msg := "Access denied. No session found."
				if !errors.Is(err, ErrNoCredentials) {
					msg = "Invalid or expired session."
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": msg})
			}
			c.Set(userIDKey, id.UserID)
			return next(c)
		}
	}
}

// UserID returns the id stored by Middleware.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
