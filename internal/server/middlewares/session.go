package middlewares

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/lifemoments/lifemoments/internal/server/session"
)

const (
	// CurrentUserContextKey is the key to retrieve the current_user from echo.Context.
	CurrentUserContextKey = "current_user"
	// CurrentSessionContextKey is the key to retrieve the current_session from echo.Context.
	CurrentSessionContextKey = "current_session"

	// SignInPath is where interactive requests without a valid session are redirected.
	SignInPath = "/login"
)

// Session returns the session gate middleware. It verifies the bearer
// credential of every protected route, then stores current_user and
// current_session into echo.Context. Session and user never live in any
// ambient global state, they always travel with the request context.
//
// Interactive requests are redirected to the sign-in surface, programmatic
// ones receive an unauthorized JSON response.
func Session(m session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := token(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return reject(c)
			}

			// Find, validate and store current_session for handlers.
			session, err := m.Validate(token)
			if err != nil {
				return err
			}
			c.Set(CurrentSessionContextKey, session)

			// Find and store current_user for handlers.
			user, err := m.UserFromToken(token)
			if err != nil {
				return err
			}
			c.Set(CurrentUserContextKey, user)

			return next(c)
		}
	}
}

func reject(c echo.Context) error {
	if interactive(c) {
		return c.Redirect(http.StatusSeeOther, SignInPath)
	}

	return c.JSON(http.StatusUnauthorized, echo.Map{
		"error": echo.Map{
			"tag":     "invalid-auth",
			"message": "Invalid login credentials.",
		},
	})
}

// interactive reports whether the request comes from a browser navigation
// rather than a programmatic API call.
func interactive(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get("Accept"), echo.MIMETextHTML)
}

func token(authorization string) string {
	parts := strings.Split(authorization, " ")
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
