package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lifemoments/lifemoments/internal/database"
	"github.com/lifemoments/lifemoments/internal/lmerror"
	"github.com/lifemoments/lifemoments/internal/server/service"
	"github.com/lifemoments/lifemoments/internal/server/session"
)

// auth contains all authentication handlers.
type auth struct {
	db       database.Client
	sessions session.Manager
}

///// Register
////
//

// Register handler is used to register the user.
func (h *auth) Register(c echo.Context) error {
	// Filter params
	var params service.RegisterParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, lmerror.New("Could not get user's params."))
	}
	params.UserAgent = c.Request().UserAgent()

	if params.Email == "" {
		return c.JSON(http.StatusBadRequest, lmerror.New("No email provided."))
	}
	if params.Password == "" {
		return c.JSON(http.StatusBadRequest, lmerror.New("No password provided."))
	}

	service := service.NewUser(h.db, h.sessions)
	register, err := service.Register(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, register)
}

///// Login
////
//

// Login authenticates a user and opens a session.
func (h *auth) Login(c echo.Context) error {
	// Filter params
	var params service.LoginParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, lmerror.New("Could not get credentials."))
	}
	params.UserAgent = c.Request().UserAgent()

	if params.Email == "" || params.Password == "" {
		return c.JSON(http.StatusBadRequest, lmerror.New("No email or password provided."))
	}

	service := service.NewUser(h.db, h.sessions)
	login, err := service.Login(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, login)
}

// sess contains all session handlers.
type sess struct {
	db database.Client
	m  session.Manager
}

///// Refresh
////
//

// Refresh regenerates the session tokens against a valid refresh token.
func (h *sess) Refresh(c echo.Context) error {
	var params struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, lmerror.New("Could not get tokens."))
	}

	session, err := h.db.FindSessionByTokens(params.AccessToken, params.RefreshToken)
	if err != nil {
		if h.db.IsNotFound(err) {
			return lmerror.Unauthorized("Invalid login credentials.")
		}
		return err
	}

	if err := h.m.Regenerate(session); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"session": echo.Map{
			"access_token":       session.AccessToken,
			"refresh_token":      session.RefreshToken,
			"access_expiration":  h.m.AccessTokenExpireAt(session).UTC(),
			"refresh_expiration": session.ExpireAt.UTC(),
		},
	})
}

///// List
////
//

// List returns all signed-in devices of the current user.
// Tokens are never echoed back, only session metadata.
func (h *sess) List(c echo.Context) error {
	current := currentSession(c)

	sessions, err := h.db.FindSessionsByUserID(currentUser(c).ID)
	if err != nil {
		return err
	}

	payload := make([]echo.Map, 0, len(sessions))
	for _, session := range sessions {
		payload = append(payload, echo.Map{
			"id":         session.ID,
			"user_agent": session.UserAgent,
			"created_at": session.CreatedAt,
			"expire_at":  session.ExpireAt.UTC(),
			"current":    session.ID == current.ID,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"sessions": payload})
}

///// Delete
////
//

// Delete signs the current session out.
func (h *sess) Delete(c echo.Context) error {
	session := currentSession(c)
	if session == nil {
		return lmerror.Unauthorized("Invalid login credentials.")
	}

	if err := h.db.Delete(session); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

///// DeleteAll
////
//

// DeleteAll signs out every other device, keeping the current session alive.
func (h *sess) DeleteAll(c echo.Context) error {
	current := currentSession(c)

	sessions, err := h.db.FindSessionsByUserID(currentUser(c).ID)
	if err != nil {
		return err
	}

	revoked := 0
	for _, session := range sessions {
		if session.ID == current.ID {
			continue
		}
		if err := h.db.Delete(session); err != nil {
			return err
		}
		revoked++
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "revoked": revoked})
}
