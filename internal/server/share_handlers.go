package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lifemoments/lifemoments/internal/database"
	"github.com/lifemoments/lifemoments/internal/lmerror"
	"github.com/lifemoments/lifemoments/internal/server/service"
)

// share contains all share handlers.
type share struct {
	db database.Client
}

///// Create
////
//

// Create mints a share token for the current user.
func (h *share) Create(c echo.Context) error {
	var params service.CreateShareParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, lmerror.New("Could not get share params."))
	}

	service := service.NewShare(h.db)
	share, err := service.Create(currentUser(c), params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"token": share.Token})
}

///// List
////
//

// List returns the current user's shares.
func (h *share) List(c echo.Context) error {
	service := service.NewShare(h.db)
	shares, err := service.List(currentUser(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"shares": shares})
}

///// Revoke
////
//

// Revoke deletes one of the current user's shares.
func (h *share) Revoke(c echo.Context) error {
	service := service.NewShare(h.db)
	if err := service.Revoke(c.Param("id"), currentUser(c)); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

///// Resolve
////
//

// Resolve serves the shared subset to anyone holding the token.
// The token is the whole credential, no session is involved.
func (h *share) Resolve(c echo.Context) error {
	service := service.NewShare(h.db)
	share, entries, err := service.Resolve(c.Param("token"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"label":   share.Label,
		"entries": entries,
	})
}
