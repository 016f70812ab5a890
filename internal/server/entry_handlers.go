package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/lifemoments/lifemoments/internal/ai"
	"github.com/lifemoments/lifemoments/internal/database"
	"github.com/lifemoments/lifemoments/internal/lmerror"
	"github.com/lifemoments/lifemoments/internal/server/service"
	"github.com/lifemoments/lifemoments/internal/storage"
	"github.com/pkg/errors"
)

// entry contains all entry handlers.
type entry struct {
	db    database.Client
	store storage.Store
	ai    ai.Client
}

///// Create
////
//

// Create inserts a text entry scoped to the current user. Both JSON and
// form bodies are accepted, a form submission requires a title.
func (h *entry) Create(c echo.Context) error {
	var params service.CreateEntryParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, lmerror.New("Could not get entry params."))
	}
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	params.RequireTitle = strings.HasPrefix(ctype, echo.MIMEApplicationForm) ||
		strings.HasPrefix(ctype, echo.MIMEMultipartForm)

	service := service.NewEntry(h.db, h.store)
	entry, err := service.Create(currentUser(c), params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "id": entry.ID})
}

///// Show
////
//

// Show returns one entry readable by the current user, with its attachments.
func (h *entry) Show(c echo.Context) error {
	service := service.NewEntry(h.db, h.store)
	entry, err := service.Get(c.Param("id"), currentUser(c).ID, nil)
	if err != nil {
		return err
	}

	media, err := h.db.FindMediaByEntry(entry.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"entry": entry, "media": media})
}

///// List
////
//

// List returns the current user's timeline. It always responds 200 with an
// entry array, a failure travels as an error string beside an empty array.
func (h *entry) List(c echo.Context) error {
	service := service.NewEntry(h.db, h.store)
	entries, err := service.ListForOwner(currentUser(c))
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{
			"entries": []struct{}{},
			"error":   err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}

///// Update
////
//

// Update applies a partial update to one of the current user's entries.
func (h *entry) Update(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errors.Wrap(err, "could not read patch")
	}

	patch, err := service.ParseEntryPatch(body)
	if err != nil {
		return err
	}

	service := service.NewEntry(h.db, h.store)
	entry, err := service.Update(c.Param("id"), currentUser(c), patch)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"entry": entry})
}

///// Delete
////
//

// Delete removes one of the current user's entries, its media records and
// the referenced blobs.
func (h *entry) Delete(c echo.Context) error {
	service := service.NewEntry(h.db, h.store)
	err := service.Delete(c.Request().Context(), c.Param("id"), currentUser(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

///// Summarize
////
//

// Summarize regenerates the AI synopsis of one of the current user's
// entries and persists it.
func (h *entry) Summarize(c echo.Context) error {
	var params struct {
		EntryID string `json:"entry_id"`
		Content string `json:"content"`
	}
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, lmerror.New("Could not get summarize params."))
	}

	user := currentUser(c)
	entry, err := h.db.FindEntry(params.EntryID)
	if err != nil {
		if h.db.IsNotFound(err) {
			return lmerror.NotFound("No such entry.")
		}
		return errors.Wrap(err, "could not get access to database")
	}
	if entry.OwnerID != user.ID {
		return lmerror.Forbidden("You can not alter this entry.")
	}

	content := params.Content
	if content == "" {
		content = entry.Content
	}

	summary, err := h.ai.Summarize(c.Request().Context(), content)
	if err != nil {
		return lmerror.Upstream("The summarization service is unavailable.")
	}

	entry.Summary = summary
	if err := h.db.Save(entry); err != nil {
		return errors.Wrap(err, "could not persist summary")
	}

	return c.JSON(http.StatusOK, echo.Map{"summary": summary})
}

///// PublicShow
////
//

// PublicShow serves one entry through the unauthenticated direct-link
// surface. Only the link and public tiers are reachable here.
func (h *entry) PublicShow(c echo.Context) error {
	entry, err := h.db.FindEntry(c.Param("id"))
	if err != nil {
		if h.db.IsNotFound(err) {
			return lmerror.NotFound("No such entry.")
		}
		return errors.Wrap(err, "could not get access to database")
	}

	if !entry.Visibility.DirectlyLinkable() {
		// Hidden tiers are indistinguishable from absent entries.
		return lmerror.NotFound("No such entry.")
	}

	return c.JSON(http.StatusOK, echo.Map{"entry": entry})
}
