package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lifemoments/lifemoments/internal/ai"
	"github.com/lifemoments/lifemoments/internal/database"
	"github.com/lifemoments/lifemoments/internal/lmerror"
	"github.com/lifemoments/lifemoments/internal/server/service"
	"github.com/lifemoments/lifemoments/internal/storage"
	"github.com/pkg/errors"
)

// capture contains the media capture handlers.
type capture struct {
	db    database.Client
	store storage.Store
	ai    ai.Client
}

///// Create
////
//

// Create runs the capture pipeline on an uploaded recording:
// upload to the blob store, transcribe, summarize, persist.
func (h *capture) Create(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, lmerror.New("File missing."))
	}
	if file.Size > service.MaxCaptureSize {
		return lmerror.Validation("File too large. Please keep audio files under 10MB.")
	}

	payload, err := file.Open()
	if err != nil {
		return errors.Wrap(err, "could not open upload")
	}
	defer payload.Close()

	blob, err := io.ReadAll(io.LimitReader(payload, service.MaxCaptureSize+1))
	if err != nil {
		return errors.Wrap(err, "could not read upload")
	}

	params := service.CaptureParams{
		Filename:    file.Filename,
		ContentType: file.Header.Get(echo.HeaderContentType),
		Visibility:  c.FormValue("visibility"),
		Blob:        blob,
	}
	if duration := c.FormValue("duration"); duration != "" {
		params.Duration, _ = strconv.ParseFloat(duration, 64)
	}

	pipeline := service.NewCapture(h.db, h.store, h.ai, currentUser(c), params)
	entry, err := pipeline.Execute(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "id": entry.ID})
}

// record contains the chunked recording handlers. Chunks accumulate
// server-side in the registry until the client finishes the session, the
// assembled blob then runs through the same pipeline as a direct upload.
type record struct {
	db       database.Client
	store    storage.Store
	ai       ai.Client
	sessions *service.RecorderRegistry
}

///// Open
////
//

// Open starts a chunked recording session.
func (h *record) Open(c echo.Context) error {
	var params struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
	}
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, lmerror.New("Could not get recording params."))
	}

	id, err := h.sessions.Open(currentUser(c).ID, params.Filename, params.ContentType)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"id": id, "state": service.CaptureRecording})
}

///// Chunk
////
//

// Chunk appends the raw request body to the session. Chunks are kept in
// arrival order.
func (h *record) Chunk(c echo.Context) error {
	chunk, err := io.ReadAll(io.LimitReader(c.Request().Body, service.MaxCaptureSize+1))
	if err != nil {
		return errors.Wrap(err, "could not read chunk")
	}
	if len(chunk) == 0 {
		return lmerror.Validation("Chunk missing.")
	}

	if err := h.sessions.Append(c.Param("id"), currentUser(c).ID, chunk); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

///// Finish
////
//

// Finish stops the session and runs the capture pipeline on the
// assembled recording.
func (h *record) Finish(c echo.Context) error {
	var params struct {
		Visibility string  `json:"visibility"`
		Duration   float64 `json:"duration"`
	}
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, lmerror.New("Could not get recording params."))
	}

	recording, err := h.sessions.Finish(c.Param("id"), currentUser(c).ID)
	if err != nil {
		return err
	}
	recording.Visibility = params.Visibility
	recording.Duration = params.Duration

	pipeline := service.NewCapture(h.db, h.store, h.ai, currentUser(c), recording)
	entry, err := pipeline.Execute(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "id": entry.ID})
}

///// Cancel
////
//

// Cancel drops the session without persisting anything.
func (h *record) Cancel(c echo.Context) error {
	if err := h.sessions.Cancel(c.Param("id"), currentUser(c).ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

///// MediaURL
////
//

// MediaURL returns a short-lived presigned URL for one of the current
// user's media blobs.
func (h *capture) MediaURL(c echo.Context) error {
	media, err := h.db.FindMedia(c.Param("id"))
	if err != nil {
		if h.db.IsNotFound(err) {
			return lmerror.NotFound("No such media.")
		}
		return errors.Wrap(err, "could not get access to database")
	}

	entry, err := h.db.FindEntry(media.EntryID)
	if err != nil {
		return errors.Wrap(err, "could not get access to database")
	}
	if entry.OwnerID != currentUser(c).ID {
		return lmerror.Forbidden("You can not access this media.")
	}

	url, err := h.store.PresignGet(c.Request().Context(), media.StoragePath, time.Hour)
	if err != nil {
		return errors.Wrap(err, "could not presign media URL")
	}

	return c.JSON(http.StatusOK, echo.Map{"url": url})
}
