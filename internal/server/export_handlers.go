package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lifemoments/lifemoments/internal/database"
	"github.com/lifemoments/lifemoments/internal/lmerror"
	"github.com/lifemoments/lifemoments/internal/server/service"
	"github.com/lifemoments/lifemoments/internal/server/session"
)

// export contains the document export handlers.
type export struct {
	db database.Client
}

///// PDF
////
//

// PDF renders the current user's entries as a downloadable document.
// Scopes: all (default), public, family.
func (h *export) PDF(c echo.Context) error {
	service := service.NewExport(h.db)
	payload, err := service.PDF(currentUser(c), c.QueryParam("scope"))
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="lifebook.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", payload)
}

// cron contains the scheduled-delivery handlers.
type cron struct {
	db database.Client
	// secret optionally guards the endpoint, the external scheduler passes
	// it as a bearer token.
	secret string
}

///// Run
////
//

// Run scans due scheduled entries and marks them delivered.
func (h *cron) Run(c echo.Context) error {
	if h.secret != "" && !session.SecureCompare(c.QueryParam("secret"), h.secret) {
		return lmerror.Unauthorized("Invalid scheduler credentials.")
	}

	service := service.NewDeliver(h.db)
	report, err := service.Run(time.Now())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"ok":        true,
		"processed": report.Processed,
		"failed":    report.Failed,
	})
}
