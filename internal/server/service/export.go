package service

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/lifemoments/lifemoments/internal/database"
	"github.com/lifemoments/lifemoments/internal/lmerror"
	"github.com/lifemoments/lifemoments/internal/model"
	"github.com/pkg/errors"
)

// Export scopes.
const (
	ExportScopeAll    = "all"
	ExportScopePublic = "public"
	ExportScopeFamily = "family"
)

// An ExportService renders an owner's entries as a printable document.
type ExportService struct {
	db database.Client
}

// NewExport returns a new ExportService.
func NewExport(db database.Client) *ExportService {
	return &ExportService{db: db}
}

// PDF renders the owner's entries for the given scope as a PDF, ascending
// by creation time. The family scope covers family and public entries.
func (s *ExportService) PDF(user *model.User, scope string) ([]byte, error) {
	entries, err := s.entries(user, scope)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(48, 48, 48)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 24, tr("LifeMoments — Life Book"), "", 1, "C", false, 0, "")
	pdf.Ln(12)

	for _, entry := range entries {
		if entry.CreatedAt != nil {
			pdf.SetFont("Helvetica", "", 12)
			pdf.SetTextColor(0x11, 0x11, 0x11)
			pdf.CellFormat(0, 14, entry.CreatedAt.Format(time.RFC1123), "", 1, "L", false, 0, "")
		}
		if entry.Summary != "" {
			pdf.SetFont("Helvetica", "B", 14)
			pdf.SetTextColor(0, 0, 0)
			pdf.MultiCell(0, 16, tr(fmt.Sprintf("“%s”", entry.Summary)), "", "L", false)
		}
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(0x33, 0x33, 0x33)
		pdf.MultiCell(0, 14, tr(entry.Content), "", "L", false)
		pdf.Ln(8)

		pdf.SetDrawColor(0xDD, 0xDD, 0xDD)
		x, y := pdf.GetXY()
		pdf.Line(48, y, 564, y)
		pdf.SetXY(x, y+12)
	}

	var payload bytes.Buffer
	if err := pdf.Output(&payload); err != nil {
		return nil, errors.Wrap(err, "could not render document")
	}
	return payload.Bytes(), nil
}

func (s *ExportService) entries(user *model.User, scope string) ([]*model.Entry, error) {
	var (
		entries []*model.Entry
		err     error
	)

	switch scope {
	case ExportScopeAll, "":
		entries, err = s.db.FindEntriesByOwner(user.ID, 0)
	case ExportScopePublic:
		entries, err = s.db.FindEntriesByVisibility(user.ID, []model.Visibility{model.VisibilityPublic})
	case ExportScopeFamily:
		entries, err = s.db.FindEntriesByVisibility(user.ID, []model.Visibility{model.VisibilityFamily, model.VisibilityPublic})
	default:
		return nil, lmerror.Validation("Unknown export scope.")
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not list entries to export")
	}

	// Ascending by creation time, whatever order the finder produced.
	// The owner timeline sorts on the event date fallback, not creation.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(*entries[j].CreatedAt)
	})
	return entries, nil
}
