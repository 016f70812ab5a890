package service

import (
	"context"
	"time"

	"github.com/lifemoments/lifemoments/internal/database"
	"github.com/lifemoments/lifemoments/internal/lmerror"
	"github.com/lifemoments/lifemoments/internal/model"
	"github.com/lifemoments/lifemoments/internal/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
)

// OwnerListLimit caps the owner's timeline.
const OwnerListLimit = 200

const (
	maxTitleLength   = 100
	maxContentLength = 5000
)

type (
	// CreateEntryParams are used to create an entry.
	CreateEntryParams struct {
		Params
		Title       string   `json:"title"        form:"title"`
		Content     string   `json:"content"      form:"content"`
		Topics      []string `json:"topics"       form:"topics"`
		Visibility  string   `json:"visibility"   form:"visibility"`
		EventDate   string   `json:"event_date"   form:"event_date"`   // 2006-01-02
		ScheduledAt string   `json:"scheduled_at" form:"scheduled_at"` // RFC 3339

		// RequireTitle is set by form-based call sites.
		RequireTitle bool `json:"-" form:"-"`
	}

	// An EntryPatch carries the fields of a partial update, copied out of
	// the request buffer. A nil pointer means the key was absent. The date
	// fields carry a presence flag of their own, an explicit null clears
	// the stored value.
	EntryPatch struct {
		title      *string
		content    *string
		summary    *string
		visibility *string

		topics    []string
		hasTopics bool

		eventDate    *time.Time
		hasEventDate bool

		scheduledAt    *time.Time
		hasScheduledAt bool

		// ExpectedUpdatedAt is the optimistic-concurrency precondition.
		// When set, the update is rejected if the stored entry changed
		// in between.
		ExpectedUpdatedAt *time.Time
	}

	// An EntryService implements the typed operations over entry records,
	// always scoped by owner identity.
	EntryService struct {
		db    database.Client
		store storage.Store
	}
)

// NewEntry returns a new EntryService.
func NewEntry(db database.Client, store storage.Store) *EntryService {
	return &EntryService{
		db:    db,
		store: store,
	}
}

// Create validates and inserts an entry scoped to the given owner.
func (s *EntryService) Create(user *model.User, params CreateEntryParams) (*model.Entry, error) {
	entry := model.NewEntry(user.ID)
	entry.Title = params.Title
	entry.Content = params.Content
	entry.Topics = params.Topics

	if params.Visibility != "" {
		entry.Visibility = model.Visibility(params.Visibility)
	}

	if params.RequireTitle && entry.Title == "" {
		return nil, lmerror.Validation("Title is required.")
	}
	if err := validateEntry(entry); err != nil {
		return nil, err
	}

	if params.EventDate != "" {
		date, err := time.Parse("2006-01-02", params.EventDate)
		if err != nil {
			return nil, lmerror.Validation("Malformed event date.")
		}
		entry.EventDate = &date
	}

	if params.ScheduledAt != "" {
		at, err := time.Parse(time.RFC3339, params.ScheduledAt)
		if err != nil {
			return nil, lmerror.Validation("Malformed delivery date.")
		}
		entry.ScheduledAt = &at
	}

	if err := s.db.CreateEntryWithMedia(entry, nil); err != nil {
		return nil, errors.Wrap(err, "could not persist entry")
	}
	return entry, nil
}

// Get fetches one entry on behalf of the given viewer.
// The visibility policy is re-evaluated on this very read.
func (s *EntryService) Get(id string, viewerID string, share *model.Share) (*model.Entry, error) {
	entry, err := s.db.FindEntry(id)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, lmerror.NotFound("No such entry.")
		}
		return nil, errors.Wrap(err, "could not get access to database")
	}

	if !model.VisibleTo(entry, viewerID, share) {
		return nil, lmerror.Forbidden("You can not access this entry.")
	}
	return entry, nil
}

// ListForOwner returns the owner's timeline without visibility filtering,
// ordered by sort date descending and capped at OwnerListLimit.
func (s *EntryService) ListForOwner(user *model.User) ([]*model.Entry, error) {
	entries, err := s.db.FindEntriesByOwner(user.ID, OwnerListLimit)
	return entries, errors.Wrap(err, "could not list entries")
}

// Update applies a partial update to the given owner's entry.
func (s *EntryService) Update(id string, user *model.User, patch *EntryPatch) (*model.Entry, error) {
	entry, err := s.db.FindEntry(id)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, lmerror.NotFound("No such entry.")
		}
		return nil, errors.Wrap(err, "could not get access to database")
	}

	if entry.OwnerID != user.ID {
		return nil, lmerror.Forbidden("You can not alter this entry.")
	}

	if patch.ExpectedUpdatedAt != nil && entry.UpdatedAt != nil &&
		!patch.ExpectedUpdatedAt.Equal(*entry.UpdatedAt) {
		return nil, lmerror.Conflict("The entry has been modified by a concurrent update.")
	}

	patch.apply(entry)
	if err := validateEntry(entry); err != nil {
		return nil, err
	}

	if err := s.db.Save(entry); err != nil {
		return nil, errors.Wrap(err, "could not persist entry")
	}
	return entry, nil
}

// Delete removes the given owner's entry, cascading to its media records
// and reclaiming the referenced blobs. A blob deletion failure is logged
// and does not undo the database deletion.
func (s *EntryService) Delete(ctx context.Context, id string, user *model.User) error {
	paths, err := s.db.DeleteEntry(id, user.ID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return lmerror.NotFound("No such entry.")
		}
		return errors.Wrap(err, "could not delete entry")
	}

	for _, path := range paths {
		if err := s.store.Delete(ctx, path); err != nil {
			logrus.WithError(err).WithField("path", path).Warn("could not reclaim blob")
		}
	}
	return nil
}

func validateEntry(entry *model.Entry) error {
	if !entry.Visibility.Valid() {
		return lmerror.Validation("Unknown visibility.")
	}
	if len(entry.Title) > maxTitleLength {
		return lmerror.Validation("Title is too long.")
	}
	if len(entry.Content) > maxContentLength {
		return lmerror.Validation("Content is too long.")
	}
	return nil
}

///// EntryPatch
////
//

var parsers fastjson.ParserPool

// ParseEntryPatch parses the JSON body of a partial update. Every field is
// copied out of the parser's buffer before the pooled parser is released,
// fastjson values only live until the parser's next parse.
func ParseEntryPatch(body []byte) (*EntryPatch, error) {
	parser := parsers.Get()
	defer parsers.Put(parser)

	raw, err := parser.ParseBytes(body)
	if err != nil {
		return nil, lmerror.Validation("Malformed patch.")
	}

	patch := &EntryPatch{
		title:      patchString(raw, "title"),
		content:    patchString(raw, "content"),
		summary:    patchString(raw, "summary"),
		visibility: patchString(raw, "visibility"),
	}

	if v := raw.Get("updated_at"); v != nil {
		at, err := time.Parse(time.RFC3339Nano, string(v.GetStringBytes()))
		if err != nil {
			return nil, lmerror.Validation("Malformed updated_at precondition.")
		}
		patch.ExpectedUpdatedAt = &at
	}

	if v := raw.Get("topics"); v != nil {
		patch.hasTopics = true
		patch.topics = []string{}
		for _, t := range v.GetArray() {
			patch.topics = append(patch.topics, string(t.GetStringBytes()))
		}
	}

	if v := raw.Get("event_date"); v != nil {
		patch.hasEventDate = true
		if v.Type() != fastjson.TypeNull {
			date, err := time.Parse("2006-01-02", string(v.GetStringBytes()))
			if err != nil {
				return nil, lmerror.Validation("Malformed event date.")
			}
			patch.eventDate = &date
		}
	}

	if v := raw.Get("scheduled_at"); v != nil {
		patch.hasScheduledAt = true
		if v.Type() != fastjson.TypeNull {
			at, err := time.Parse(time.RFC3339, string(v.GetStringBytes()))
			if err != nil {
				return nil, lmerror.Validation("Malformed delivery date.")
			}
			patch.scheduledAt = &at
		}
	}

	return patch, nil
}

func patchString(raw *fastjson.Value, key string) *string {
	v := raw.Get(key)
	if v == nil {
		return nil
	}
	s := string(v.GetStringBytes())
	return &s
}

// apply copies the present fields onto the entry. The owner identifier,
// timestamps and delivery flag are never patchable.
func (p *EntryPatch) apply(entry *model.Entry) {
	if p.title != nil {
		entry.Title = *p.title
	}
	if p.content != nil {
		entry.Content = *p.content
	}
	if p.summary != nil {
		entry.Summary = *p.summary
	}
	if p.visibility != nil {
		entry.Visibility = model.Visibility(*p.visibility)
	}
	if p.hasTopics {
		entry.Topics = p.topics
	}
	if p.hasEventDate {
		entry.EventDate = p.eventDate
	}
	if p.hasScheduledAt {
		entry.ScheduledAt = p.scheduledAt
	}
}
