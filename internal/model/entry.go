package model

import (
	"time"
)

// An Entry represents a single journaled memory.
type Entry struct {
	Base `msgpack:",inline" storm:"inline"`

	OwnerID    string     `json:"owner_id"   msgpack:"owner_id"   storm:"index"`
	Title      string     `json:"title,omitempty"      msgpack:"title"`
	Content    string     `json:"content,omitempty"    msgpack:"content"`
	Summary    string     `json:"summary,omitempty"    msgpack:"summary"`
	Topics     []string   `json:"topics,omitempty"     msgpack:"topics"`
	Visibility Visibility `json:"visibility" msgpack:"visibility" storm:"index"`

	// EventDate is the calendar date the memory refers to. When absent the
	// creation timestamp drives the timeline ordering.
	EventDate *time.Time `json:"event_date,omitempty" msgpack:"event_date"`

	// Scheduled delivery of time-capsule entries.
	Delivered   bool       `json:"delivered"              msgpack:"delivered"    storm:"index"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" msgpack:"scheduled_at"`
}

// NewEntry returns an entry with default params.
func NewEntry(ownerID string) *Entry {
	return &Entry{
		OwnerID:    ownerID,
		Visibility: VisibilityPrivate,
	}
}

// SortDate returns the timeline sort key: the event date when set,
// the creation date otherwise.
func (e *Entry) SortDate() time.Time {
	if e.EventDate != nil {
		return *e.EventDate
	}
	if e.CreatedAt != nil {
		return *e.CreatedAt
	}
	return time.Time{}
}

// Due returns true if the entry is scheduled and its delivery time has
// passed without being delivered yet.
func (e *Entry) Due(now time.Time) bool {
	return !e.Delivered && e.ScheduledAt != nil && !e.ScheduledAt.After(now)
}
