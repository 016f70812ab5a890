package database

import (
	"sort"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/codec/msgpack"
	"github.com/asdine/storm/v3/q"
	"github.com/gofrs/uuid"
	"github.com/lifemoments/lifemoments/internal/model"
	"github.com/pkg/errors"
)

type strm struct {
	db *storm.DB
}

// StormCodec is the format used to store data in the database.
var StormCodec = storm.Codec(msgpack.Codec)

// StormInit initializes Storm database.
func StormInit(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	for _, m := range []any{
		&model.User{},
		&model.Session{},
		&model.Entry{},
		&model.Media{},
		&model.Share{},
	} {
		if err := db.Init(m); err != nil {
			return errors.Wrap(err, "could not init index")
		}
	}
	return nil
}

// StormReIndex reindex Storm database.
func StormReIndex(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	for _, m := range []any{
		&model.User{},
		&model.Session{},
		&model.Entry{},
		&model.Media{},
		&model.Share{},
	} {
		if err := db.ReIndex(m); err != nil {
			return errors.Wrap(err, "could not reindex")
		}
	}
	return nil
}

// StormOpen returns a new Storm database connection.
func StormOpen(database string) (Client, error) {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	return &strm{
		db: db,
	}, nil
}

// Save inserts or updates the entry in database with the given model.
func (c *strm) Save(m model.Model) error {
	touch(m)
	return errors.Wrap(c.db.Save(m), "could not save the model")
}

// Delete deletes the entry in database with the given model.
func (c *strm) Delete(m model.Model) error {
	return errors.Wrap(c.db.DeleteStruct(m), "could not delete the model")
}

// Close the database.
func (c *strm) Close() error {
	return c.db.Close()
}

// IsNotFound returns true if err is a not found error.
func (c *strm) IsNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

// touch assigns the identifier and timestamps of a record before save.
func touch(m model.Model) {
	t := time.Now().UTC()
	m.SetUpdatedAt(t)

	if m.GetID() == "" {
		m.SetID(uuid.Must(uuid.NewV4()).String())
		m.SetCreatedAt(t)
	}
}

// FindUser returns the user for the given id (UUID).
func (c *strm) FindUser(id string) (*model.User, error) {
	var user model.User
	if err := c.db.One("ID", id, &user); err != nil {
		return nil, errors.Wrap(err, "find user by id")
	}
	return &user, nil
}

// FindUserByMail returns the user for the given email.
func (c *strm) FindUserByMail(email string) (*model.User, error) {
	var user model.User
	if err := c.db.One("Email", email, &user); err != nil {
		return nil, errors.Wrap(err, "find user by mail")
	}
	return &user, nil
}

// FindSessionByAccessToken returns the session for the given access token.
func (c *strm) FindSessionByAccessToken(token string) (*model.Session, error) {
	var session model.Session
	if err := c.db.One("AccessToken", token, &session); err != nil {
		return nil, errors.Wrap(err, "find session by access token")
	}
	return &session, nil
}

// FindSessionByTokens returns the session for the given access and refresh token.
func (c *strm) FindSessionByTokens(access, refresh string) (*model.Session, error) {
	var session model.Session
	err := c.db.Select(q.Eq("AccessToken", access), q.Eq("RefreshToken", refresh)).First(&session)
	if err != nil {
		return nil, errors.Wrap(err, "find session by tokens")
	}
	return &session, nil
}

// FindSessionsByUserID returns all the sessions for the given user id.
func (c *strm) FindSessionsByUserID(userID string) ([]*model.Session, error) {
	sessions := make([]*model.Session, 0)
	err := c.db.Select(q.Eq("UserID", userID)).OrderBy("CreatedAt").Find(&sessions)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find sessions by user id")
	}
	return sessions, nil
}

// FindEntry returns the entry for the given id (UUID).
func (c *strm) FindEntry(id string) (*model.Entry, error) {
	var entry model.Entry
	if err := c.db.One("ID", id, &entry); err != nil {
		return nil, errors.Wrap(err, "could not find entry")
	}
	return &entry, nil
}

// FindEntriesByOwner returns the owner's entries ordered by sort date
// descending, capped at limit. limit equals to 0 means all entries.
//
// The sort key is computed (event date falling back on creation date) so the
// ordering happens here rather than on a stored index.
func (c *strm) FindEntriesByOwner(ownerID string, limit int) ([]*model.Entry, error) {
	entries := make([]*model.Entry, 0)
	err := c.db.Select(q.Eq("OwnerID", ownerID)).Find(&entries)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find entries by owner id")
	}

	sort.SliceStable(entries, func(i, j int) bool {
		si, sj := entries[i].SortDate(), entries[j].SortDate()
		if si.Equal(sj) {
			return entries[i].CreatedAt != nil && entries[j].CreatedAt != nil &&
				entries[i].CreatedAt.After(*entries[j].CreatedAt)
		}
		return si.After(sj)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// FindEntriesByVisibility returns the owner's entries restricted to the
// given tiers, ordered by creation time descending.
func (c *strm) FindEntriesByVisibility(ownerID string, tiers []model.Visibility) ([]*model.Entry, error) {
	if len(tiers) == 0 {
		return []*model.Entry{}, nil
	}

	entries := make([]*model.Entry, 0)
	err := c.db.Select(q.Eq("OwnerID", ownerID), q.In("Visibility", tiers)).
		OrderBy("CreatedAt").Reverse().Find(&entries)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find entries by visibility")
	}
	return entries, nil
}

// FindDueEntries returns undelivered entries scheduled before now.
func (c *strm) FindDueEntries(now time.Time) ([]*model.Entry, error) {
	entries := make([]*model.Entry, 0)
	err := c.db.Select(q.Eq("Delivered", false)).Find(&entries)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find scheduled entries")
	}

	due := entries[:0]
	for _, entry := range entries {
		if entry.Due(now) {
			due = append(due, entry)
		}
	}
	return due, nil
}

// CreateEntryWithMedia inserts the entry and its optional media attachment
// in a single transaction so a failing media insert can not leave an entry
// with a dangling attachment reference.
func (c *strm) CreateEntryWithMedia(entry *model.Entry, media *model.Media) error {
	tx, err := c.db.Begin(true)
	if err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback()

	touch(entry)
	if err := tx.Save(entry); err != nil {
		return errors.Wrap(err, "could not save entry")
	}

	if media != nil {
		media.EntryID = entry.ID
		touch(media)
		if err := tx.Save(media); err != nil {
			return errors.Wrap(err, "could not save media")
		}
	}

	return errors.Wrap(tx.Commit(), "could not commit entry creation")
}

// DeleteEntry deletes the entry and cascades to its media records.
func (c *strm) DeleteEntry(id, ownerID string) ([]string, error) {
	tx, err := c.db.Begin(true)
	if err != nil {
		return nil, errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback()

	var entry model.Entry
	err = tx.Select(q.Eq("ID", id), q.Eq("OwnerID", ownerID)).First(&entry)
	if err != nil {
		return nil, errors.Wrap(err, "could not find entry by owner id")
	}

	media := make([]*model.Media, 0)
	err = tx.Select(q.Eq("EntryID", entry.ID)).Find(&media)
	if err != nil && errors.Cause(err) != storm.ErrNotFound {
		return nil, errors.Wrap(err, "could not find entry media")
	}

	paths := make([]string, 0, len(media))
	for _, m := range media {
		paths = append(paths, m.StoragePath)
		if err := tx.DeleteStruct(m); err != nil {
			return nil, errors.Wrap(err, "could not delete media")
		}
	}

	if err := tx.DeleteStruct(&entry); err != nil {
		return nil, errors.Wrap(err, "could not delete entry")
	}

	return paths, errors.Wrap(tx.Commit(), "could not commit entry deletion")
}

// FindMedia returns the media for the given id (UUID).
func (c *strm) FindMedia(id string) (*model.Media, error) {
	var media model.Media
	if err := c.db.One("ID", id, &media); err != nil {
		return nil, errors.Wrap(err, "could not find media")
	}
	return &media, nil
}

// FindMediaByEntry returns all media attached to the given entry.
func (c *strm) FindMediaByEntry(entryID string) ([]*model.Media, error) {
	media := make([]*model.Media, 0)
	err := c.db.Select(q.Eq("EntryID", entryID)).OrderBy("CreatedAt").Find(&media)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find media by entry id")
	}
	return media, nil
}

// FindShareByToken returns the share for the given token.
func (c *strm) FindShareByToken(token string) (*model.Share, error) {
	var share model.Share
	if err := c.db.One("Token", token, &share); err != nil {
		return nil, errors.Wrap(err, "could not find share by token")
	}
	return &share, nil
}

// FindShareByOwner returns the share for the given id and owner id.
func (c *strm) FindShareByOwner(id, ownerID string) (*model.Share, error) {
	var share model.Share
	err := c.db.Select(q.Eq("ID", id), q.Eq("OwnerID", ownerID)).First(&share)
	if err != nil {
		return nil, errors.Wrap(err, "could not find share by owner id")
	}
	return &share, nil
}

// FindSharesByOwner returns all shares minted by the given owner.
func (c *strm) FindSharesByOwner(ownerID string) ([]*model.Share, error) {
	shares := make([]*model.Share, 0)
	err := c.db.Select(q.Eq("OwnerID", ownerID)).OrderBy("CreatedAt").Find(&shares)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find shares by owner id")
	}
	return shares, nil
}
