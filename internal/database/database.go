package database

import (
	"time"

	"github.com/lifemoments/lifemoments/internal/model"
)

type (
	// A Client can interacts with the database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		Save(m model.Model) error
		// Delete deletes the entry in database with the given model.
		Delete(m model.Model) error
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool

		UserInteraction
		SessionInteraction
		EntryInteraction
		MediaInteraction
		ShareInteraction
	}

	// An UserInteraction defines all the methods used to interact with a user record.
	UserInteraction interface {
		// FindUser returns the user for the given id (UUID).
		FindUser(id string) (*model.User, error)
		// FindUserByMail returns the user for the given email.
		FindUserByMail(email string) (*model.User, error)
	}

	// An SessionInteraction defines all the methods used to interact with a session record.
	SessionInteraction interface {
		// FindSessionByAccessToken returns the session for the given access token.
		FindSessionByAccessToken(token string) (*model.Session, error)
		// FindSessionByTokens returns the session for the given access and refresh token.
		FindSessionByTokens(access, refresh string) (*model.Session, error)
		// FindSessionsByUserID returns all sessions for the given user id.
		FindSessionsByUserID(userID string) ([]*model.Session, error)
	}

	// An EntryInteraction defines all the methods used to interact with entry record(s).
	EntryInteraction interface {
		// FindEntry returns the entry for the given id (UUID).
		FindEntry(id string) (*model.Entry, error)
		// FindEntriesByOwner returns the owner's entries ordered by sort date
		// (event date when set, creation date otherwise) descending,
		// capped at limit. limit equals to 0 means all entries.
		FindEntriesByOwner(ownerID string, limit int) ([]*model.Entry, error)
		// FindEntriesByVisibility returns the owner's entries restricted to
		// the given tiers, ordered by creation time descending.
		FindEntriesByVisibility(ownerID string, tiers []model.Visibility) ([]*model.Entry, error)
		// FindDueEntries returns undelivered entries scheduled before now.
		FindDueEntries(now time.Time) ([]*model.Entry, error)
		// CreateEntryWithMedia inserts the entry and its optional media
		// attachment in a single transaction. media can be nil.
		CreateEntryWithMedia(entry *model.Entry, media *model.Media) error
		// DeleteEntry deletes the entry and cascades to its media records in
		// a single transaction. It returns the storage paths of the deleted
		// media so the caller can reclaim the underlying blobs.
		DeleteEntry(id, ownerID string) ([]string, error)
	}

	// A MediaInteraction defines all the methods used to interact with media record(s).
	MediaInteraction interface {
		// FindMedia returns the media for the given id (UUID).
		FindMedia(id string) (*model.Media, error)
		// FindMediaByEntry returns all media attached to the given entry.
		FindMediaByEntry(entryID string) ([]*model.Media, error)
	}

	// A ShareInteraction defines all the methods used to interact with share record(s).
	ShareInteraction interface {
		// FindShareByToken returns the share for the given token.
		FindShareByToken(token string) (*model.Share, error)
		// FindShareByOwner returns the share for the given id and owner id.
		FindShareByOwner(id, ownerID string) (*model.Share, error)
		// FindSharesByOwner returns all shares minted by the given owner.
		FindSharesByOwner(ownerID string) ([]*model.Share, error)
	}
)
