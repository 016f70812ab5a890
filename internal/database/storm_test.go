package database_test

import (
	"os"
	"testing"
	"time"

	"github.com/lifemoments/lifemoments/internal/database"
	"github.com/lifemoments/lifemoments/internal/model"
	"github.com/stretchr/testify/assert"
)

func setup(t *testing.T) (client database.Client, cleanup func()) {
	tmpfile, err := os.CreateTemp("", "lifemoments.*.db")
	if err != nil {
		t.Fatal(err)
	}
	filename := tmpfile.Name()
	tmpfile.Close()

	client, err = database.StormOpen(filename)
	if err != nil {
		t.Fatal(err)
	}

	return client, func() {
		client.Close()
		os.Remove(filename)
	}
}

func TestStormSave(t *testing.T) {
	client, cleanup := setup(t)
	defer cleanup()

	entry := model.NewEntry("owner-1")
	entry.Title = "First steps"

	assert.NoError(t, client.Save(entry))
	assert.NotEmpty(t, entry.ID)
	assert.NotNil(t, entry.CreatedAt)
	assert.NotNil(t, entry.UpdatedAt)

	stored, err := client.FindEntry(entry.ID)
	assert.NoError(t, err)
	assert.Equal(t, "First steps", stored.Title)
	assert.Equal(t, model.VisibilityPrivate, stored.Visibility)
}

func TestStormFindEntriesByOwner(t *testing.T) {
	client, cleanup := setup(t)
	defer cleanup()

	// Three entries: the second carries an old event date so it must sort
	// last despite being created after the first one.
	older := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)

	e1 := model.NewEntry("owner-1")
	e1.Title = "recent"
	assert.NoError(t, client.Save(e1))

	e2 := model.NewEntry("owner-1")
	e2.Title = "backdated"
	e2.EventDate = &older
	assert.NoError(t, client.Save(e2))

	e3 := model.NewEntry("owner-1")
	e3.Title = "latest"
	assert.NoError(t, client.Save(e3))

	other := model.NewEntry("owner-2")
	assert.NoError(t, client.Save(other))

	entries, err := client.FindEntriesByOwner("owner-1", 0)
	assert.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, "latest", entries[0].Title)
	assert.Equal(t, "recent", entries[1].Title)
	assert.Equal(t, "backdated", entries[2].Title)

	entries, err = client.FindEntriesByOwner("owner-1", 2)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "latest", entries[0].Title)

	entries, err = client.FindEntriesByOwner("owner-3", 0)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStormFindEntriesByVisibility(t *testing.T) {
	client, cleanup := setup(t)
	defer cleanup()

	private := model.NewEntry("owner-1")
	assert.NoError(t, client.Save(private))

	family := model.NewEntry("owner-1")
	family.Visibility = model.VisibilityFamily
	assert.NoError(t, client.Save(family))

	public := model.NewEntry("owner-1")
	public.Visibility = model.VisibilityPublic
	assert.NoError(t, client.Save(public))

	entries, err := client.FindEntriesByVisibility("owner-1", []model.Visibility{model.VisibilityPublic})
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, public.ID, entries[0].ID)

	entries, err = client.FindEntriesByVisibility("owner-1", []model.Visibility{model.VisibilityFamily, model.VisibilityPublic})
	assert.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = client.FindEntriesByVisibility("owner-1", nil)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStormFindDueEntries(t *testing.T) {
	client, cleanup := setup(t)
	defer cleanup()

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	due := model.NewEntry("owner-1")
	due.ScheduledAt = &past
	assert.NoError(t, client.Save(due))

	notyet := model.NewEntry("owner-1")
	notyet.ScheduledAt = &future
	assert.NoError(t, client.Save(notyet))

	done := model.NewEntry("owner-1")
	done.ScheduledAt = &past
	done.Delivered = true
	assert.NoError(t, client.Save(done))

	unscheduled := model.NewEntry("owner-1")
	assert.NoError(t, client.Save(unscheduled))

	entries, err := client.FindDueEntries(now)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, due.ID, entries[0].ID)
}

func TestStormCreateEntryWithMedia(t *testing.T) {
	client, cleanup := setup(t)
	defer cleanup()

	entry := model.NewEntry("owner-1")
	media := model.NewAudioMedia("", "owner-1/blob.webm", "audio/webm", 12.5)

	assert.NoError(t, client.CreateEntryWithMedia(entry, media))
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, entry.ID, media.EntryID)

	stored, err := client.FindMediaByEntry(entry.ID)
	assert.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Equal(t, "owner-1/blob.webm", stored[0].StoragePath)

	// No media attached.
	bare := model.NewEntry("owner-1")
	assert.NoError(t, client.CreateEntryWithMedia(bare, nil))

	stored, err = client.FindMediaByEntry(bare.ID)
	assert.NoError(t, err)
	assert.Empty(t, stored)
}

func TestStormDeleteEntry(t *testing.T) {
	client, cleanup := setup(t)
	defer cleanup()

	entry := model.NewEntry("owner-1")
	media := model.NewAudioMedia("", "owner-1/blob.webm", "audio/webm", 0)
	assert.NoError(t, client.CreateEntryWithMedia(entry, media))

	// Wrong owner must not delete anything.
	_, err := client.DeleteEntry(entry.ID, "owner-2")
	assert.True(t, client.IsNotFound(err))

	paths, err := client.DeleteEntry(entry.ID, "owner-1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"owner-1/blob.webm"}, paths)

	_, err = client.FindEntry(entry.ID)
	assert.True(t, client.IsNotFound(err))
	_, err = client.FindMedia(media.ID)
	assert.True(t, client.IsNotFound(err))
}

func TestStormShares(t *testing.T) {
	client, cleanup := setup(t)
	defer cleanup()

	share := &model.Share{
		OwnerID:           "owner-1",
		Label:             "grandma",
		Token:             "762c93f1ab07d1fa0ff1d064302e4e46",
		AllowedVisibility: []model.Visibility{model.VisibilityPublic},
	}
	assert.NoError(t, client.Save(share))

	stored, err := client.FindShareByToken(share.Token)
	assert.NoError(t, err)
	assert.Equal(t, share.ID, stored.ID)

	_, err = client.FindShareByToken("unknown")
	assert.True(t, client.IsNotFound(err))

	stored, err = client.FindShareByOwner(share.ID, "owner-1")
	assert.NoError(t, err)
	assert.Equal(t, "grandma", stored.Label)

	_, err = client.FindShareByOwner(share.ID, "owner-2")
	assert.True(t, client.IsNotFound(err))

	shares, err := client.FindSharesByOwner("owner-1")
	assert.NoError(t, err)
	assert.Len(t, shares, 1)
}

func TestStormUsersAndSessions(t *testing.T) {
	client, cleanup := setup(t)
	defer cleanup()

	user := model.NewUser("rose@lifemoments.test")
	user.Password = "hashed"
	assert.NoError(t, client.Save(user))

	stored, err := client.FindUserByMail("rose@lifemoments.test")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)

	session := &model.Session{
		UserID:       user.ID,
		UserAgent:    "Go-http-client/1.1",
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpireAt:     time.Now().Add(time.Hour),
	}
	assert.NoError(t, client.Save(session))

	s, err := client.FindSessionByAccessToken("access-token")
	assert.NoError(t, err)
	assert.Equal(t, session.ID, s.ID)

	s, err = client.FindSessionByTokens("access-token", "refresh-token")
	assert.NoError(t, err)
	assert.Equal(t, session.ID, s.ID)

	_, err = client.FindSessionByTokens("access-token", "wrong")
	assert.True(t, client.IsNotFound(err))

	sessions, err := client.FindSessionsByUserID(user.ID)
	assert.NoError(t, err)
	assert.Len(t, sessions, 1)
}
