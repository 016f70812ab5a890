package server_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/appleboy/gofight/v2"
	"github.com/lifemoments/lifemoments/internal/model"
	"github.com/lifemoments/lifemoments/internal/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fastjson"
)

func TestRequestEntryCreate(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	user, session := createUserWithSession(ctrl, "rose@lifemoments.test")

	params := gofight.D{
		"title":      "Sunday at the lake",
		"content":    "We rowed until sunset.",
		"visibility": "family",
		"topics":     []string{"family", "summer"},
		"event_date": "2024-07-14",
	}
	var id string
	r.POST("/api/entries").SetHeader(bearer(session)).SetJSON(params).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)

			v, err := fastjson.Parse(r.Body.String())
			assert.NoError(t, err)
			assert.True(t, v.GetBool("ok"))
			id = string(v.GetStringBytes("id"))
			assert.NotEmpty(t, id)
		})

	entry, err := ctrl.Database.FindEntry(id)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, entry.OwnerID)
	assert.Equal(t, model.VisibilityFamily, entry.Visibility)
	assert.Equal(t, []string{"family", "summer"}, entry.Topics)
	assert.NotNil(t, entry.EventDate)
	assert.Equal(t, "2024-07-14", entry.EventDate.Format("2006-01-02"))

	// A missing visibility falls back on private.
	r.POST("/api/entries").SetHeader(bearer(session)).SetJSON(gofight.D{"content": "quiet day"}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)

			v, err := fastjson.Parse(r.Body.String())
			assert.NoError(t, err)
			entry, err := ctrl.Database.FindEntry(string(v.GetStringBytes("id")))
			assert.NoError(t, err)
			assert.Equal(t, model.VisibilityPrivate, entry.Visibility)
		})
}

func TestRequestEntryCreateForm(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	user, session := createUserWithSession(ctrl, "rose@lifemoments.test")

	// The form path requires a title, the JSON path does not.
	r.POST("/api/entries").SetHeader(bearer(session)).
		SetForm(gofight.H{"content": "We rowed until sunset."}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
			assert.JSONEq(t, `{"error":{"tag":"validation","message":"Title is required."}}`, r.Body.String())
		})

	var id string
	r.POST("/api/entries").SetHeader(bearer(session)).
		SetForm(gofight.H{"title": "Sunday at the lake", "content": "We rowed until sunset.", "visibility": "family"}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)

			v, err := fastjson.Parse(r.Body.String())
			assert.NoError(t, err)
			id = string(v.GetStringBytes("id"))
		})

	entry, err := ctrl.Database.FindEntry(id)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, entry.OwnerID)
	assert.Equal(t, "Sunday at the lake", entry.Title)
	assert.Equal(t, model.VisibilityFamily, entry.Visibility)
}

func TestRequestEntryCreateValidation(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	_, session := createUserWithSession(ctrl, "rose@lifemoments.test")

	r.POST("/api/entries").SetHeader(bearer(session)).
		SetJSON(gofight.D{"visibility": "everyone"}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
			assert.JSONEq(t, `{"error":{"tag":"validation","message":"Unknown visibility."}}`, r.Body.String())
		})

	title := make([]byte, 101)
	for i := range title {
		title[i] = 'a'
	}
	r.POST("/api/entries").SetHeader(bearer(session)).
		SetJSON(gofight.D{"title": string(title)}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
			assert.JSONEq(t, `{"error":{"tag":"validation","message":"Title is too long."}}`, r.Body.String())
		})

	r.POST("/api/entries").SetHeader(bearer(session)).
		SetJSON(gofight.D{"event_date": "14/07/2024"}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
			assert.JSONEq(t, `{"error":{"tag":"validation","message":"Malformed event date."}}`, r.Body.String())
		})
}

func TestRequestEntryShow(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	user, session := createUserWithSession(ctrl, "rose@lifemoments.test")
	_, intruder := createUserWithSession(ctrl, "louis@lifemoments.test")

	entry := model.NewEntry(user.ID)
	entry.Title = "Sunday at the lake"
	entry.Content = "We rowed until sunset."
	entry.Topics = []string{"summer"}
	media := model.NewAudioMedia(entry.ID, user.ID+"/clip.webm", "audio/webm", 8.2)
	assert.NoError(t, ctrl.Database.CreateEntryWithMedia(entry, media))

	// Create then get round-trips every field, attachments included.
	r.GET("/api/entries/"+entry.ID).SetHeader(bearer(session)).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)

			v, err := fastjson.Parse(r.Body.String())
			assert.NoError(t, err)
			assert.Equal(t, entry.ID, string(v.GetStringBytes("entry", "id")))
			assert.Equal(t, "Sunday at the lake", string(v.GetStringBytes("entry", "title")))
			assert.Equal(t, "We rowed until sunset.", string(v.GetStringBytes("entry", "content")))
			assert.Equal(t, "private", string(v.GetStringBytes("entry", "visibility")))

			attachments := v.GetArray("media")
			assert.Len(t, attachments, 1)
			assert.Equal(t, media.ID, string(attachments[0].GetStringBytes("id")))
			assert.Equal(t, "audio", string(attachments[0].GetStringBytes("kind")))
		})

	// Another signed-in user never reads someone else's private entry.
	r.GET("/api/entries/"+entry.ID).SetHeader(bearer(intruder)).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusForbidden, r.Code)
		})

	r.GET("/api/entries/unknown").SetHeader(bearer(session)).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusNotFound, r.Code)
		})
}

func TestRequestEntryList(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	user, session := createUserWithSession(ctrl, "rose@lifemoments.test")
	other, _ := createUserWithSession(ctrl, "louis@lifemoments.test")

	backdated := time.Date(2019, 3, 2, 0, 0, 0, 0, time.UTC)

	recent := model.NewEntry(user.ID)
	recent.Title = "recent"
	assert.NoError(t, ctrl.Database.Save(recent))

	old := model.NewEntry(user.ID)
	old.Title = "backdated"
	old.EventDate = &backdated
	assert.NoError(t, ctrl.Database.Save(old))

	foreign := model.NewEntry(other.ID)
	foreign.Title = "not mine"
	assert.NoError(t, ctrl.Database.Save(foreign))

	r.GET("/api/entries").SetHeader(bearer(session)).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)

			v, err := fastjson.Parse(r.Body.String())
			assert.NoError(t, err)
			entries := v.GetArray("entries")
			assert.Len(t, entries, 2)
			assert.Equal(t, "recent", string(entries[0].GetStringBytes("title")))
			assert.Equal(t, "backdated", string(entries[1].GetStringBytes("title")))
		})
}

func TestRequestEntryUpdate(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	user, session := createUserWithSession(ctrl, "rose@lifemoments.test")
	_, intruder := createUserWithSession(ctrl, "louis@lifemoments.test")

	entry := model.NewEntry(user.ID)
	entry.Title = "draft"
	assert.NoError(t, ctrl.Database.Save(entry))

	path := "/api/entries/" + entry.ID

	r.PATCH(path).SetHeader(bearer(intruder)).SetBody(`{"title":"hijacked"}`).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusForbidden, r.Code)
		})

	r.PATCH(path).SetHeader(bearer(session)).SetBody(`{"title":"Sunday at the lake","visibility":"public"}`).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)

			v, err := fastjson.Parse(r.Body.String())
			assert.NoError(t, err)
			assert.Equal(t, "Sunday at the lake", string(v.GetStringBytes("entry", "title")))
			assert.Equal(t, "public", string(v.GetStringBytes("entry", "visibility")))
		})

	r.PATCH(path).SetHeader(bearer(session)).SetBody(`not-json`).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusBadRequest, r.Code)
		})

	r.PATCH("/api/entries/unknown").SetHeader(bearer(session)).SetBody(`{"title":"x"}`).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusNotFound, r.Code)
		})
}

func TestRequestEntryUpdateConflict(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	user, session := createUserWithSession(ctrl, "rose@lifemoments.test")

	entry := model.NewEntry(user.ID)
	assert.NoError(t, ctrl.Database.Save(entry))
	path := "/api/entries/" + entry.ID

	// The precondition carries a timestamp the entry no longer has.
	stale := entry.UpdatedAt.Add(-time.Second).Format(time.RFC3339Nano)
	body := fmt.Sprintf(`{"title":"late edit","updated_at":%q}`, stale)
	r.PATCH(path).SetHeader(bearer(session)).SetBody(body).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusConflict, r.Code)
			assert.JSONEq(t, `{"error":{"tag":"stale-entry","message":"The entry has been modified by a concurrent update."}}`, r.Body.String())
		})

	body = fmt.Sprintf(`{"title":"fresh edit","updated_at":%q}`, entry.UpdatedAt.Format(time.RFC3339Nano))
	r.PATCH(path).SetHeader(bearer(session)).SetBody(body).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)
		})
}

func TestRequestEntryDelete(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	user, session := createUserWithSession(ctrl, "rose@lifemoments.test")
	store := ctrl.Store.(*storage.Memory)

	entry := model.NewEntry(user.ID)
	media := model.NewAudioMedia("", user.ID+"/blob.webm", "audio/webm", 4.2)
	assert.NoError(t, ctrl.Database.CreateEntryWithMedia(entry, media))
	assert.NoError(t, store.Put(context.Background(), media.StoragePath, "audio/webm", bytes.NewReader([]byte("opus-frames"))))

	r.DELETE("/api/entries/"+entry.ID).SetHeader(bearer(session)).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)
			assert.JSONEq(t, `{"ok":true}`, r.Body.String())
		})

	_, err := ctrl.Database.FindEntry(entry.ID)
	assert.True(t, ctrl.Database.IsNotFound(err))
	assert.Equal(t, 0, store.Len())

	r.DELETE("/api/entries/"+entry.ID).SetHeader(bearer(session)).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusNotFound, r.Code)
		})
}

func TestRequestEntrySummarize(t *testing.T) {
	engine, ctrl, r, cleanup := setupWithAI(&stubAI{summary: "Rowing until sunset, together."})
	defer cleanup()

	user, session := createUserWithSession(ctrl, "rose@lifemoments.test")
	_, intruder := createUserWithSession(ctrl, "louis@lifemoments.test")

	entry := model.NewEntry(user.ID)
	entry.Content = "We rowed until sunset."
	assert.NoError(t, ctrl.Database.Save(entry))

	params := gofight.D{"entry_id": entry.ID}
	r.POST("/api/summarize").SetHeader(bearer(intruder)).SetJSON(params).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusForbidden, r.Code)
		})

	r.POST("/api/summarize").SetHeader(bearer(session)).SetJSON(params).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusOK, r.Code)
			assert.JSONEq(t, `{"summary":"Rowing until sunset, together."}`, r.Body.String())
		})

	stored, err := ctrl.Database.FindEntry(entry.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Rowing until sunset, together.", stored.Summary)
}

func TestRequestEntrySummarizeUpstreamFailure(t *testing.T) {
	engine, ctrl, r, cleanup := setupWithAI(&stubAI{summarizeErr: errors.New("boom")})
	defer cleanup()

	user, session := createUserWithSession(ctrl, "rose@lifemoments.test")

	entry := model.NewEntry(user.ID)
	entry.Content = "We rowed until sunset."
	assert.NoError(t, ctrl.Database.Save(entry))

	// Upstream failures are masked behind an opaque error identifier.
	r.POST("/api/summarize").SetHeader(bearer(session)).SetJSON(gofight.D{"entry_id": entry.ID}).
		Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equal(t, http.StatusInternalServerError, r.Code)
			assert.Contains(t, r.Body.String(), "Unexpected error")
		})

	stored, err := ctrl.Database.FindEntry(entry.ID)
	assert.NoError(t, err)
	assert.Empty(t, stored.Summary)
}

func TestRequestEntryPublicShow(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	user, _ := createUserWithSession(ctrl, "rose@lifemoments.test")

	expected := map[model.Visibility]int{
		model.VisibilityPrivate: http.StatusNotFound,
		model.VisibilityFamily:  http.StatusNotFound,
		model.VisibilityLink:    http.StatusOK,
		model.VisibilityPublic:  http.StatusOK,
	}

	for visibility, code := range expected {
		entry := model.NewEntry(user.ID)
		entry.Visibility = visibility
		assert.NoError(t, ctrl.Database.Save(entry))

		r.GET("/p/entries/"+entry.ID).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
			assert.Equalf(t, code, r.Code, "visibility %s", visibility)
		})
	}

	r.GET("/p/entries/unknown").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusNotFound, r.Code)
	})
}
