package service

import (
	"bytes"
	"context"
	"path"

	"github.com/lifemoments/lifemoments/internal/ai"
	"github.com/lifemoments/lifemoments/internal/database"
	"github.com/lifemoments/lifemoments/internal/lmerror"
	"github.com/lifemoments/lifemoments/internal/model"
	"github.com/lifemoments/lifemoments/internal/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A CaptureState is a step of the capture pipeline.
type CaptureState string

// Pipeline steps, linear. Failed is reachable from any non-terminal state.
const (
	CaptureIdle         CaptureState = "idle"
	CaptureRecording    CaptureState = "recording"
	CaptureStopped      CaptureState = "stopped"
	CaptureUploading    CaptureState = "uploading"
	CaptureTranscribing CaptureState = "transcribing"
	CaptureSummarizing  CaptureState = "summarizing"
	CapturePersisted    CaptureState = "persisted"
	CaptureFailed       CaptureState = "failed"
)

// FallbackContent replaces the transcript when the transcription service
// failed, so the raw capture is never lost.
const FallbackContent = "(audio entry)"

// MaxCaptureSize caps uploaded captures at 10 MiB.
const MaxCaptureSize = 10 << 20

// allowedCaptureMIME is the capture MIME allow-list with per-type media kind.
var allowedCaptureMIME = map[string]model.MediaKind{
	"audio/webm": model.MediaAudio,
	"audio/wav":  model.MediaAudio,
	"audio/mpeg": model.MediaAudio,
	"audio/mp4":  model.MediaAudio,
	"video/webm": model.MediaVideo,
}

type (
	// CaptureParams are used to run the capture pipeline on a finished
	// recording.
	CaptureParams struct {
		Params
		Filename    string
		ContentType string
		Visibility  string
		Duration    float64
		Blob        []byte
	}

	// A CaptureService orchestrates the capture pipeline:
	// upload the raw blob, transcribe it, summarize the transcript and
	// persist the entry with its media attachment.
	//
	// Transcription and summarization failures are non-fatal. Storage and
	// database failures are fatal. Nothing is ever retried.
	CaptureService struct {
		db    database.Client
		store storage.Store
		ai    ai.Client

		user   *model.User
		params CaptureParams
		state  CaptureState
	}
)

// NewCapture instantiates a new CaptureService for one capture session.
// Sessions are independent, the service holds no state shared across them.
func NewCapture(db database.Client, store storage.Store, aic ai.Client, user *model.User, params CaptureParams) *CaptureService {
	return &CaptureService{
		db:     db,
		store:  store,
		ai:     aic,
		user:   user,
		params: params,
		state:  CaptureStopped,
	}
}

// State returns the pipeline step the service stopped at.
func (s *CaptureService) State() CaptureState {
	return s.state
}

// Execute runs the pipeline to completion.
func (s *CaptureService) Execute(ctx context.Context) (*model.Entry, error) {
	kind, ok := allowedCaptureMIME[s.params.ContentType]
	if !ok {
		s.state = CaptureFailed
		return nil, lmerror.Validation("Invalid file type. Please upload audio files only.")
	}
	if len(s.params.Blob) == 0 {
		s.state = CaptureFailed
		return nil, lmerror.Validation("File missing.")
	}
	if len(s.params.Blob) > MaxCaptureSize {
		s.state = CaptureFailed
		return nil, lmerror.Validation("File too large. Please keep audio files under 10MB.")
	}

	visibility := model.VisibilityPrivate
	if s.params.Visibility != "" {
		visibility = model.Visibility(s.params.Visibility)
	}
	if !visibility.Valid() {
		s.state = CaptureFailed
		return nil, lmerror.Validation("Unknown visibility.")
	}

	// Upload. A storage failure aborts the pipeline, nothing has been
	// persisted yet.
	s.state = CaptureUploading
	key := storage.Key(s.user.ID, s.params.ContentType)
	if err := s.store.Put(ctx, key, s.params.ContentType, bytes.NewReader(s.params.Blob)); err != nil {
		s.state = CaptureFailed
		return nil, errors.Wrap(err, "could not upload capture")
	}

	// Transcribe. A failure leaves the transcript empty and the pipeline
	// continues, the raw capture must not be lost.
	s.state = CaptureTranscribing
	transcript, err := s.ai.Transcribe(ctx, s.filename(key), s.params.ContentType, bytes.NewReader(s.params.Blob))
	if err != nil {
		logrus.WithError(err).Warn("transcription failed, keeping raw capture")
		transcript = ""
	}

	// Summarize, skipped on an empty transcript. Also non-fatal.
	var summary string
	if transcript != "" {
		s.state = CaptureSummarizing
		summary, err = s.ai.Summarize(ctx, transcript)
		if err != nil {
			logrus.WithError(err).Warn("summarization failed, keeping transcript")
			summary = ""
		}
	}

	entry := model.NewEntry(s.user.ID)
	entry.Visibility = visibility
	entry.Content = transcript
	entry.Summary = summary
	if entry.Content == "" {
		entry.Content = FallbackContent
	}

	var media *model.Media
	switch kind {
	case model.MediaVideo:
		media = model.NewVideoMedia("", key, s.params.ContentType, s.params.Duration)
	default:
		media = model.NewAudioMedia("", key, s.params.ContentType, s.params.Duration)
	}

	// Persist entry and media in one transaction. On failure the uploaded
	// blob is reclaimed so the store holds no orphan.
	if err := s.db.CreateEntryWithMedia(entry, media); err != nil {
		s.state = CaptureFailed
		if derr := s.store.Delete(ctx, key); derr != nil {
			logrus.WithError(derr).WithField("path", key).Warn("could not reclaim blob")
		}
		return nil, errors.Wrap(err, "could not persist capture")
	}

	s.state = CapturePersisted
	return entry, nil
}

func (s *CaptureService) filename(key string) string {
	if s.params.Filename != "" {
		return s.params.Filename
	}
	return path.Base(key)
}
