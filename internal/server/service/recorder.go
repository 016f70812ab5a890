package service

import (
	"sync"

	"github.com/gofrs/uuid"
	"github.com/lifemoments/lifemoments/internal/lmerror"
)

// A Recorder accumulates the binary chunks of one capture session in
// arrival order. The final blob is the ordered concatenation of all chunks,
// chunks are never reordered nor dropped.
type Recorder struct {
	state  CaptureState
	chunks [][]byte
	size   int
}

// NewRecorder returns an idle recorder.
func NewRecorder() *Recorder {
	return &Recorder{state: CaptureIdle}
}

// State returns the recorder state.
func (r *Recorder) State() CaptureState {
	return r.state
}

// Start transitions the recorder from idle to recording.
func (r *Recorder) Start() error {
	if r.state != CaptureIdle {
		return lmerror.Validation("Capture already started.")
	}
	r.state = CaptureRecording
	return nil
}

// Append adds a chunk to the session. FIFO per capture session.
func (r *Recorder) Append(chunk []byte) error {
	if r.state != CaptureRecording {
		return lmerror.Validation("Capture is not recording.")
	}
	if r.size+len(chunk) > MaxCaptureSize {
		r.state = CaptureFailed
		return lmerror.Validation("File too large. Please keep audio files under 10MB.")
	}

	buffered := make([]byte, len(chunk))
	copy(buffered, chunk)
	r.chunks = append(r.chunks, buffered)
	r.size += len(chunk)
	return nil
}

// Stop ends the session and returns the concatenated blob.
func (r *Recorder) Stop() ([]byte, error) {
	if r.state != CaptureRecording {
		return nil, lmerror.Validation("Capture is not recording.")
	}
	r.state = CaptureStopped

	blob := make([]byte, 0, r.size)
	for _, chunk := range r.chunks {
		blob = append(blob, chunk...)
	}
	return blob, nil
}

// Cancel drops the session. Only allowed before the recording stopped,
// later stages run to completion or hard failure.
func (r *Recorder) Cancel() error {
	if r.state != CaptureIdle && r.state != CaptureRecording {
		return lmerror.Validation("Capture can not be cancelled anymore.")
	}
	r.state = CaptureFailed
	r.chunks = nil
	r.size = 0
	return nil
}

///// RecorderRegistry
////
//

type (
	// A RecorderRegistry holds the live chunked recordings of the process,
	// keyed by an opaque session id and scoped to their owner. A finished
	// or failed session leaves the registry right away.
	RecorderRegistry struct {
		mu       sync.Mutex
		sessions map[string]*recorderSession
	}

	recorderSession struct {
		ownerID     string
		filename    string
		contentType string
		recorder    *Recorder
	}
)

// NewRecorderRegistry returns an empty registry.
func NewRecorderRegistry() *RecorderRegistry {
	return &RecorderRegistry{sessions: map[string]*recorderSession{}}
}

// Open validates the announced MIME type and starts a recording session.
func (r *RecorderRegistry) Open(ownerID, filename, contentType string) (string, error) {
	if _, ok := allowedCaptureMIME[contentType]; !ok {
		return "", lmerror.Validation("Invalid file type. Please upload audio files only.")
	}

	recorder := NewRecorder()
	if err := recorder.Start(); err != nil {
		return "", err
	}

	id := uuid.Must(uuid.NewV4()).String()
	r.mu.Lock()
	r.sessions[id] = &recorderSession{
		ownerID:     ownerID,
		filename:    filename,
		contentType: contentType,
		recorder:    recorder,
	}
	r.mu.Unlock()
	return id, nil
}

// Append adds a chunk to the owner's session. A session pushed over the
// size cap fails for good and is dropped.
func (r *RecorderRegistry) Append(id, ownerID string, chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok || session.ownerID != ownerID {
		return lmerror.NotFound("No such recording.")
	}

	if err := session.recorder.Append(chunk); err != nil {
		if session.recorder.State() == CaptureFailed {
			delete(r.sessions, id)
		}
		return err
	}
	return nil
}

// Finish stops the owner's session and hands back the assembled capture,
// ready to feed the pipeline.
func (r *RecorderRegistry) Finish(id, ownerID string) (CaptureParams, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok || session.ownerID != ownerID {
		return CaptureParams{}, lmerror.NotFound("No such recording.")
	}

	blob, err := session.recorder.Stop()
	if err != nil {
		return CaptureParams{}, err
	}
	delete(r.sessions, id)

	return CaptureParams{
		Filename:    session.filename,
		ContentType: session.contentType,
		Blob:        blob,
	}, nil
}

// Cancel drops the owner's session.
func (r *RecorderRegistry) Cancel(id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok || session.ownerID != ownerID {
		return lmerror.NotFound("No such recording.")
	}

	if err := session.recorder.Cancel(); err != nil {
		return err
	}
	delete(r.sessions, id)
	return nil
}
