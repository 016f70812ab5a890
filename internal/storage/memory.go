package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrBlobNotFound is returned when a key has no blob.
var ErrBlobNotFound = errors.New("blob not found")

// A Memory is an in-memory Store used as an explicit test double.
// It is never wired in production code paths.
type Memory struct {
	mu    sync.Mutex
	blobs map[string]blob
}

type blob struct {
	contentType string
	payload     []byte
}

// NewMemory returns an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		blobs: map[string]blob{},
	}
}

// Put uploads the blob under the given key.
func (s *Memory) Put(_ context.Context, key, contentType string, body io.Reader) error {
	payload, err := io.ReadAll(body)
	if err != nil {
		return errors.Wrap(err, "could not read blob")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = blob{contentType: contentType, payload: payload}
	return nil
}

// Delete removes the blob for the given key.
func (s *Memory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[key]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, key)
	return nil
}

// PresignGet returns a fake URL for the given key.
func (s *Memory) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[key]; !ok {
		return "", ErrBlobNotFound
	}
	return fmt.Sprintf("memory://%s", key), nil
}

// Blob returns the stored payload for the given key.
func (s *Memory) Blob(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[key]
	return b.payload, ok
}

// Len returns the number of stored blobs.
func (s *Memory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
