package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/gofrs/uuid"
)

// A Store holds the raw media blobs referenced by entry media records.
// Keys are namespaced by owner identifier.
type Store interface {
	// Put uploads the blob under the given key.
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	// Delete removes the blob for the given key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL granting read access to the blob.
	PresignGet(ctx context.Context, key string, expire time.Duration) (string, error)
}

// Key builds a blob key namespaced by the owner: {ownerID}/{random}.{ext}.
// The extension is derived from the MIME type.
func Key(ownerID, contentType string) string {
	ext := ".bin"
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[len(exts)-1]
	}
	return fmt.Sprintf("%s/%s%s", ownerID, uuid.Must(uuid.NewV4()).String(), ext)
}
