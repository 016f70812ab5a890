package model

// A MediaKind is the closed set of supported media attachments.
type MediaKind string

const (
	// MediaAudio is a recorded audio capture.
	MediaAudio MediaKind = "audio"
	// MediaVideo is a recorded video capture.
	MediaVideo MediaKind = "video"
	// MediaImage is a still picture.
	MediaImage MediaKind = "image"
	// MediaFile is any other uploaded document.
	MediaFile MediaKind = "file"
)

// Valid returns true if k is one of the known kinds.
func (k MediaKind) Valid() bool {
	switch k {
	case MediaAudio, MediaVideo, MediaImage, MediaFile:
		return true
	}
	return false
}

// Timed returns true for kinds carrying a playback duration.
func (k MediaKind) Timed() bool {
	return k == MediaAudio || k == MediaVideo
}

// A Media is a blob attached to an entry. The storage path is an opaque
// reference into the object store and never changes once recorded.
// Duration is only populated through the audio/video constructors so an
// image or file can not carry one.
type Media struct {
	Base `msgpack:",inline" storm:"inline"`

	EntryID     string    `json:"entry_id"  msgpack:"entry_id" storm:"index"`
	Kind        MediaKind `json:"kind"      msgpack:"kind"     storm:"index"`
	StoragePath string    `json:"storage_path" msgpack:"storage_path" storm:"unique"`
	MIMEType    string    `json:"mime_type,omitempty" msgpack:"mime_type"`
	Duration    *float64  `json:"duration,omitempty"  msgpack:"duration"`
}

// NewAudioMedia returns an audio attachment for the given entry.
func NewAudioMedia(entryID, storagePath, mimeType string, duration float64) *Media {
	m := &Media{
		EntryID:     entryID,
		Kind:        MediaAudio,
		StoragePath: storagePath,
		MIMEType:    mimeType,
	}
	if duration > 0 {
		m.Duration = &duration
	}
	return m
}

// NewVideoMedia returns a video attachment for the given entry.
func NewVideoMedia(entryID, storagePath, mimeType string, duration float64) *Media {
	m := NewAudioMedia(entryID, storagePath, mimeType, duration)
	m.Kind = MediaVideo
	return m
}

// NewImageMedia returns an image attachment for the given entry.
func NewImageMedia(entryID, storagePath, mimeType string) *Media {
	return &Media{
		EntryID:     entryID,
		Kind:        MediaImage,
		StoragePath: storagePath,
		MIMEType:    mimeType,
	}
}

// NewFileMedia returns a generic document attachment for the given entry.
func NewFileMedia(entryID, storagePath, mimeType string) *Media {
	m := NewImageMedia(entryID, storagePath, mimeType)
	m.Kind = MediaFile
	return m
}
