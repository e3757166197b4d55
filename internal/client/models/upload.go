package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/common"
)

// UploadKind classifies a large binary submission.
type UploadKind string

const (
	UploadVoiceClip UploadKind = "voice_clip"
	UploadVideoClip UploadKind = "video_clip"
	UploadStory     UploadKind = "story"
)

// ParseUploadKind validates s as an UploadKind.
func ParseUploadKind(s string) (UploadKind, error) {
	switch k := UploadKind(s); k {
	case UploadVoiceClip, UploadVideoClip, UploadStory:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown upload kind %q", common.ErrInvalidMetadata, s)
	}
}

// AcceptsThumbnail reports whether uploads of kind k carry an optional
// thumbnail. Voice clips have no thumbnail column.
func (k UploadKind) AcceptsThumbnail() bool {
	return k == UploadVideoClip || k == UploadStory
}

// UploadMetadata is the kind-specific part of an upload. The set of
// implementations is closed: VoiceClipMetadata, VideoClipMetadata and
// StoryMetadata.
type UploadMetadata interface {
	Kind() UploadKind
	Validate() error
	// Columns returns the metadata columns of the remote row.
	Columns() map[string]any
}

// VoiceClipMetadata describes a recorded phrase.
type VoiceClipMetadata struct {
	Phrase          string  `json:"phrase"`
	Translation     string  `json:"translation"`
	Language        string  `json:"language"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (VoiceClipMetadata) Kind() UploadKind { return UploadVoiceClip }

func (m VoiceClipMetadata) Validate() error {
	if strings.TrimSpace(m.Phrase) == "" {
		return fmt.Errorf("%w: voice clip phrase is required", common.ErrInvalidMetadata)
	}
	if strings.TrimSpace(m.Language) == "" {
		return fmt.Errorf("%w: voice clip language is required", common.ErrInvalidMetadata)
	}
	if m.DurationSeconds <= 0 {
		return fmt.Errorf("%w: voice clip duration must be positive", common.ErrInvalidMetadata)
	}
	return nil
}

func (m VoiceClipMetadata) Columns() map[string]any {
	return map[string]any{
		"phrase":           m.Phrase,
		"translation":      m.Translation,
		"language":         m.Language,
		"duration_seconds": m.DurationSeconds,
	}
}

// VideoClipMetadata describes a recorded video phrase.
type VideoClipMetadata struct {
	Phrase   string `json:"phrase"`
	Language string `json:"language"`
}

func (VideoClipMetadata) Kind() UploadKind { return UploadVideoClip }

func (m VideoClipMetadata) Validate() error {
	if strings.TrimSpace(m.Phrase) == "" {
		return fmt.Errorf("%w: video clip phrase is required", common.ErrInvalidMetadata)
	}
	if strings.TrimSpace(m.Language) == "" {
		return fmt.Errorf("%w: video clip language is required", common.ErrInvalidMetadata)
	}
	return nil
}

func (m VideoClipMetadata) Columns() map[string]any {
	return map[string]any{
		"phrase":   m.Phrase,
		"language": m.Language,
	}
}

// StoryMetadata describes an ephemeral story.
type StoryMetadata struct {
	Caption   string    `json:"caption"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (StoryMetadata) Kind() UploadKind { return UploadStory }

func (m StoryMetadata) Validate() error {
	if m.ExpiresAt.IsZero() {
		return fmt.Errorf("%w: story expiry is required", common.ErrInvalidMetadata)
	}
	return nil
}

func (m StoryMetadata) Columns() map[string]any {
	return map[string]any{
		"caption":    m.Caption,
		"expires_at": m.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// MetadataEnvelope is the tagged JSON form of UploadMetadata.
type MetadataEnvelope struct {
	Kind UploadKind      `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// WrapMetadata encodes m into its envelope.
func WrapMetadata(m UploadMetadata) (MetadataEnvelope, error) {
	if m == nil {
		return MetadataEnvelope{}, fmt.Errorf("%w: metadata is missing", common.ErrInvalidMetadata)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return MetadataEnvelope{}, err
	}
	return MetadataEnvelope{Kind: m.Kind(), Data: b}, nil
}

// Unwrap decodes the envelope into the concrete metadata type for its kind.
func (e MetadataEnvelope) Unwrap() (UploadMetadata, error) {
	switch e.Kind {
	case UploadVoiceClip:
		var v VoiceClipMetadata
		return v, decodeInto(e.Data, &v)
	case UploadVideoClip:
		var v VideoClipMetadata
		return v, decodeInto(e.Data, &v)
	case UploadStory:
		var v StoryMetadata
		return v, decodeInto(e.Data, &v)
	default:
		return nil, fmt.Errorf("%w: unknown upload kind %q", common.ErrInvalidMetadata, e.Kind)
	}
}

func decodeInto(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidMetadata, err)
	}
	return nil
}

// QueuedUpload is a large binary submission waiting to be published.
type QueuedUpload struct {
	ID      string
	OwnerID string
	Kind    UploadKind

	LocalBlobPath      string
	LocalThumbnailPath string
	Metadata           UploadMetadata

	// RemoteBlobURL and RemoteThumbnailURL memoize completed blob uploads
	// so that a retry after a failed row insert does not upload again.
	RemoteBlobURL      string
	RemoteThumbnailURL string

	Status        Status
	Attempts      uint32
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	Revision      int64
}

type uploadPayload struct {
	Kind               UploadKind       `json:"kind"`
	LocalBlobPath      string           `json:"local_blob_path"`
	LocalThumbnailPath string           `json:"local_thumbnail_path,omitempty"`
	Metadata           MetadataEnvelope `json:"metadata"`
	RemoteBlobURL      string           `json:"remote_blob_url,omitempty"`
	RemoteThumbnailURL string           `json:"remote_thumbnail_url,omitempty"`
}

// Validate checks the kind/metadata pairing and the metadata itself.
func (u *QueuedUpload) Validate() error {
	if _, err := ParseUploadKind(string(u.Kind)); err != nil {
		return err
	}
	if u.Metadata == nil {
		return fmt.Errorf("%w: metadata is missing", common.ErrInvalidMetadata)
	}
	if u.Metadata.Kind() != u.Kind {
		return fmt.Errorf("%w: %s metadata for %s upload", common.ErrInvalidMetadata, u.Metadata.Kind(), u.Kind)
	}
	if u.LocalThumbnailPath != "" && !u.Kind.AcceptsThumbnail() {
		return fmt.Errorf("%w: %s uploads take no thumbnail", common.ErrInvalidMetadata, u.Kind)
	}
	return u.Metadata.Validate()
}

// Payload encodes the entity-specific fields for storage.
func (u *QueuedUpload) Payload() ([]byte, error) {
	env, err := WrapMetadata(u.Metadata)
	if err != nil {
		return nil, err
	}
	return json.Marshal(uploadPayload{
		Kind:               u.Kind,
		LocalBlobPath:      u.LocalBlobPath,
		LocalThumbnailPath: u.LocalThumbnailPath,
		Metadata:           env,
		RemoteBlobURL:      u.RemoteBlobURL,
		RemoteThumbnailURL: u.RemoteThumbnailURL,
	})
}

// ToRecord converts the upload into its persisted form.
func (u *QueuedUpload) ToRecord() (*Record, error) {
	payload, err := u.Payload()
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:            u.ID,
		Entity:        EntityUpload,
		OwnerID:       u.OwnerID,
		Status:        u.Status,
		Attempts:      u.Attempts,
		LastError:     u.LastError,
		NextAttemptAt: u.NextAttemptAt,
		Payload:       payload,
		Revision:      u.Revision,
		CreatedAt:     u.CreatedAt,
	}, nil
}

// UploadFromRecord decodes a persisted upload.
func UploadFromRecord(r *Record) (*QueuedUpload, error) {
	if r.Entity != EntityUpload {
		return nil, fmt.Errorf("record %s is a %s, not an upload", r.ID, r.Entity)
	}

	var p uploadPayload
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode upload %s: %w", r.ID, err)
	}
	md, err := p.Metadata.Unwrap()
	if err != nil {
		return nil, fmt.Errorf("decode upload %s: %w", r.ID, err)
	}

	return &QueuedUpload{
		ID:                 r.ID,
		OwnerID:            r.OwnerID,
		Kind:               p.Kind,
		LocalBlobPath:      p.LocalBlobPath,
		LocalThumbnailPath: p.LocalThumbnailPath,
		Metadata:           md,
		RemoteBlobURL:      p.RemoteBlobURL,
		RemoteThumbnailURL: p.RemoteThumbnailURL,
		Status:             r.Status,
		Attempts:           r.Attempts,
		LastError:          r.LastError,
		NextAttemptAt:      r.NextAttemptAt,
		CreatedAt:          r.CreatedAt,
		Revision:           r.Revision,
	}, nil
}
