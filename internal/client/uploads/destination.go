package uploads

import (
	"fmt"
	"mime"
	"path/filepath"

	"github.com/dmitrijs2005/clipsync/internal/client/models"
)

// destination is where an upload kind lands remotely.
type destination struct {
	Bucket   string
	Table    string
	BlobCol  string
	ThumbCol string
}

func destinationFor(kind models.UploadKind) (destination, error) {
	switch kind {
	case models.UploadVoiceClip:
		return destination{Bucket: "voice-clips", Table: "voice_clips", BlobCol: "audio_url"}, nil
	case models.UploadVideoClip:
		return destination{Bucket: "video-clips", Table: "video_clips", BlobCol: "video_url", ThumbCol: "thumbnail_url"}, nil
	case models.UploadStory:
		return destination{Bucket: "stories", Table: "stories", BlobCol: "media_url", ThumbCol: "thumbnail_url"}, nil
	default:
		return destination{}, fmt.Errorf("no destination for upload kind %q", kind)
	}
}

// objectPath is stable for an entry, so re-uploading overwrites instead of
// leaving orphans.
func objectPath(u *models.QueuedUpload, name, localPath string) string {
	return fmt.Sprintf("%s/%s/%s%s", u.OwnerID, u.ID, name, filepath.Ext(localPath))
}

func contentType(localPath string) string {
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// row builds the metadata row of u. The blob URLs must already be known.
func row(u *models.QueuedUpload, d destination) map[string]any {
	r := u.Metadata.Columns()
	r["id"] = u.ID
	r["user_id"] = u.OwnerID
	r[d.BlobCol] = u.RemoteBlobURL
	if d.ThumbCol != "" && u.RemoteThumbnailURL != "" {
		r[d.ThumbCol] = u.RemoteThumbnailURL
	}
	return r
}
