package courses

import (
	"strings"

	"permisconnect/internal/models"
)

// MediaKind is how a course file is presented.
type MediaKind string

const (
	MediaImage       MediaKind = "image"
	MediaVideo       MediaKind = "video"
	MediaPDF         MediaKind = "pdf"
	MediaUnsupported MediaKind = "unsupported"
)

// KindOf maps the upload file type to a viewer. Documents are uploaded as
// "raw".
func KindOf(c models.Course) MediaKind {
	if c.CloudinaryURL == "" {
		return MediaUnsupported
	}
	switch strings.ToLower(c.FileType) {
	case "image":
		return MediaImage
	case "video":
		return MediaVideo
	case "raw", "pdf":
		return MediaPDF
	}
	return MediaUnsupported
}
