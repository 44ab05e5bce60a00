package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// MediaUploader stores a blob with the external hosting service and returns
// a public content URI.
type MediaUploader interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// FrameExtractor pulls a single still image out of a video.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, video []byte, contentType string, at time.Duration) ([]byte, error)
}

// Shortener turns a long URI into a short one.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// Media is the descriptive asset attached to a new pool.
type Media struct {
	Filename    string
	ContentType string
	Data        []byte
}

// metadataFile is one entry in the document's file list.
type metadataFile struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// metadataDocument is the off-chain metadata JSON referenced by the pool's
// on-chain URI.
type metadataDocument struct {
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Description  string `json:"description"`
	Image        string `json:"image,omitempty"`
	AnimationURL string `json:"animation_url,omitempty"`
	Properties   struct {
		Category string         `json:"category"`
		Files    []metadataFile `json:"files"`
	} `json:"properties"`
}

// frameSeekOffset is where in a video the preview still is taken from.
const frameSeekOffset = time.Second

// mediaCategory maps a MIME type onto the metadata category.
func mediaCategory(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	default:
		return "image"
	}
}

// buildMetadata uploads the media asset and assembles the metadata document
// around its URI. Videos get a preview still extracted at one second and
// uploaded alongside; audio and video both carry an animation_url pointing
// at the primary content. Frame extraction is best effort, the document is
// still valid without the still.
func buildMetadata(
	ctx context.Context,
	uploader MediaUploader,
	frames FrameExtractor,
	logger *slog.Logger,
	name, symbol, description string,
	media Media,
) ([]byte, error) {
	contentURI, err := uploader.Upload(ctx, media.Filename, media.ContentType, media.Data)
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}

	// The image field always carries the primary content URI, whatever
	// the category. Video and audio additionally point animation_url at
	// the same content; a video's preview still is only listed in files.
	doc := metadataDocument{
		Name:        name,
		Symbol:      symbol,
		Description: description,
		Image:       contentURI,
	}
	category := mediaCategory(media.ContentType)
	doc.Properties.Category = category
	doc.Properties.Files = []metadataFile{{URI: contentURI, Type: media.ContentType}}

	switch category {
	case "audio":
		doc.AnimationURL = contentURI
	case "video":
		doc.AnimationURL = contentURI
		still, err := frames.ExtractFrame(ctx, media.Data, media.ContentType, frameSeekOffset)
		if err != nil {
			logger.WarnContext(ctx, "video frame extraction failed, omitting preview image", "error", err)
			break
		}
		stillURI, err := uploader.Upload(ctx, media.Filename+".preview.png", "image/png", still)
		if err != nil {
			logger.WarnContext(ctx, "preview image upload failed, omitting it", "error", err)
			break
		}
		doc.Properties.Files = append(doc.Properties.Files, metadataFile{URI: stillURI, Type: "image/png"})
	}

	return json.Marshal(doc)
}

// maxLiteralURILen bounds the on-chain URI when shortening fails.
const maxLiteralURILen = 200

// shortenURI shortens the metadata URI for on-chain storage. When the
// shortener is unavailable the literal URI is stored instead, truncated to
// the on-chain limit.
func shortenURI(ctx context.Context, shortener Shortener, logger *slog.Logger, uri string) string {
	short, err := shortener.Shorten(ctx, uri)
	if err != nil || short == "" {
		logger.WarnContext(ctx, "uri shortening failed, storing truncated literal", "error", err)
		if len(uri) > maxLiteralURILen {
			return uri[:maxLiteralURILen]
		}
		return uri
	}
	return short
}
