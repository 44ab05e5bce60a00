package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadedBlob struct {
	filename    string
	contentType string
	data        []byte
}

type mockUploader struct {
	mu      sync.Mutex
	uploads []uploadedBlob
	err     error
}

func (m *mockUploader) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.uploads = append(m.uploads, uploadedBlob{filename: filename, contentType: contentType, data: data})
	return fmt.Sprintf("https://host.example/%d/%s", len(m.uploads), filename), nil
}

type mockFrames struct {
	frame []byte
	err   error
	at    time.Duration
}

func (m *mockFrames) ExtractFrame(ctx context.Context, video []byte, contentType string, at time.Duration) ([]byte, error) {
	m.at = at
	if m.err != nil {
		return nil, m.err
	}
	return m.frame, nil
}

type mockShortener struct {
	short string
	err   error
	calls int
}

func (m *mockShortener) Shorten(ctx context.Context, longURL string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.short, nil
}

func decodeDoc(t *testing.T, data []byte) metadataDocument {
	t.Helper()
	var doc metadataDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestBuildMetadataImage(t *testing.T) {
	uploader := &mockUploader{}
	raw, err := buildMetadata(context.Background(), uploader, &mockFrames{}, testLogger(),
		"Dog Pool", "DOG", "a pool", Media{Filename: "dog.png", ContentType: "image/png", Data: []byte("png")})
	require.NoError(t, err)

	doc := decodeDoc(t, raw)
	assert.Equal(t, "Dog Pool", doc.Name)
	assert.Equal(t, "DOG", doc.Symbol)
	assert.Equal(t, "image", doc.Properties.Category)
	assert.NotEmpty(t, doc.Image)
	assert.Empty(t, doc.AnimationURL)
	require.Len(t, doc.Properties.Files, 1)
	assert.Equal(t, "image/png", doc.Properties.Files[0].Type)
	require.Len(t, uploader.uploads, 1)
}

func TestBuildMetadataVideoGetsPreviewStill(t *testing.T) {
	uploader := &mockUploader{}
	frames := &mockFrames{frame: []byte("still")}
	raw, err := buildMetadata(context.Background(), uploader, frames, testLogger(),
		"Clip", "CLIP", "", Media{Filename: "clip.mp4", ContentType: "video/mp4", Data: []byte("mp4")})
	require.NoError(t, err)

	doc := decodeDoc(t, raw)
	assert.Equal(t, "video", doc.Properties.Category)
	assert.NotEmpty(t, doc.AnimationURL, "video must carry an animation uri")
	assert.Equal(t, doc.AnimationURL, doc.Image, "image stays the content uri, not the still")
	require.Len(t, doc.Properties.Files, 2)
	assert.NotEqual(t, doc.Image, doc.Properties.Files[1].URI, "the still only appears in files")

	// Still is taken one second in
	assert.Equal(t, time.Second, frames.at)

	// Two uploads: the video and the still
	require.Len(t, uploader.uploads, 2)
	assert.Equal(t, "image/png", uploader.uploads[1].contentType)
	assert.Equal(t, []byte("still"), uploader.uploads[1].data)
}

func TestBuildMetadataVideoFrameFailureTolerated(t *testing.T) {
	uploader := &mockUploader{}
	frames := &mockFrames{err: fmt.Errorf("codec not supported")}
	raw, err := buildMetadata(context.Background(), uploader, frames, testLogger(),
		"Clip", "CLIP", "", Media{Filename: "clip.mp4", ContentType: "video/mp4", Data: []byte("mp4")})
	require.NoError(t, err, "frame extraction failure must not abort metadata building")

	doc := decodeDoc(t, raw)
	assert.NotEmpty(t, doc.AnimationURL)
	assert.Equal(t, doc.AnimationURL, doc.Image)
	require.Len(t, doc.Properties.Files, 1)
}

func TestBuildMetadataAudio(t *testing.T) {
	uploader := &mockUploader{}
	raw, err := buildMetadata(context.Background(), uploader, &mockFrames{}, testLogger(),
		"Track", "TRK", "", Media{Filename: "track.mp3", ContentType: "audio/mpeg", Data: []byte("mp3")})
	require.NoError(t, err)

	doc := decodeDoc(t, raw)
	assert.Equal(t, "audio", doc.Properties.Category)
	assert.NotEmpty(t, doc.AnimationURL)
	assert.Equal(t, doc.AnimationURL, doc.Image)
}

func TestBuildMetadataUploadFailureFatal(t *testing.T) {
	uploader := &mockUploader{err: fmt.Errorf("hosting service down")}
	_, err := buildMetadata(context.Background(), uploader, &mockFrames{}, testLogger(),
		"X", "X", "", Media{Filename: "x.png", ContentType: "image/png", Data: []byte("x")})
	require.Error(t, err)
}

func TestShortenURI(t *testing.T) {
	shortener := &mockShortener{short: "https://sho.rt/abc"}
	got := shortenURI(context.Background(), shortener, testLogger(), "https://host.example/very/long/metadata.json")
	assert.Equal(t, "https://sho.rt/abc", got)
}

func TestShortenURIFallsBackToTruncatedLiteral(t *testing.T) {
	long := "https://host.example/" + strings.Repeat("a", 300)
	shortener := &mockShortener{err: fmt.Errorf("shortener down")}

	got := shortenURI(context.Background(), shortener, testLogger(), long)
	assert.Len(t, got, 200)
	assert.Equal(t, long[:200], got)

	// Short literals pass through untouched
	got = shortenURI(context.Background(), shortener, testLogger(), "https://host.example/m.json")
	assert.Equal(t, "https://host.example/m.json", got)
}
