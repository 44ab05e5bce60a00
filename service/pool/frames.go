package pool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// FFmpegFrameExtractor extracts video stills by shelling out to ffmpeg.
type FFmpegFrameExtractor struct {
	// Binary overrides the ffmpeg binary name; empty means "ffmpeg" from PATH.
	Binary string
}

// ExtractFrame implements FrameExtractor. The video is written to a
// temporary file because ffmpeg cannot seek a pipe.
func (f *FFmpegFrameExtractor) ExtractFrame(ctx context.Context, video []byte, contentType string, at time.Duration) ([]byte, error) {
	binary := f.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	tmp, err := os.CreateTemp("", "frame-src-*")
	if err != nil {
		return nil, fmt.Errorf("create temp video file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(video); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp video file: %w", err)
	}
	tmp.Close()

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary,
		"-ss", fmt.Sprintf("%.3f", at.Seconds()),
		"-i", tmp.Name(),
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "png",
		"pipe:1",
	)
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, stderr.String())
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame")
	}
	return out.Bytes(), nil
}
