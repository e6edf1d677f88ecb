package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Extractor defines the interface for pulling an audio track out of a video
// file.
type Extractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
}

// FFmpegExtractor implements Extractor by shelling out to ffmpeg.
type FFmpegExtractor struct{}

func NewFFmpegExtractor() *FFmpegExtractor {
	return &FFmpegExtractor{}
}

// ExtractAudio strips the video stream and writes an mp3 audio track.
// An empty output file is treated as a failure: ffmpeg exits zero on some
// inputs that carry no audio stream.
func (e *FFmpegExtractor) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	args := []string{"-y", "-i", videoPath, "-vn", "-codec:a", "libmp3lame", "-qscale:a", "2", audioPath}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, string(out))
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return fmt.Errorf("ffmpeg produced no output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("extracted audio file is empty")
	}

	return nil
}
