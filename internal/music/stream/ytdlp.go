package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ytdlpLink asks yt-dlp for the direct bestaudio URL of a video or a
// "ytsearch1:" query, then hands the URL to ffmpeg. No media passes through
// yt-dlp itself.
func (o *Opener) ytdlpLink(ctx context.Context, input string) (io.ReadCloser, func(), error) {
	cmd := exec.CommandContext(ctx, o.ytdlpPath,
		"-f", "bestaudio",
		"--get-url",
		"--no-warnings",
		input,
	)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, nil, fmt.Errorf("yt-dlp error: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, nil, fmt.Errorf("yt-dlp not found at %q, set YTDLP_PATH", o.ytdlpPath)
		}
		return nil, nil, fmt.Errorf("yt-dlp get-url error: %w", err)
	}

	link, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	if link == "" {
		return nil, nil, errors.New("empty URL returned from yt-dlp")
	}

	return ffmpegLink(ctx, link)
}
