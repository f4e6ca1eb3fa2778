// Package video renders a waveform visualizer video for a finished mix
// by driving FFmpeg's showwaves filter.
package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// Options control the rendered video.
type Options struct {
	// Width and Height of the output frame.
	Width  int
	Height int
	// WaveColor is an FFmpeg color name or hex value.
	WaveColor string
	// BackgroundColor fills the frame behind the waveform.
	BackgroundColor string
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Width <= 0 {
		out.Width = 1280
	}
	if out.Height <= 0 {
		out.Height = 720
	}
	if out.WaveColor == "" {
		out.WaveColor = "white"
	}
	if out.BackgroundColor == "" {
		out.BackgroundColor = "black"
	}
	return out
}

// Renderer shells out to FFmpeg.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render draws a waveform video for audioPath and writes an mp4 with
// the original audio muxed in.
func (r *Renderer) Render(ctx context.Context, audioPath, outputPath string, opts Options) error {
	if _, err := os.Stat(audioPath); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	o := opts.withDefaults()

	filter := fmt.Sprintf(
		"color=c=%s:s=%dx%d[bg];[0:a]showwaves=s=%dx%d:mode=line:colors=%s[waves];[bg][waves]overlay=format=auto[v]",
		o.BackgroundColor, o.Width, o.Height,
		o.Width, o.Height, o.WaveColor,
	)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-i", audioPath,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "0:a",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		outputPath,
	)

	slog.Debug("rendering waveform video", "input", audioPath, "output", outputPath)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		out := string(output)
		if len(out) > 2000 {
			out = out[len(out)-2000:]
		}
		return fmt.Errorf("ffmpeg showwaves failed: %w\nOutput: %s", err, out)
	}

	return nil
}
