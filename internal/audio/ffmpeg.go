// Package audio moves PCM audio in and out of encoded files using
// FFmpeg. Decoding yields raw f32le sample buffers the mixer can work
// on directly; encoding is the only stage with any non-deterministic
// output (the mp3 encoder), so it is isolated here.
package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrFileNotFound = fmt.Errorf("file not found")
	ErrFileEmpty    = fmt.Errorf("file is empty")
	ErrInvalidPath  = fmt.Errorf("invalid path")
)

// ffmpegError wraps FFmpeg command errors with additional context
type ffmpegError struct {
	cmd     string
	output  string
	wrapped error
}

func (e *ffmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %s\nCommand: %s\nOutput: %s", e.wrapped, e.cmd, e.output)
}

func (e *ffmpegError) Unwrap() error {
	return e.wrapped
}

// newFFmpegError creates a new ffmpegError with truncated command output
func newFFmpegError(cmd *exec.Cmd, output []byte, err error) error {
	cmdStr := cmd.String()
	if len(cmdStr) > 200 {
		cmdStr = cmdStr[:200] + "..."
	}
	out := string(output)
	if len(out) > 2000 {
		out = out[len(out)-2000:]
	}
	return &ffmpegError{
		cmd:     cmdStr,
		output:  out,
		wrapped: err,
	}
}

// Engine runs FFmpeg subprocesses for decode/encode/probe.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) validateFile(path string) error {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("unable to access file: %s: %w", path, err)
	}

	if fileInfo.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidPath, path)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrFileEmpty, path)
	}

	return nil
}

func (e *Engine) createTempFile(extension string) (string, error) {
	tempFile, err := os.CreateTemp("", "mixsmith_*."+extension)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tempFile.Name()
	tempFile.Close()
	return tempPath, nil
}

// Decode reads any FFmpeg-supported audio file into a PCM clip at the
// pipeline's canonical rate and channel count.
func (e *Engine) Decode(ctx context.Context, inputPath string) (*Clip, error) {
	if err := e.validateFile(inputPath); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	pcmPath, err := e.createTempFile("pcm")
	if err != nil {
		return nil, err
	}
	defer os.Remove(pcmPath)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", inputPath,
		"-f", "f32le",
		"-ar", strconv.Itoa(DefaultSampleRate),
		"-ac", strconv.Itoa(DefaultChannels),
		pcmPath,
	)

	slog.Debug("decoding audio", "input", inputPath)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newFFmpegError(cmd, output, err)
	}

	raw, err := os.ReadFile(pcmPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read decoded PCM: %w", err)
	}

	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	return &Clip{
		Samples:    samples,
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
	}, nil
}

// Encode writes a PCM clip to an encoded audio file. The output format
// follows the extension of outputPath.
func (e *Engine) Encode(ctx context.Context, clip *Clip, outputPath, bitrate string) error {
	if len(clip.Samples) == 0 {
		return fmt.Errorf("%w: clip has no samples", ErrFileEmpty)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	pcmPath, err := e.createTempFile("pcm")
	if err != nil {
		return err
	}
	defer os.Remove(pcmPath)

	raw := make([]byte, len(clip.Samples)*4)
	for i, s := range clip.Samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(s))
	}
	if err := os.WriteFile(pcmPath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write PCM: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-f", "f32le",
		"-ar", strconv.Itoa(clip.SampleRate),
		"-ac", strconv.Itoa(clip.Channels),
		"-i", pcmPath,
		"-c:a", "libmp3lame",
		"-b:a", bitrate,
		outputPath,
	)

	slog.Debug("encoding audio", "output", outputPath, "bitrate", bitrate)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return newFFmpegError(cmd, output, err)
	}

	return nil
}

// ProbeDurationMs returns an audio file's duration in milliseconds.
func (e *Engine) ProbeDurationMs(ctx context.Context, inputPath string) (int, error) {
	if err := e.validateFile(inputPath); err != nil {
		return 0, fmt.Errorf("probe failed: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, newFFmpegError(cmd, output, err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", output, err)
	}

	return int(seconds * 1000), nil
}
