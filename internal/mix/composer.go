// Package mix composes ordered audio clips into one continuous program:
// silence trimming, equal-power crossfades, global peak normalization
// and tracklist timestamp bookkeeping. Everything here is exact sample
// arithmetic; the same inputs always produce the same output buffer.
package mix

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/mkaplan/mixsmith/internal/audio"
)

const (
	// silenceThresholdDBFS is the amplitude below which leading and
	// trailing audio counts as silence and is trimmed before mixing.
	silenceThresholdDBFS = -50.0

	// crossfadeGuardMs keeps a junction's crossfade strictly shorter
	// than either adjacent clip.
	crossfadeGuardMs = 50
)

// Options control one composition pass.
type Options struct {
	CrossfadeMs int
	Normalize   bool
	TargetDBFS  float64
}

// Track pairs a decoded clip with its display title.
type Track struct {
	Title string
	Clip  *audio.Clip
}

// Entry is one tracklist line: where a track starts in the final mix.
type Entry struct {
	Title   string `json:"title"`
	StartMs int    `json:"start_ms"`
}

// Result is the composed program.
type Result struct {
	Clip            *audio.Clip
	Entries         []Entry
	TotalDurationMs int
}

func dbfsToLinear(dbfs float64) float64 {
	return math.Pow(10, dbfs/20)
}

// TrimSilence strips leading and trailing samples quieter than the
// threshold on every channel. A fully silent clip trims to nothing.
func TrimSilence(c *audio.Clip, thresholdDBFS float64) *audio.Clip {
	threshold := float32(dbfsToLinear(thresholdDBFS))
	frames := c.Frames()

	first := frames
	for f := 0; f < frames; f++ {
		if frameAbove(c, f, threshold) {
			first = f
			break
		}
	}
	if first == frames {
		return c.Slice(0, 0)
	}

	last := first
	for f := frames - 1; f >= first; f-- {
		if frameAbove(c, f, threshold) {
			last = f
			break
		}
	}

	return c.Slice(first, last+1)
}

func frameAbove(c *audio.Clip, frame int, threshold float32) bool {
	base := frame * c.Channels
	for ch := 0; ch < c.Channels; ch++ {
		s := c.Samples[base+ch]
		if s < 0 {
			s = -s
		}
		if s > threshold {
			return true
		}
	}
	return false
}

// Compose merges the ordered tracks into one continuous clip. Each
// junction overlaps by Options.CrossfadeMs with an equal-power ramp
// (outgoing gain cos, incoming gain sin), clamped so a crossfade never
// exceeds either adjacent clip. Output duration equals the sum of the
// trimmed clip durations minus the applied overlaps.
func Compose(tracks []Track, opts Options) (*Result, error) {
	if len(tracks) == 0 {
		return nil, fmt.Errorf("no tracks to mix")
	}
	if opts.CrossfadeMs < 0 {
		return nil, fmt.Errorf("negative crossfade: %dms", opts.CrossfadeMs)
	}

	sampleRate := tracks[0].Clip.SampleRate
	channels := tracks[0].Clip.Channels

	// Fully silent tracks trim to nothing and are dropped here; a
	// zero-length clip in the sequence would collapse its junctions and
	// duplicate the following track's start timestamp.
	trimmed := make([]*audio.Clip, 0, len(tracks))
	titles := make([]string, 0, len(tracks))
	for i, t := range tracks {
		if t.Clip.SampleRate != sampleRate || t.Clip.Channels != channels {
			return nil, fmt.Errorf("track %d (%s): format mismatch", i+1, t.Title)
		}
		c := TrimSilence(t.Clip, silenceThresholdDBFS)
		if c.Frames() == 0 {
			slog.Warn("dropping fully silent track", "track", t.Title, "position", i+1)
			continue
		}
		trimmed = append(trimmed, c)
		titles = append(titles, t.Title)
	}
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no audible tracks to mix")
	}

	// Per-junction overlap in frames, clamped to the shorter neighbour
	// minus the guard. A clip shorter than the crossfade degrades the
	// junction toward a hard cut rather than swallowing the clip.
	guardFrames := tracks[0].Clip.FramesForMs(crossfadeGuardMs)
	wantOverlap := tracks[0].Clip.FramesForMs(opts.CrossfadeMs)
	overlaps := make([]int, len(trimmed)-1)
	for i := range overlaps {
		overlap := wantOverlap
		for _, c := range []*audio.Clip{trimmed[i], trimmed[i+1]} {
			if limit := c.Frames() - guardFrames; overlap > limit {
				overlap = limit
			}
		}
		if overlap < 0 {
			overlap = 0
		}
		overlaps[i] = overlap
	}

	totalFrames := 0
	starts := make([]int, len(trimmed))
	for i, c := range trimmed {
		if i > 0 {
			totalFrames -= overlaps[i-1]
		}
		starts[i] = totalFrames
		totalFrames += c.Frames()
	}

	out := audio.NewClip(totalFrames, sampleRate, channels)
	for i, c := range trimmed {
		fadeIn := 0
		if i > 0 {
			fadeIn = overlaps[i-1]
		}
		fadeOut := 0
		if i < len(trimmed)-1 {
			fadeOut = overlaps[i]
		}
		addWithEnvelope(out, c, starts[i], fadeIn, fadeOut)
	}

	if opts.Normalize {
		normalize(out, opts.TargetDBFS)
	}

	entries := make([]Entry, len(trimmed))
	for i := range trimmed {
		entries[i] = Entry{
			Title:   titles[i],
			StartMs: int(int64(starts[i]) * 1000 / int64(sampleRate)),
		}
	}

	result := &Result{
		Clip:            out,
		Entries:         entries,
		TotalDurationMs: out.DurationMs(),
	}

	slog.Info("mix composed",
		"tracks", len(entries),
		"crossfade_ms", opts.CrossfadeMs,
		"total_duration_ms", result.TotalDurationMs,
	)
	return result, nil
}

// addWithEnvelope adds a clip into the canvas at startFrame, applying
// an equal-power fade-in over the first fadeIn frames and fade-out over
// the last fadeOut frames.
func addWithEnvelope(out, c *audio.Clip, startFrame, fadeIn, fadeOut int) {
	frames := c.Frames()
	ch := c.Channels
	fadeOutStart := frames - fadeOut

	for f := 0; f < frames; f++ {
		gain := 1.0
		if f < fadeIn {
			gain = math.Sin(float64(f) / float64(fadeIn) * math.Pi / 2)
		}
		if f >= fadeOutStart {
			gain *= math.Cos(float64(f-fadeOutStart) / float64(fadeOut) * math.Pi / 2)
		}

		srcBase := f * ch
		dstBase := (startFrame + f) * ch
		for k := 0; k < ch; k++ {
			out.Samples[dstBase+k] += float32(gain * float64(c.Samples[srcBase+k]))
		}
	}
}

// normalize applies one gain factor to the whole buffer so the peak
// lands at the target level. Relative levels within the mix are
// unchanged.
func normalize(c *audio.Clip, targetDBFS float64) {
	var peak float32
	for _, s := range c.Samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		return
	}

	gain := float32(dbfsToLinear(targetDBFS)) / peak
	for i := range c.Samples {
		c.Samples[i] *= gain
	}
}
