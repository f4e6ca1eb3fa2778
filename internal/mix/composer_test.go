package mix

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkaplan/mixsmith/internal/audio"
)

// toneClip builds a clip of constant amplitude with no silent edges.
func toneClip(durationMs int, amplitude float32) *audio.Clip {
	c := audio.NewClip(0, audio.DefaultSampleRate, audio.DefaultChannels)
	frames := c.FramesForMs(durationMs)
	c.Samples = make([]float32, frames*c.Channels)
	for i := range c.Samples {
		c.Samples[i] = amplitude
	}
	return c
}

// padClip surrounds a clip with silence below the trim threshold.
func padClip(c *audio.Clip, leadMs, tailMs int) *audio.Clip {
	lead := make([]float32, c.FramesForMs(leadMs)*c.Channels)
	tail := make([]float32, c.FramesForMs(tailMs)*c.Channels)
	out := &audio.Clip{SampleRate: c.SampleRate, Channels: c.Channels}
	out.Samples = append(out.Samples, lead...)
	out.Samples = append(out.Samples, c.Samples...)
	out.Samples = append(out.Samples, tail...)
	return out
}

func TestComposeDurationAndTimestamps(t *testing.T) {
	// Three clips of 60s, 45s and 90s with 5s crossfades: the overlaps
	// shorten the program by one crossfade per junction.
	tracks := []Track{
		{Title: "One", Clip: toneClip(60000, 0.5)},
		{Title: "Two", Clip: toneClip(45000, 0.5)},
		{Title: "Three", Clip: toneClip(90000, 0.5)},
	}

	result, err := Compose(tracks, Options{CrossfadeMs: 5000})
	require.NoError(t, err)

	assert.Equal(t, 185000, result.TotalDurationMs)
	require.Len(t, result.Entries, 3)
	assert.Equal(t, 0, result.Entries[0].StartMs)
	assert.Equal(t, 55000, result.Entries[1].StartMs)
	assert.Equal(t, 95000, result.Entries[2].StartMs)
}

func TestComposeTimestampsStrictlyIncreasing(t *testing.T) {
	tracks := []Track{
		{Title: "A", Clip: toneClip(130000, 0.4)},
		{Title: "B", Clip: toneClip(140000, 0.4)},
		{Title: "C", Clip: toneClip(150000, 0.4)},
		{Title: "D", Clip: toneClip(160000, 0.4)},
	}

	result, err := Compose(tracks, Options{CrossfadeMs: 8000})
	require.NoError(t, err)

	for i := 1; i < len(result.Entries); i++ {
		assert.Greater(t, result.Entries[i].StartMs, result.Entries[i-1].StartMs)
	}
}

func TestComposeSingleClip(t *testing.T) {
	// A single clip is trimmed and exported with no crossfade logic,
	// even when shorter than the configured crossfade.
	clip := padClip(toneClip(2000, 0.5), 500, 500)

	result, err := Compose([]Track{{Title: "Solo", Clip: clip}}, Options{CrossfadeMs: 5000})
	require.NoError(t, err)

	assert.Equal(t, 2000, result.TotalDurationMs)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, 0, result.Entries[0].StartMs)
}

func TestComposeClampsCrossfadeToShortClip(t *testing.T) {
	// The first clip is much shorter than the crossfade; the junction
	// clamps to the clip length minus the guard instead of swallowing it.
	tracks := []Track{
		{Title: "Short", Clip: toneClip(3000, 0.5)},
		{Title: "Long", Clip: toneClip(60000, 0.5)},
	}

	result, err := Compose(tracks, Options{CrossfadeMs: 5000})
	require.NoError(t, err)

	// Overlap = 3000ms - 50ms guard = 2950ms.
	assert.Equal(t, 3000+60000-2950, result.TotalDurationMs)
	assert.Equal(t, 50, result.Entries[1].StartMs)
}

func TestComposeDropsFullySilentTracks(t *testing.T) {
	// A track that trims to nothing must not occupy a junction: it
	// would start at the same timestamp as its successor.
	tracks := []Track{
		{Title: "A", Clip: toneClip(10000, 0.5)},
		{Title: "Silent", Clip: toneClip(5000, 0.0001)},
		{Title: "B", Clip: toneClip(10000, 0.5)},
	}

	result, err := Compose(tracks, Options{CrossfadeMs: 2000})
	require.NoError(t, err)

	require.Len(t, result.Entries, 2)
	assert.Equal(t, "A", result.Entries[0].Title)
	assert.Equal(t, "B", result.Entries[1].Title)
	assert.Equal(t, 0, result.Entries[0].StartMs)
	assert.Equal(t, 8000, result.Entries[1].StartMs)
	assert.Equal(t, 18000, result.TotalDurationMs)

	for i := 1; i < len(result.Entries); i++ {
		assert.Greater(t, result.Entries[i].StartMs, result.Entries[i-1].StartMs)
	}
}

func TestComposeAllTracksSilent(t *testing.T) {
	tracks := []Track{
		{Title: "A", Clip: toneClip(3000, 0.0001)},
		{Title: "B", Clip: toneClip(3000, 0.0001)},
	}

	_, err := Compose(tracks, Options{CrossfadeMs: 1000})
	assert.Error(t, err)
}

func TestComposeNoTracks(t *testing.T) {
	_, err := Compose(nil, Options{CrossfadeMs: 5000})
	assert.Error(t, err)
}

func TestComposeFormatMismatch(t *testing.T) {
	odd := &audio.Clip{Samples: make([]float32, 44100), SampleRate: 22050, Channels: 1}
	_, err := Compose([]Track{
		{Title: "A", Clip: toneClip(5000, 0.5)},
		{Title: "B", Clip: odd},
	}, Options{CrossfadeMs: 1000})
	assert.Error(t, err)
}

func TestComposeEqualPowerCrossfade(t *testing.T) {
	// At the overlap midpoint both ramps sit at cos(pi/4)=sin(pi/4), so
	// two equal-amplitude clips sum to amplitude*sqrt(2), not a dip.
	tracks := []Track{
		{Title: "A", Clip: toneClip(10000, 0.5)},
		{Title: "B", Clip: toneClip(10000, 0.5)},
	}

	result, err := Compose(tracks, Options{CrossfadeMs: 4000})
	require.NoError(t, err)

	overlapFrames := result.Clip.FramesForMs(4000)
	junctionStart := result.Clip.FramesForMs(6000)
	mid := (junctionStart + overlapFrames/2) * result.Clip.Channels

	expected := 0.5 * math.Sqrt2
	assert.InDelta(t, expected, float64(result.Clip.Samples[mid]), 0.01)
}

func TestComposeNormalizeRatioInvariance(t *testing.T) {
	tracks := []Track{
		{Title: "Loud", Clip: toneClip(10000, 0.5)},
		{Title: "Quiet", Clip: toneClip(10000, 0.25)},
	}

	plain, err := Compose(tracks, Options{CrossfadeMs: 2000})
	require.NoError(t, err)
	normed, err := Compose(tracks, Options{CrossfadeMs: 2000, Normalize: true, TargetDBFS: -1.0})
	require.NoError(t, err)

	// One global gain factor: the ratio between any two points is
	// preserved.
	i := sampleIndexAt(plain.Clip, 1000)
	j := sampleIndexAt(plain.Clip, 15000)
	ratioBefore := plain.Clip.Samples[i] / plain.Clip.Samples[j]
	ratioAfter := normed.Clip.Samples[i] / normed.Clip.Samples[j]
	assert.InDelta(t, float64(ratioBefore), float64(ratioAfter), 1e-4)

	// Peak lands at the target level.
	var peak float32
	for _, s := range normed.Clip.Samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	assert.InDelta(t, math.Pow(10, -1.0/20), float64(peak), 1e-4)
}

func sampleIndexAt(c *audio.Clip, ms int) int {
	return c.FramesForMs(ms) * c.Channels
}

func TestComposeDeterministic(t *testing.T) {
	build := func() []Track {
		return []Track{
			{Title: "A", Clip: padClip(toneClip(30000, 0.4), 200, 200)},
			{Title: "B", Clip: toneClip(45000, 0.3)},
		}
	}

	first, err := Compose(build(), Options{CrossfadeMs: 5000, Normalize: true, TargetDBFS: -1.0})
	require.NoError(t, err)
	second, err := Compose(build(), Options{CrossfadeMs: 5000, Normalize: true, TargetDBFS: -1.0})
	require.NoError(t, err)

	assert.Equal(t, first.TotalDurationMs, second.TotalDurationMs)
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, first.Clip.Samples, second.Clip.Samples)
}

func TestTrimSilence(t *testing.T) {
	clip := padClip(toneClip(1000, 0.5), 300, 700)

	trimmed := TrimSilence(clip, -50.0)
	assert.Equal(t, 1000, trimmed.DurationMs())
}

func TestTrimSilenceKeepsQuietAudio(t *testing.T) {
	// -40dBFS material is above the -50dBFS threshold and survives.
	quiet := toneClip(1000, 0.01)
	trimmed := TrimSilence(quiet, -50.0)
	assert.Equal(t, 1000, trimmed.DurationMs())
}

func TestTrimSilenceAllSilent(t *testing.T) {
	silent := toneClip(1000, 0.0001)
	trimmed := TrimSilence(silent, -50.0)
	assert.Equal(t, 0, trimmed.Frames())
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		ms       int
		expected string
	}{
		{0, "00:00"},
		{55000, "00:55"},
		{95000, "01:35"},
		{185000, "03:05"},
		{3599000, "59:59"},
		{3600000, "1:00:00"},
		{5445000, "1:30:45"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatTimestamp(tt.ms))
	}
}

func TestRenderTracklist(t *testing.T) {
	result := &Result{
		Entries: []Entry{
			{Title: "First Light", StartMs: 0},
			{Title: "Echoes of Tomorrow", StartMs: 55000},
		},
		TotalDurationMs: 95000,
	}

	text := RenderTracklist(result)
	assert.Contains(t, text, "00:00 - First Light")
	assert.Contains(t, text, "00:55 - Echoes of Tomorrow")
	assert.Contains(t, text, "Total tracks: 2")
}
