package audio

// Default PCM format used throughout the mixing pipeline.
const (
	DefaultSampleRate = 44100
	DefaultChannels   = 2
)

// Clip is decoded PCM audio: interleaved float32 samples.
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// NewClip allocates a silent clip of the given frame count.
func NewClip(frames, sampleRate, channels int) *Clip {
	return &Clip{
		Samples:    make([]float32, frames*channels),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Frames is the number of sample frames (samples per channel).
func (c *Clip) Frames() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// DurationMs is the clip duration in milliseconds, truncated.
func (c *Clip) DurationMs() int {
	if c.SampleRate == 0 {
		return 0
	}
	return int(int64(c.Frames()) * 1000 / int64(c.SampleRate))
}

// FramesForMs converts a duration to a frame count at this clip's rate.
func (c *Clip) FramesForMs(ms int) int {
	return int(int64(ms) * int64(c.SampleRate) / 1000)
}

// Slice returns a view of the clip between two frame offsets.
func (c *Clip) Slice(startFrame, endFrame int) *Clip {
	return &Clip{
		Samples:    c.Samples[startFrame*c.Channels : endFrame*c.Channels],
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
	}
}
