package domain

import "time"

// Canonical slot roles. The planner may emit other values, but these are
// the ones the provider routing understands.
const (
	RoleIntro    = "intro"
	RoleBuild    = "build"
	RolePeak     = "peak"
	RoleSustain  = "sustain"
	RoleCooldown = "cooldown"
	RoleOutro    = "outro"
)

// TrackMetadata describes one asset in the remote library.
type TrackMetadata struct {
	TrackID  string `json:"track_id"`
	Title    string `json:"title"`
	Genre    string `json:"genre"`
	Subgenre string `json:"subgenre,omitempty"`

	BPM        float64 `json:"bpm"`
	DurationMs int     `json:"duration_ms"`
	Energy     int     `json:"energy"`
	Role       string  `json:"role"`
	MusicalKey string  `json:"musical_key,omitempty"`

	Provider   string `json:"provider"`
	Prompt     string `json:"prompt,omitempty"`
	PromptHash string `json:"prompt_hash,omitempty"`
	SessionID  string `json:"session_id,omitempty"`

	Quality    *int       `json:"quality,omitempty"`
	UsageCount int        `json:"usage_count"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`

	// Object-store keys, populated after upload.
	AudioKey    string `json:"audio_key,omitempty"`
	MetadataKey string `json:"metadata_key,omitempty"`
}

// MarkUsed records a reuse of this track.
func (t *TrackMetadata) MarkUsed(now time.Time) {
	t.LastUsedAt = &now
	t.UsageCount++
}

// AcquiredTrack resolves a TrackSlot to concrete audio on local disk.
type AcquiredTrack struct {
	Slot       TrackSlot `json:"slot"`
	TrackID    string    `json:"track_id"`
	Title      string    `json:"title"`
	AudioPath  string    `json:"audio_path"`
	DurationMs int       `json:"duration_ms"`
	BPM        float64   `json:"bpm"`
	MusicalKey string    `json:"musical_key,omitempty"`
	Provider   string    `json:"provider"`
	Reused     bool      `json:"reused"`
}
